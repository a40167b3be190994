package controllers

import (
	"strconv"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type StudentController struct{}

type studentRequest struct {
	FirstName           string `json:"first_name" validate:"required,min=1,max=100"`
	LastName            string `json:"last_name" validate:"required,min=1,max=100"`
	MiddleName          string `json:"middle_name"`
	PassportNumber      string `json:"passport_number"`
	Gender              string `json:"gender" validate:"required,oneof=male female"`
	BirthDate           string `json:"birth_date" validate:"required"`
	AdmissionDate       string `json:"admission_date" validate:"required"`
	GroupID             uint   `json:"group_id" validate:"required"`
	MonthlyFee          int64  `json:"monthly_fee" validate:"gte=0"`
	PhoneNumber         string `json:"phone_number"`
	GuardianPhoneNumber string `json:"guardian_phone_number" validate:"required"`
	Source              string `json:"source"`
}

// GetStudents lists students with pagination and filters
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.Student{}).Where("school_id = ?", schoolID)

	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}
	if active := c.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}
	if search := c.Query("search"); search != "" {
		like := "%" + utils.SanitizeString(search) + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	var students []models.Student
	if err := query.Preload("Group").Offset(offset).Limit(limit).
		Order("last_name ASC, first_name ASC").Find(&students).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch students"})
	}

	return c.JSON(fiber.Map{
		"students": students,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetStudent returns one student
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var student models.Student
	if err := database.DB.Preload("Group").
		Where("id = ? AND school_id = ?", id, schoolID).First(&student).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}
	return c.JSON(fiber.Map{"student": student})
}

// CreateStudent enrolls a new student and issues a badge number
func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req studentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	birthDate, err := utils.ParseDateKey(req.BirthDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid birth_date, want YYYY-MM-DD"})
	}
	admissionDate, err := utils.ParseDateKey(req.AdmissionDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admission_date, want YYYY-MM-DD"})
	}

	var group models.Group
	if err := database.DB.Where("id = ? AND school_id = ?", req.GroupID, schoolID).First(&group).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Group not found"})
	}

	employeeNo := utils.NewEmployeeNo()
	student := models.Student{
		SchoolID:            schoolID,
		GroupID:             req.GroupID,
		FirstName:           utils.SanitizeString(req.FirstName),
		LastName:            utils.SanitizeString(req.LastName),
		MiddleName:          utils.SanitizeString(req.MiddleName),
		Gender:              req.Gender,
		BirthDate:           birthDate,
		AdmissionDate:       admissionDate,
		MonthlyFee:          req.MonthlyFee,
		IsActive:            true,
		PhoneNumber:         req.PhoneNumber,
		GuardianPhoneNumber: req.GuardianPhoneNumber,
		Source:              req.Source,
		EmployeeNo:          &employeeNo,
	}
	if req.PassportNumber != "" {
		passport := utils.SanitizeString(req.PassportNumber)
		student.PassportNumber = &passport
	}

	if err := database.DB.Create(&student).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create student"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"student": student})
}

// UpdateStudent changes a student's details. Admission date and activity
// state have their own endpoints.
func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var student models.Student
	if err := database.DB.Where("id = ? AND school_id = ?", id, schoolID).First(&student).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	var req struct {
		FirstName           string `json:"first_name"`
		LastName            string `json:"last_name"`
		MiddleName          string `json:"middle_name"`
		GroupID             uint   `json:"group_id"`
		MonthlyFee          *int64 `json:"monthly_fee"`
		PhoneNumber         string `json:"phone_number"`
		GuardianPhoneNumber string `json:"guardian_phone_number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = utils.SanitizeString(req.FirstName)
	}
	if req.LastName != "" {
		updates["last_name"] = utils.SanitizeString(req.LastName)
	}
	if req.MiddleName != "" {
		updates["middle_name"] = utils.SanitizeString(req.MiddleName)
	}
	if req.PhoneNumber != "" {
		updates["phone_number"] = req.PhoneNumber
	}
	if req.GuardianPhoneNumber != "" {
		updates["guardian_phone_number"] = req.GuardianPhoneNumber
	}
	if req.MonthlyFee != nil {
		if *req.MonthlyFee < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Monthly fee cannot be negative"})
		}
		updates["monthly_fee"] = *req.MonthlyFee
	}
	if req.GroupID != 0 {
		var group models.Group
		if err := database.DB.Where("id = ? AND school_id = ?", req.GroupID, schoolID).First(&group).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Group not found"})
		}
		updates["group_id"] = req.GroupID
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&student).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update student"})
	}
	return c.JSON(fiber.Map{"message": "Student updated"})
}

// ToggleActive flips the student's activity state. Deactivating stamps
// InactiveFrom with the current month so debt stops accruing from it.
func (sc *StudentController) ToggleActive(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var student models.Student
	if err := database.DB.Where("id = ? AND school_id = ?", id, schoolID).First(&student).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	updates := map[string]interface{}{"is_active": !student.IsActive}
	if student.IsActive {
		month := utils.MonthKeyOf(time.Now()).String()
		updates["inactive_from"] = month
	} else {
		updates["inactive_from"] = nil
	}

	if err := database.DB.Model(&student).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update student"})
	}
	return c.JSON(fiber.Map{"message": "Student status changed", "is_active": !student.IsActive})
}

// RegenerateBadge issues a fresh badge number, e.g. after a lost card
func (sc *StudentController) RegenerateBadge(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var student models.Student
	if err := database.DB.Where("id = ? AND school_id = ?", id, schoolID).First(&student).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	employeeNo := utils.NewEmployeeNo()
	if err := database.DB.Model(&student).Update("employee_no", employeeNo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to regenerate badge"})
	}
	return c.JSON(fiber.Map{"employee_no": employeeNo})
}

// DeleteStudent soft-deletes a student
func (sc *StudentController) DeleteStudent(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	result := database.DB.Where("id = ? AND school_id = ?", id, schoolID).Delete(&models.Student{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete student"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}
	return c.JSON(fiber.Map{"message": "Student deleted"})
}
