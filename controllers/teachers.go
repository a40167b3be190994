package controllers

import (
	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type TeacherController struct{}

type weekScheduleRequest struct {
	Monday    int `json:"monday" validate:"gte=0,lte=12"`
	Tuesday   int `json:"tuesday" validate:"gte=0,lte=12"`
	Wednesday int `json:"wednesday" validate:"gte=0,lte=12"`
	Thursday  int `json:"thursday" validate:"gte=0,lte=12"`
	Friday    int `json:"friday" validate:"gte=0,lte=12"`
	Saturday  int `json:"saturday" validate:"gte=0,lte=12"`
}

func (w weekScheduleRequest) toModel() models.WeekSchedule {
	return models.WeekSchedule{
		Monday:    w.Monday,
		Tuesday:   w.Tuesday,
		Wednesday: w.Wednesday,
		Thursday:  w.Thursday,
		Friday:    w.Friday,
		Saturday:  w.Saturday,
	}
}

func (w weekScheduleRequest) totalHours() int {
	return w.Monday + w.Tuesday + w.Wednesday + w.Thursday + w.Friday + w.Saturday
}

type teacherRequest struct {
	FirstName  string              `json:"first_name" validate:"required,min=1,max=100"`
	LastName   string              `json:"last_name" validate:"required,min=1,max=100"`
	BirthDate  string              `json:"birth_date"`
	Phone      string              `json:"phone" validate:"required"`
	Subject    string              `json:"subject"`
	HourlyRate int64               `json:"hourly_rate" validate:"required,gt=0"`
	Schedule   weekScheduleRequest `json:"schedule"`
	Login      string              `json:"login" validate:"required,min=3,max=100"`
	Password   string              `json:"password" validate:"required,min=8"`
}

// GetTeachers lists the school's teachers
func (tc *TeacherController) GetTeachers(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var teachers []models.Teacher
	if err := database.DB.Where("school_id = ?", schoolID).
		Order("last_name ASC, first_name ASC").Find(&teachers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch teachers"})
	}
	return c.JSON(fiber.Map{"teachers": teachers})
}

// GetTeacher returns one teacher
func (tc *TeacherController) GetTeacher(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.Where("id = ? AND school_id = ?", id, schoolID).First(&teacher).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}
	return c.JSON(fiber.Map{"teacher": teacher})
}

// CreateTeacher hires a teacher: weekly schedule, hourly rate, login and a
// badge number
func (tc *TeacherController) CreateTeacher(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req teacherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var existing models.Teacher
	if err := database.DB.Where("login = ?", req.Login).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Login already taken"})
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	schedule := req.Schedule.toModel()
	weeklyHours := req.Schedule.totalHours()

	teacher := models.Teacher{
		SchoolID:      schoolID,
		FirstName:     utils.SanitizeString(req.FirstName),
		LastName:      utils.SanitizeString(req.LastName),
		Phone:         req.Phone,
		Subject:       utils.SanitizeString(req.Subject),
		HourlyRate:    req.HourlyRate,
		WeeklyHours:   weeklyHours,
		Schedule:      schedule,
		MonthlySalary: req.HourlyRate * int64(weeklyHours) * 4,
		Login:         req.Login,
		Password:      hashed,
	}
	if req.BirthDate != "" {
		birthDate, err := utils.ParseDateKey(req.BirthDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid birth_date, want YYYY-MM-DD"})
		}
		teacher.BirthDate = birthDate
	}
	employeeNo := utils.NewEmployeeNo()
	teacher.EmployeeNo = &employeeNo

	if err := database.DB.Create(&teacher).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create teacher"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"teacher": teacher})
}

// UpdateTeacher changes a teacher's rate, schedule or contact details.
// Rate and schedule changes affect accruals from the next arrival only;
// already-posted salary lines are immutable.
func (tc *TeacherController) UpdateTeacher(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.Where("id = ? AND school_id = ?", id, schoolID).First(&teacher).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	var req struct {
		FirstName  string               `json:"first_name"`
		LastName   string               `json:"last_name"`
		Phone      string               `json:"phone"`
		Subject    string               `json:"subject"`
		HourlyRate *int64               `json:"hourly_rate"`
		Schedule   *weekScheduleRequest `json:"schedule"`
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
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Subject != "" {
		updates["subject"] = utils.SanitizeString(req.Subject)
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Hourly rate must be positive"})
		}
		updates["hourly_rate"] = *req.HourlyRate
	}
	if req.Schedule != nil {
		if errs := utils.ValidateStruct(req.Schedule); errs != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
		}
		sched := req.Schedule.toModel()
		updates["sched_monday"] = sched.Monday
		updates["sched_tuesday"] = sched.Tuesday
		updates["sched_wednesday"] = sched.Wednesday
		updates["sched_thursday"] = sched.Thursday
		updates["sched_friday"] = sched.Friday
		updates["sched_saturday"] = sched.Saturday
		updates["weekly_hours"] = req.Schedule.totalHours()
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&teacher).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update teacher"})
	}
	return c.JSON(fiber.Map{"message": "Teacher updated"})
}

// RegenerateBadge issues a fresh badge number for a teacher
func (tc *TeacherController) RegenerateBadge(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	var teacher models.Teacher
	if err := database.DB.Where("id = ? AND school_id = ?", id, schoolID).First(&teacher).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	employeeNo := utils.NewEmployeeNo()
	if err := database.DB.Model(&teacher).Update("employee_no", employeeNo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to regenerate badge"})
	}
	return c.JSON(fiber.Map{"employee_no": employeeNo})
}

// DeleteTeacher soft-deletes a teacher
func (tc *TeacherController) DeleteTeacher(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	result := database.DB.Where("id = ? AND school_id = ?", id, schoolID).Delete(&models.Teacher{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete teacher"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}
	return c.JSON(fiber.Map{"message": "Teacher deleted"})
}
