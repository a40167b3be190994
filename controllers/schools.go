package controllers

import (
	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type SchoolController struct{}

type registerSchoolRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=200"`
	Login         string `json:"login" validate:"required,min=3,max=100"`
	Password      string `json:"password" validate:"required,min=8"`
	ExtraPassword string `json:"extra_password" validate:"required,min=6"`
	GateLogin     string `json:"gate_login" validate:"required,min=3,max=100"`
	GatePassword  string `json:"gate_password" validate:"required,min=8"`
	Phone         string `json:"phone"`
}

// Register creates a new school tenant
func (sc *SchoolController) Register(c *fiber.Ctx) error {
	var req registerSchoolRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var existing models.School
	if err := database.DB.Where("login = ?", req.Login).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Login already taken"})
	}

	password, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}
	extraPassword, err := utils.HashPassword(req.ExtraPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}
	gatePassword, err := utils.HashPassword(req.GatePassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	school := models.School{
		Name:          req.Name,
		Login:         req.Login,
		Password:      password,
		ExtraPassword: extraPassword,
		GateLogin:     req.GateLogin,
		GatePassword:  gatePassword,
		Phone:         req.Phone,
	}
	if err := database.DB.Create(&school).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create school"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"school": fiber.Map{"id": school.ID, "name": school.Name},
	})
}

// GetProfile returns the school including the running budget
func (sc *SchoolController) GetProfile(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var school models.School
	if err := database.DB.First(&school, schoolID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "School not found"})
	}

	return c.JSON(fiber.Map{"school": school})
}

type updateSchoolRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Update changes the school's display fields
func (sc *SchoolController) Update(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req updateSchoolRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = utils.SanitizeString(req.Name)
	}
	if req.Phone != "" {
		updates["phone"] = utils.SanitizeString(req.Phone)
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&models.School{}).Where("id = ?", schoolID).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update school"})
	}
	return c.JSON(fiber.Map{"message": "School updated"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	// Which credential to rotate: "admin", "extra" or "gate"
	Target string `json:"target" validate:"required,oneof=admin extra gate"`
}

// ChangePassword rotates one of the school's three credentials. The admin
// password always authorizes the change.
func (sc *SchoolController) ChangePassword(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var school models.School
	if err := database.DB.First(&school, schoolID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "School not found"})
	}
	if utils.CheckPassword(req.CurrentPassword, school.Password) != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Wrong password"})
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	column := map[string]string{
		"admin": "password",
		"extra": "extra_password",
		"gate":  "gate_password",
	}[req.Target]

	if err := database.DB.Model(&school).Update(column, hashed).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to change password"})
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

type staffRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=200"`
	Login    string `json:"login" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

// CreateStaff adds a back-office user to the school
func (sc *SchoolController) CreateStaff(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req staffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var existing models.StaffUser
	if err := database.DB.Where("login = ?", req.Login).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Login already taken"})
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	staff := models.StaffUser{
		SchoolID: schoolID,
		Name:     utils.SanitizeString(req.Name),
		Login:    req.Login,
		Password: hashed,
		Role:     req.Role,
	}
	if err := database.DB.Create(&staff).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create staff user"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"staff": fiber.Map{"id": staff.ID, "name": staff.Name, "role": staff.Role},
	})
}

// GetStaff lists the school's back-office users
func (sc *SchoolController) GetStaff(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var staff []models.StaffUser
	if err := database.DB.Where("school_id = ?", schoolID).Find(&staff).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch staff"})
	}
	return c.JSON(fiber.Map{"staff": staff})
}

// DeleteStaff removes a back-office user
func (sc *SchoolController) DeleteStaff(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid staff ID"})
	}

	result := database.DB.Where("id = ? AND school_id = ?", id, schoolID).Delete(&models.StaffUser{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete staff user"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Staff user not found"})
	}
	return c.JSON(fiber.Map{"message": "Staff user deleted"})
}
