package controllers

import (
	"context"

	"sata_school_go/config"
	"sata_school_go/database"
	"sata_school_go/middleware"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct{}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SchoolLogin authenticates the school's admin credentials
func (ac *AuthController) SchoolLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var school models.School
	if err := database.DB.Where("login = ?", req.Login).First(&school).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if utils.CheckPassword(req.Password, school.Password) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := middleware.GenerateToken(school.ID, school.ID, middleware.ActorAdmin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"school": fiber.Map{
			"id":   school.ID,
			"name": school.Name,
		},
		"role": middleware.ActorAdmin,
	})
}

// GateLogin authenticates the attendance terminal's credentials. The token
// it gets can only reach the scan endpoints.
func (ac *AuthController) GateLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var school models.School
	if err := database.DB.Where("gate_login = ?", req.Login).First(&school).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if utils.CheckPassword(req.Password, school.GatePassword) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := middleware.GenerateToken(school.ID, 0, middleware.ActorGate)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": token, "role": middleware.ActorGate})
}

// StaffLogin authenticates a back-office staff user
func (ac *AuthController) StaffLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var staff models.StaffUser
	if err := database.DB.Where("login = ?", req.Login).First(&staff).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if utils.CheckPassword(req.Password, staff.Password) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	kind := middleware.ActorStaff
	if staff.Role == "admin" {
		kind = middleware.ActorAdmin
	}
	token, err := middleware.GenerateToken(staff.SchoolID, staff.ID, kind)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"staff": fiber.Map{"id": staff.ID, "name": staff.Name, "role": staff.Role},
		"role":  kind,
	})
}

// TeacherLogin authenticates a teacher
func (ac *AuthController) TeacherLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var teacher models.Teacher
	if err := database.DB.Where("login = ?", req.Login).First(&teacher).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if utils.CheckPassword(req.Password, teacher.Password) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := middleware.GenerateToken(teacher.SchoolID, teacher.ID, middleware.ActorTeacher)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"teacher": fiber.Map{"id": teacher.ID, "full_name": teacher.FullName()},
		"role":    middleware.ActorTeacher,
	})
}

type parentLoginRequest struct {
	SchoolLogin   string `json:"school_login" validate:"required"`
	GuardianPhone string `json:"guardian_phone" validate:"required"`
	// EmployeeNo is the child's badge number printed on the card; it is
	// what proves the caller belongs to the family.
	EmployeeNo string `json:"employee_no" validate:"required"`
}

// ParentLogin authenticates a guardian by phone number plus the child's
// badge number. Parent tokens are signed with their own secret and only
// open the read-only parent endpoints.
func (ac *AuthController) ParentLogin(c *fiber.Ctx) error {
	var req parentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var school models.School
	if err := database.DB.Where("login = ?", req.SchoolLogin).First(&school).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	var student models.Student
	if err := database.DB.Where(
		"school_id = ? AND guardian_phone_number = ? AND employee_no = ? AND is_active = ?",
		school.ID, req.GuardianPhone, req.EmployeeNo, true,
	).First(&student).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := middleware.GenerateParentToken(school.ID, req.GuardianPhone)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": token, "role": middleware.ActorParent})
}

// Logout blacklists the presented token until it would have expired anyway
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	token, ok := c.Locals("token").(string)
	if !ok || token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No token to revoke"})
	}

	if rdb := database.GetRedisClient(); rdb != nil {
		ttl := config.AppConfig.JWTExpiresIn
		if err := rdb.Set(context.Background(), "blacklist:jwt:"+token, "1", ttl).Err(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to revoke token"})
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Profile returns who the token belongs to
func (ac *AuthController) Profile(c *fiber.Ctx) error {
	_, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	resp := fiber.Map{
		"school_id": actor.SchoolID,
		"kind":      actor.Kind,
	}

	switch actor.Kind {
	case middleware.ActorAdmin:
		var school models.School
		if err := database.DB.First(&school, actor.SchoolID).Error; err == nil {
			resp["school"] = fiber.Map{"id": school.ID, "name": school.Name, "budget": school.Budget}
		}
		var staff models.StaffUser
		if actor.ActorID != actor.SchoolID {
			if err := database.DB.First(&staff, actor.ActorID).Error; err == nil {
				resp["staff"] = fiber.Map{"id": staff.ID, "name": staff.Name, "role": staff.Role}
			}
		}
	case middleware.ActorStaff:
		var staff models.StaffUser
		if err := database.DB.First(&staff, actor.ActorID).Error; err == nil {
			resp["staff"] = fiber.Map{"id": staff.ID, "name": staff.Name, "role": staff.Role}
		}
	case middleware.ActorTeacher:
		var teacher models.Teacher
		if err := database.DB.First(&teacher, actor.ActorID).Error; err == nil {
			resp["teacher"] = fiber.Map{"id": teacher.ID, "full_name": teacher.FullName()}
		}
	}

	return c.JSON(resp)
}
