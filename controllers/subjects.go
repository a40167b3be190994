package controllers

import (
	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type SubjectController struct{}

// GetSubjects lists the school's subjects
func (sc *SubjectController) GetSubjects(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var subjects []models.Subject
	if err := database.DB.Where("school_id = ?", schoolID).Order("name ASC").Find(&subjects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch subjects"})
	}
	return c.JSON(fiber.Map{"subjects": subjects})
}

// CreateSubject adds a subject
func (sc *SubjectController) CreateSubject(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req struct {
		Name string `json:"name" validate:"required,min=1,max=100"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	subject := models.Subject{SchoolID: schoolID, Name: utils.SanitizeString(req.Name)}
	if err := database.DB.Create(&subject).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create subject"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subject": subject})
}

// DeleteSubject removes a subject not referenced by lesson slots
func (sc *SubjectController) DeleteSubject(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid subject ID"})
	}

	var slotCount int64
	database.DB.Model(&models.LessonSlot{}).Where("subject_id = ?", id).Count(&slotCount)
	if slotCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Subject is still scheduled"})
	}

	result := database.DB.Where("id = ? AND school_id = ?", id, schoolID).Delete(&models.Subject{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete subject"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subject not found"})
	}
	return c.JSON(fiber.Map{"message": "Subject deleted"})
}
