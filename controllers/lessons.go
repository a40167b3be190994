package controllers

import (
	"strings"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type LessonController struct{}

var validWeekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

type lessonSlotRequest struct {
	GroupID     uint   `json:"group_id" validate:"required"`
	SubjectID   uint   `json:"subject_id" validate:"required"`
	TeacherID   uint   `json:"teacher_id" validate:"required"`
	Weekday     string `json:"weekday" validate:"required"`
	LessonOrder int    `json:"lesson_order" validate:"required,gte=1,lte=12"`
	Room        string `json:"room"`
}

// GetTimetable returns the weekly timetable, filterable by group or teacher
func (lc *LessonController) GetTimetable(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	query := database.DB.Preload("Group").Preload("Subject").Preload("Teacher").
		Where("school_id = ?", schoolID)
	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	var slots []models.LessonSlot
	if err := query.Order("weekday ASC, lesson_order ASC").Find(&slots).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch timetable"})
	}
	return c.JSON(fiber.Map{"slots": slots})
}

// CreateSlot adds a lesson slot. The (group, weekday, order) triple must be
// free.
func (lc *LessonController) CreateSlot(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req lessonSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	weekday := strings.ToLower(strings.TrimSpace(req.Weekday))
	if !validWeekdays[weekday] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid weekday (Sunday has no lessons)"})
	}

	for _, check := range []struct {
		model interface{}
		id    uint
		name  string
	}{
		{&models.Group{}, req.GroupID, "Group"},
		{&models.Subject{}, req.SubjectID, "Subject"},
		{&models.Teacher{}, req.TeacherID, "Teacher"},
	} {
		var count int64
		database.DB.Model(check.model).Where("id = ? AND school_id = ?", check.id, schoolID).Count(&count)
		if count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": check.name + " not found"})
		}
	}

	var clash int64
	database.DB.Model(&models.LessonSlot{}).
		Where("school_id = ? AND group_id = ? AND weekday = ? AND lesson_order = ?",
			schoolID, req.GroupID, weekday, req.LessonOrder).
		Count(&clash)
	if clash > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot already taken for this group"})
	}

	slot := models.LessonSlot{
		SchoolID:    schoolID,
		GroupID:     req.GroupID,
		SubjectID:   req.SubjectID,
		TeacherID:   req.TeacherID,
		Weekday:     weekday,
		LessonOrder: req.LessonOrder,
		Room:        utils.SanitizeString(req.Room),
	}
	if err := database.DB.Create(&slot).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create slot"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slot": slot})
}

// DeleteSlot removes a lesson slot
func (lc *LessonController) DeleteSlot(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot ID"})
	}

	result := database.DB.Where("id = ? AND school_id = ?", id, schoolID).Delete(&models.LessonSlot{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete slot"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Slot not found"})
	}
	return c.JSON(fiber.Map{"message": "Slot deleted"})
}
