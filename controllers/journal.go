package controllers

import (
	"errors"
	"time"

	"sata_school_go/database"
	"sata_school_go/middleware"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// JournalController covers the day-to-day class journal: lesson grades,
// homework and the quarter calendar. Exam scoring lives in ExamController.
type JournalController struct{}

func NewJournalController() *JournalController {
	return &JournalController{}
}

// teacherOwnsSlot checks that a teacher posts only into their own lessons.
// Back-office actors bypass the check.
func teacherOwnsSlot(actor *middleware.Actor, slot *models.LessonSlot) bool {
	if actor.Kind != middleware.ActorTeacher {
		return true
	}
	return slot.TeacherID == actor.ActorID
}

type gradeRequest struct {
	StudentID    uint   `json:"student_id" validate:"required"`
	LessonSlotID uint   `json:"lesson_slot_id" validate:"required"`
	Date         string `json:"date" validate:"required"`
	Value        int    `json:"value" validate:"required,gte=1,lte=5"`
	Comment      string `json:"comment" validate:"max=500"`
}

// PostGrade records one journal grade for a lesson
func (jc *JournalController) PostGrade(c *fiber.Ctx) error {
	schoolID, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req gradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}
	date, err := utils.ParseDateKey(req.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, want YYYY-MM-DD"})
	}

	var slot models.LessonSlot
	if err := database.DB.Where("id = ? AND school_id = ?", req.LessonSlotID, schoolID).First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lesson slot not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch lesson slot"})
	}
	if !teacherOwnsSlot(actor, &slot) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your lesson"})
	}

	var student models.Student
	if err := database.DB.Where("id = ? AND school_id = ? AND group_id = ?",
		req.StudentID, schoolID, slot.GroupID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found in this group"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch student"})
	}

	grade := models.Grade{
		SchoolID:     schoolID,
		StudentID:    student.ID,
		GroupID:      slot.GroupID,
		SubjectID:    slot.SubjectID,
		LessonSlotID: slot.ID,
		Date:         date,
		Value:        req.Value,
		Comment:      req.Comment,
	}
	if err := database.DB.Create(&grade).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save grade"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"grade": grade})
}

// GetGroupGrades lists a group's grades for a month, optionally by subject
func (jc *JournalController) GetGroupGrades(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	groupID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	start := month.Time()
	end := start.AddDate(0, 1, 0)
	q := database.DB.Preload("Student").Preload("Subject").
		Where("school_id = ? AND group_id = ? AND date >= ? AND date < ?", schoolID, groupID, start, end)
	if subjectID := c.QueryInt("subject_id"); subjectID > 0 {
		q = q.Where("subject_id = ?", subjectID)
	}

	var grades []models.Grade
	if err := q.Order("date ASC, id ASC").Find(&grades).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch grades"})
	}
	return c.JSON(fiber.Map{"month": month.Legacy(), "grades": grades})
}

// DeleteGrade removes a journal grade
func (jc *JournalController) DeleteGrade(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	gradeID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid grade ID"})
	}

	res := database.DB.Where("id = ? AND school_id = ?", gradeID, schoolID).Delete(&models.Grade{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete grade"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Grade not found"})
	}
	return c.JSON(fiber.Map{"message": "Grade deleted"})
}

type homeworkRequest struct {
	LessonSlotID uint   `json:"lesson_slot_id" validate:"required"`
	DueDate      string `json:"due_date" validate:"required"`
	Text         string `json:"text" validate:"required,max=2000"`
}

// PostHomework assigns homework for a lesson slot
func (jc *JournalController) PostHomework(c *fiber.Ctx) error {
	schoolID, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req homeworkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}
	dueDate, err := utils.ParseDateKey(req.DueDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid due date, want YYYY-MM-DD"})
	}

	var slot models.LessonSlot
	if err := database.DB.Where("id = ? AND school_id = ?", req.LessonSlotID, schoolID).First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lesson slot not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch lesson slot"})
	}
	if !teacherOwnsSlot(actor, &slot) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your lesson"})
	}

	homework := models.Homework{
		SchoolID:     schoolID,
		GroupID:      slot.GroupID,
		SubjectID:    slot.SubjectID,
		LessonSlotID: slot.ID,
		TeacherID:    slot.TeacherID,
		DueDate:      dueDate,
		Text:         req.Text,
	}
	if err := database.DB.Create(&homework).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save homework"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"homework": homework})
}

// GetGroupHomework lists a group's homework, upcoming first
func (jc *JournalController) GetGroupHomework(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	groupID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group ID"})
	}

	var homework []models.Homework
	if err := database.DB.Preload("Subject").
		Where("school_id = ? AND group_id = ? AND due_date >= ?",
			schoolID, groupID, time.Now().AddDate(0, 0, -30)).
		Order("due_date ASC").Find(&homework).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch homework"})
	}
	return c.JSON(fiber.Map{"homework": homework})
}

// DeleteHomework removes a homework assignment
func (jc *JournalController) DeleteHomework(c *fiber.Ctx) error {
	schoolID, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	homeworkID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid homework ID"})
	}

	q := database.DB.Where("id = ? AND school_id = ?", homeworkID, schoolID)
	if actor.Kind == middleware.ActorTeacher {
		q = q.Where("teacher_id = ?", actor.ActorID)
	}
	res := q.Delete(&models.Homework{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete homework"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Homework not found"})
	}
	return c.JSON(fiber.Map{"message": "Homework deleted"})
}

type quarterRequest struct {
	Number    int    `json:"number" validate:"required,gte=1,lte=4"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// SetQuarter creates or updates one quarter's date span
func (jc *JournalController) SetQuarter(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req quarterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}
	start, err := utils.ParseDateKey(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start date, want YYYY-MM-DD"})
	}
	end, err := utils.ParseDateKey(req.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end date, want YYYY-MM-DD"})
	}
	if !start.Before(end) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Start date must precede end date"})
	}

	var quarter models.SchoolQuarter
	err = database.DB.Where("school_id = ? AND number = ?", schoolID, req.Number).First(&quarter).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		quarter = models.SchoolQuarter{SchoolID: schoolID, Number: req.Number, StartDate: start, EndDate: end}
		if err := database.DB.Create(&quarter).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save quarter"})
		}
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch quarter"})
	default:
		quarter.StartDate = start
		quarter.EndDate = end
		if err := database.DB.Save(&quarter).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save quarter"})
		}
	}
	return c.JSON(fiber.Map{"quarter": quarter})
}

// GetQuarters lists the quarter calendar
func (jc *JournalController) GetQuarters(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var quarters []models.SchoolQuarter
	if err := database.DB.Where("school_id = ?", schoolID).
		Order("number ASC").Find(&quarters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch quarters"})
	}
	return c.JSON(fiber.Map{"quarters": quarters})
}
