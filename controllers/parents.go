package controllers

import (
	"errors"
	"time"

	"sata_school_go/database"
	"sata_school_go/middleware"
	"sata_school_go/models"
	"sata_school_go/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ParentController serves the read-only parent surface. Every handler
// resolves the child through the guardian phone baked into the token, so a
// parent can never reach another family's data.
type ParentController struct {
	Payments   *services.PaymentService
	Attendance *services.AttendanceService
	Exams      *services.ExamService
}

func NewParentController(payments *services.PaymentService, attendance *services.AttendanceService, exams *services.ExamService) *ParentController {
	return &ParentController{Payments: payments, Attendance: attendance, Exams: exams}
}

func parentActor(c *fiber.Ctx) (*middleware.Actor, error) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return nil, err
	}
	if actor.Kind != middleware.ActorParent || actor.GuardianPhone == "" {
		return nil, errors.New("not a parent token")
	}
	return actor, nil
}

// childByID loads the student only if the token's guardian phone matches
func (pc *ParentController) childByID(actor *middleware.Actor, studentID uint) (*models.Student, error) {
	var student models.Student
	err := database.DB.Preload("Group").
		Where("id = ? AND school_id = ? AND guardian_phone_number = ?",
			studentID, actor.SchoolID, actor.GuardianPhone).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// GetChildren lists every student registered under the guardian phone
func (pc *ParentController) GetChildren(c *fiber.Ctx) error {
	actor, err := parentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var children []models.Student
	if err := database.DB.Preload("Group").
		Where("school_id = ? AND guardian_phone_number = ?", actor.SchoolID, actor.GuardianPhone).
		Order("first_name ASC").Find(&children).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch children"})
	}
	return c.JSON(fiber.Map{"children": children})
}

// GetChildPayments returns a child's payment history and open debts
func (pc *ParentController) GetChildPayments(c *fiber.Ctx) error {
	actor, err := parentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	child, err := pc.childByID(actor, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}

	payments, err := pc.Payments.StudentPayments(actor.SchoolID, child.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	debts, err := pc.Payments.StudentDebts(actor.SchoolID, child.ID, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"student":     child.FullName(),
		"monthly_fee": child.MonthlyFee,
		"payments":    payments,
		"debts":       debts,
	})
}

// GetChildAttendance returns a child's attendance for a month
func (pc *ParentController) GetChildAttendance(c *fiber.Ctx) error {
	actor, err := parentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	child, err := pc.childByID(actor, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	entries, err := pc.Attendance.PersonMonthHistory(actor.SchoolID, models.PersonStudent, child.ID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	stats, err := pc.Attendance.PersonMonthStats(actor.SchoolID, models.PersonStudent, child.ID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"student": child.FullName(),
		"month":   month.Legacy(),
		"entries": entries,
		"stats":   stats,
	})
}

// GetChildGrades returns a child's journal grades, newest first
func (pc *ParentController) GetChildGrades(c *fiber.Ctx) error {
	actor, err := parentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	child, err := pc.childByID(actor, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}

	var grades []models.Grade
	if err := database.DB.Preload("Subject").
		Where("school_id = ? AND student_id = ?", actor.SchoolID, child.ID).
		Order("date DESC, id DESC").Limit(200).Find(&grades).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch grades"})
	}
	return c.JSON(fiber.Map{"student": child.FullName(), "grades": grades})
}

// GetChildExams returns a child's exam score history
func (pc *ParentController) GetChildExams(c *fiber.Ctx) error {
	actor, err := parentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	child, err := pc.childByID(actor, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}

	results, err := pc.Exams.StudentExamHistory(actor.SchoolID, child.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"student": child.FullName(), "results": results})
}

// GetChildHomework lists current homework for the child's group
func (pc *ParentController) GetChildHomework(c *fiber.Ctx) error {
	actor, err := parentActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	child, err := pc.childByID(actor, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}

	var homework []models.Homework
	if err := database.DB.Preload("Subject").
		Where("school_id = ? AND group_id = ? AND due_date >= ?",
			actor.SchoolID, child.GroupID, time.Now().AddDate(0, 0, -7)).
		Order("due_date ASC").Find(&homework).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch homework"})
	}
	return c.JSON(fiber.Map{"student": child.FullName(), "homework": homework})
}
