package controllers

import (
	"sata_school_go/services"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type SalaryController struct {
	Salaries *services.SalaryService
}

func NewSalaryController(salaries *services.SalaryService) *SalaryController {
	return &SalaryController{Salaries: salaries}
}

// GetMonthSummary lists every teacher's salary state for a month
func (sc *SalaryController) GetMonthSummary(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	summary, err := sc.Salaries.MonthSummary(schoolID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"month": month.Legacy(), "salaries": summary})
}

// GetTeacherMonth returns one teacher's record with its accrual lines
func (sc *SalaryController) GetTeacherMonth(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	teacherID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	record, err := sc.Salaries.TeacherMonthDetail(schoolID, teacherID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"record": record})
}

// GetMySalary returns the calling teacher's own record. The teacher ID
// comes from the token, never from a parameter.
func (sc *SalaryController) GetMySalary(c *fiber.Ctx) error {
	schoolID, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	record, err := sc.Salaries.TeacherMonthDetail(schoolID, actor.ActorID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"record": record})
}

// GetTeacherHistory lists one teacher's salary records across months
func (sc *SalaryController) GetTeacherHistory(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	teacherID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher ID"})
	}

	records, err := sc.Salaries.TeacherHistory(schoolID, teacherID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"records": records})
}

type manualSalaryRequest struct {
	TeacherID   uint   `json:"teacher_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"required"`
	Month       string `json:"month" validate:"required"`
	PaymentType string `json:"payment_type"`
	Comment     string `json:"comment"`
}

// PostManualSalary posts a bonus, advance or deduction. It debits the
// school budget and mirrors into the expense ledger.
func (sc *SalaryController) PostManualSalary(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req manualSalaryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	month, err := utils.ParseAnyMonthKey(req.Month)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	err = sc.Salaries.PostManualSalary(schoolID, services.ManualSalaryInput{
		TeacherID:   req.TeacherID,
		Amount:      req.Amount,
		Month:       month,
		PaymentType: req.PaymentType,
		Comment:     req.Comment,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Salary entry posted"})
}

type substitutionRequest struct {
	TeacherID   uint   `json:"teacher_id" validate:"required"`
	CoTeacherID uint   `json:"co_teacher_id" validate:"required"`
	Month       string `json:"month" validate:"required"`
	LessonCount int    `json:"lesson_count" validate:"required,gt=0"`
}

// PostSubstitution records one teacher covering another's lessons
func (sc *SalaryController) PostSubstitution(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req substitutionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	month, err := utils.ParseAnyMonthKey(req.Month)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	err = sc.Salaries.RecordSubstitution(schoolID, services.SubstitutionInput{
		TeacherID:   req.TeacherID,
		CoTeacherID: req.CoTeacherID,
		Month:       month,
		LessonCount: req.LessonCount,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Substitution recorded"})
}

// GetSubstitutions lists a month's substitution rows
func (sc *SalaryController) GetSubstitutions(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	rows, err := sc.Salaries.Substitutions(schoolID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"month": month.Legacy(), "substitutions": rows})
}
