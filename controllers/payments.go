package controllers

import (
	"strconv"
	"time"

	"sata_school_go/services"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

// PaymentController exposes the tuition ledger. Months arrive from the
// older clients as "MM-YYYY" and are normalized at this boundary; the
// canonical "YYYY-MM" is also accepted.
type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

type postPaymentRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Month     string `json:"month" validate:"required"`
	Method    string `json:"method" validate:"required,oneof=cash card transfer"`
}

// PostPayment records one ledger entry
func (pc *PaymentController) PostPayment(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req postPaymentRequest
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

	receipt, err := pc.Payments.PostPayment(schoolID, services.PostPaymentInput{
		StudentID: req.StudentID,
		Amount:    req.Amount,
		Month:     month,
		Method:    req.Method,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment_id":  receipt.PaymentID,
		"month":       receipt.Month.Legacy(),
		"month_total": receipt.MonthTotal,
		"monthly_fee": receipt.MonthlyFee,
	})
}

// GetDebts projects current debts, one row per owed month
func (pc *PaymentController) GetDebts(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	lines, err := pc.Payments.ComputeDebts(schoolID, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	out := make([]fiber.Map, 0, len(lines))
	for _, l := range lines {
		out = append(out, fiber.Map{
			"student_id":       l.StudentID,
			"student_fullname": l.StudentFullname,
			"group_id":         l.GroupID,
			"group_name":       l.GroupName,
			"month":            l.Month.Legacy(),
			"paid":             l.Paid,
			"monthly_fee":      l.MonthlyFee,
			"debt_amount":      l.DebtAmount,
		})
	}
	return c.JSON(fiber.Map{"debts": out, "count": len(out)})
}

// GetMergedPayments returns the per-(student, month) aggregate view
func (pc *PaymentController) GetMergedPayments(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	merged, err := pc.Payments.MergedPayments(schoolID)
	if err != nil {
		return respondServiceError(c, err)
	}

	out := make([]fiber.Map, 0, len(merged))
	for _, m := range merged {
		out = append(out, fiber.Map{
			"student_id":       m.StudentID,
			"student_fullname": m.StudentFullname,
			"group_id":         m.GroupID,
			"month":            m.Month.Legacy(),
			"amount":           m.Amount,
			"method":           m.Method,
			"monthly_fee":      m.MonthlyFee,
			"last_payment_at":  m.LastPaymentAt,
		})
	}
	return c.JSON(fiber.Map{"payments": out})
}

// CheckDebt answers whether a student may pay for the given month
func (pc *PaymentController) CheckDebt(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	status, err := pc.Payments.CheckDebtStatus(schoolID, studentID, month)
	if err != nil {
		return respondServiceError(c, err)
	}

	resp := fiber.Map{"debt": status.Debt}
	if status.InvalidMonth {
		resp["invalid_month"] = true
	}
	if status.DebtMonth != nil {
		resp["debt_month"] = status.DebtMonth.Legacy()
		resp["debt_amount"] = status.DebtAmount
	}
	return c.JSON(resp)
}

// GetStudentPayments lists one student's ledger rows
func (pc *PaymentController) GetStudentPayments(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	payments, err := pc.Payments.StudentPayments(schoolID, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

// GetPaymentLog lists the school's raw ledger, newest first
func (pc *PaymentController) GetPaymentLog(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	payments, err := pc.Payments.PaymentLog(schoolID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

// GetMonthlySummary returns twelve per-month totals for a year
func (pc *PaymentController) GetMonthlySummary(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	year, err := strconv.Atoi(c.Query("year", strconv.Itoa(time.Now().Year())))
	if err != nil || year < 2000 || year > 2100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid year"})
	}

	summary, err := pc.Payments.MonthlyPaymentSummary(schoolID, year)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"year": year, "months": summary})
}

// GetDailySummary returns per-day collected sums for a month
func (pc *PaymentController) GetDailySummary(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	days, err := pc.Payments.DailyPaymentSummary(schoolID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"month": month.Legacy(), "days": days})
}

type editPaymentRequest struct {
	Password string `json:"password" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Method   string `json:"method"`
}

// EditPayment changes a ledger row, gated by the extra password
func (pc *PaymentController) EditPayment(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	paymentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var req editPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	if err := pc.Payments.EditPayment(schoolID, paymentID, req.Password, req.Amount, req.Method); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment updated"})
}

type deletePaymentRequest struct {
	Password string `json:"password" validate:"required"`
}

// DeletePayment removes a ledger row, gated by the extra password
func (pc *PaymentController) DeletePayment(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	paymentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var req deletePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	if err := pc.Payments.DeletePayment(schoolID, paymentID, req.Password); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment deleted"})
}
