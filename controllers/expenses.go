package controllers

import (
	"strconv"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ExpenseController struct{}

type expenseRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Category string `json:"category"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Method   string `json:"method" validate:"required,oneof=cash card transfer"`
	Comment  string `json:"comment"`
}

// GetExpenses lists expenses, optionally filtered by month of creation
func (ec *ExpenseController) GetExpenses(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	query := database.DB.Where("school_id = ?", schoolID)
	if rawMonth := c.Query("month"); rawMonth != "" {
		month, err := utils.ParseAnyMonthKey(rawMonth)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
		}
		start := month.Time()
		query = query.Where("created_at >= ? AND created_at < ?", start, month.Next().Time())
	}

	var expenses []models.Expense
	if err := query.Order("id DESC").Find(&expenses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch expenses"})
	}
	return c.JSON(fiber.Map{"expenses": expenses})
}

// CreateExpense records an outgoing payment and debits the budget in the
// same transaction
func (ec *ExpenseController) CreateExpense(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req expenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	expense := models.Expense{
		SchoolID: schoolID,
		Name:     utils.SanitizeString(req.Name),
		Category: utils.SanitizeString(req.Category),
		Amount:   req.Amount,
		Method:   req.Method,
		Comment:  req.Comment,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}
		return tx.Model(&models.School{}).Where("id = ?", schoolID).
			Update("budget", gorm.Expr("budget - ?", req.Amount)).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create expense"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"expense": expense})
}

// DeleteExpense removes an expense and refunds the budget
func (ec *ExpenseController) DeleteExpense(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid expense ID"})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var expense models.Expense
		if err := tx.Where("id = ? AND school_id = ?", id, schoolID).First(&expense).Error; err != nil {
			return err
		}
		if err := tx.Delete(&expense).Error; err != nil {
			return err
		}
		return tx.Model(&models.School{}).Where("id = ?", schoolID).
			Update("budget", gorm.Expr("budget + ?", expense.Amount)).Error
	})
	if err == gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Expense not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete expense"})
	}
	return c.JSON(fiber.Map{"message": "Expense deleted"})
}

// GetMonthlySummary returns per-month expense totals for a year
func (ec *ExpenseController) GetMonthlySummary(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	year, err := strconv.Atoi(c.Query("year", strconv.Itoa(time.Now().Year())))
	if err != nil || year < 2000 || year > 2100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid year"})
	}

	type row struct {
		Month int
		Sum   int64
	}
	var rows []row
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := database.DB.Model(&models.Expense{}).
		Select("MONTH(created_at) AS month, SUM(amount) AS sum").
		Where("school_id = ? AND created_at >= ? AND created_at < ?", schoolID, start, start.AddDate(1, 0, 0)).
		Group("MONTH(created_at)").
		Scan(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build summary"})
	}

	months := make([]int64, 12)
	for _, r := range rows {
		if r.Month >= 1 && r.Month <= 12 {
			months[r.Month-1] = r.Sum
		}
	}
	return c.JSON(fiber.Map{"year": year, "months": months})
}
