package controllers

import (
	"bytes"
	"fmt"
	"time"

	"sata_school_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	Reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{Reports: reports}
}

func sendWorkbook(c *fiber.Ctx, file *excelize.File, filename string) error {
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to render spreadsheet"})
	}
	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(buf.Bytes())
}

// DownloadDebtReport exports the open debt lines as a spreadsheet
func (rc *ReportController) DownloadDebtReport(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	file, err := rc.Reports.BuildDebtReport(schoolID, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}
	return sendWorkbook(c, file, "debts.xlsx")
}

// DownloadPaymentReport exports the merged payment view
func (rc *ReportController) DownloadPaymentReport(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	file, err := rc.Reports.BuildPaymentReport(schoolID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return sendWorkbook(c, file, "payments.xlsx")
}

// DownloadSalaryReport exports one month's salary summary
func (rc *ReportController) DownloadSalaryReport(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	file, err := rc.Reports.BuildSalaryReport(schoolID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return sendWorkbook(c, file, fmt.Sprintf("salaries_%s.xlsx", month.String()))
}

// ImportStudents ingests a roster spreadsheet uploaded as multipart form
// field "file". Bad rows are reported and skipped; good rows are created.
func (rc *ReportController) ImportStudents(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file upload"})
	}
	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read uploaded file"})
	}
	defer f.Close()

	summary, err := rc.Reports.ImportStudents(schoolID, f)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(summary)
}
