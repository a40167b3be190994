package services

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportService builds spreadsheet exports and ingests roster imports
type ReportService struct {
	DB       *gorm.DB
	Payments *PaymentService
	Salaries *SalaryService
}

func NewReportService(payments *PaymentService, salaries *SalaryService) *ReportService {
	return &ReportService{DB: database.DB, Payments: payments, Salaries: salaries}
}

func setHeaderRow(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

// BuildDebtReport exports the current debt projection, one row per owed
// (student, month) pair.
func (rs *ReportService) BuildDebtReport(schoolID uint, now time.Time) (*excelize.File, error) {
	lines, err := rs.Payments.ComputeDebts(schoolID, now)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Debts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Group", "Month", "Monthly Fee", "Paid", "Debt"}
	if err := setHeaderRow(f, sheet, headers); err != nil {
		return nil, err
	}

	for i, line := range lines {
		row := i + 2
		values := []interface{}{
			line.StudentFullname,
			line.GroupName,
			line.Month.String(),
			line.MonthlyFee,
			line.Paid,
			line.DebtAmount,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// BuildPaymentReport exports the merged payment view
func (rs *ReportService) BuildPaymentReport(schoolID uint) (*excelize.File, error) {
	merged, err := rs.Payments.MergedPayments(schoolID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Payments"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Month", "Amount", "Monthly Fee", "Method", "Last Payment"}
	if err := setHeaderRow(f, sheet, headers); err != nil {
		return nil, err
	}

	for i, m := range merged {
		row := i + 2
		values := []interface{}{
			m.StudentFullname,
			m.Month.String(),
			m.Amount,
			m.MonthlyFee,
			m.Method,
			m.LastPaymentAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// BuildSalaryReport exports the month's salary summary
func (rs *ReportService) BuildSalaryReport(schoolID uint, month utils.MonthKey) (*excelize.File, error) {
	summary, err := rs.Salaries.MonthSummary(schoolID, month)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Salaries " + month.String()
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Teacher", "Accrued", "Substitutions", "Payable"}
	if err := setHeaderRow(f, sheet, headers); err != nil {
		return nil, err
	}

	for i, s := range summary {
		row := i + 2
		values := []interface{}{
			s.TeacherFullname,
			s.TotalAmount,
			s.SubstitutionNet,
			s.Payable,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// StudentImportRow is one parsed line of a roster spreadsheet
type StudentImportRow struct {
	FirstName     string
	LastName      string
	GroupName     string
	GuardianPhone string
	MonthlyFee    int64
	AdmissionDate time.Time
}

// ImportSummary reports what a roster import did
type ImportSummary struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// parseStudentRow validates one spreadsheet row. Columns: first name, last
// name, group, guardian phone, monthly fee, admission date (YYYY-MM-DD).
func parseStudentRow(rowNum int, cols []string) (*StudentImportRow, error) {
	if len(cols) < 6 {
		return nil, fmt.Errorf("row %d: expected 6 columns, got %d", rowNum, len(cols))
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	if cols[0] == "" || cols[1] == "" {
		return nil, fmt.Errorf("row %d: missing name", rowNum)
	}
	if cols[2] == "" {
		return nil, fmt.Errorf("row %d: missing group", rowNum)
	}

	fee, err := strconv.ParseInt(cols[4], 10, 64)
	if err != nil || fee < 0 {
		return nil, fmt.Errorf("row %d: bad monthly fee %q", rowNum, cols[4])
	}

	admission, err := utils.ParseDateKey(cols[5])
	if err != nil {
		return nil, fmt.Errorf("row %d: bad admission date %q", rowNum, cols[5])
	}

	return &StudentImportRow{
		FirstName:     cols[0],
		LastName:      cols[1],
		GroupName:     cols[2],
		GuardianPhone: cols[3],
		MonthlyFee:    fee,
		AdmissionDate: admission,
	}, nil
}

// ImportStudents reads a roster spreadsheet and creates the students it
// lists. Rows referencing unknown groups are reported, not created.
func (rs *ReportService) ImportStudents(schoolID uint, r io.Reader) (*ImportSummary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ValidationError{Message: "not a readable spreadsheet"}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &ValidationError{Message: "spreadsheet has no data rows"}
	}

	var groups []models.Group
	if err := rs.DB.Where("school_id = ?", schoolID).Find(&groups).Error; err != nil {
		return nil, err
	}
	groupByName := make(map[string]uint, len(groups))
	for _, g := range groups {
		groupByName[strings.ToLower(g.Name)] = g.ID
	}

	summary := &ImportSummary{}
	for i, cols := range rows[1:] {
		rowNum := i + 2
		parsed, err := parseStudentRow(rowNum, cols)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}

		groupID, ok := groupByName[strings.ToLower(parsed.GroupName)]
		if !ok {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: unknown group %q", rowNum, parsed.GroupName))
			continue
		}

		employeeNo := utils.NewEmployeeNo()
		student := models.Student{
			SchoolID:            schoolID,
			FirstName:           parsed.FirstName,
			LastName:            parsed.LastName,
			GroupID:             groupID,
			GuardianPhoneNumber: parsed.GuardianPhone,
			MonthlyFee:          parsed.MonthlyFee,
			AdmissionDate:       parsed.AdmissionDate,
			IsActive:            true,
			EmployeeNo:          &employeeNo,
		}
		if err := rs.DB.Create(&student).Error; err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		summary.Created++
	}
	return summary, nil
}
