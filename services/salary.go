package services

import (
	"errors"
	"strings"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"gorm.io/gorm"
)

// SalaryService accrues teacher pay from attendance and keeps the manual
// adjustment ledger alongside it.
type SalaryService struct {
	DB *gorm.DB
}

func NewSalaryService() *SalaryService {
	return &SalaryService{DB: database.DB}
}

// Skip reasons an arrival can report instead of posting pay
const (
	SkipRestDay          = "rest_day"
	SkipNoScheduledHours = "no_scheduled_hours"
)

// dayAccrual computes the pay a scan on the given day earns. Sunday is the
// rest day and never accrues; a day with no scheduled hours accrues zero.
// An empty skip reason means the day pays.
func dayAccrual(rate int64, sched models.WeekSchedule, day time.Weekday) (hours int, amount int64, skip string) {
	if day == time.Sunday {
		return 0, 0, SkipRestDay
	}
	hours = sched.HoursOn(day)
	if hours <= 0 {
		return 0, 0, SkipNoScheduledHours
	}
	return hours, rate * int64(hours), ""
}

// isDuplicateKey matches the MySQL duplicate-entry error the unique day
// index raises on a replayed accrual
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "1062")
}

// ensureRecord loads or creates the month's salary record inside tx.
// TeacherFullname freezes at creation time.
func ensureRecord(tx *gorm.DB, schoolID uint, teacher *models.Teacher, month utils.MonthKey) (*models.SalaryRecord, error) {
	record := models.SalaryRecord{
		TeacherID:       teacher.ID,
		SchoolID:        schoolID,
		PaymentMonth:    month.String(),
		TeacherFullname: teacher.FullName(),
	}
	err := tx.Where(models.SalaryRecord{
		TeacherID:    teacher.ID,
		SchoolID:     schoolID,
		PaymentMonth: month.String(),
	}).FirstOrCreate(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// AccrualOutcome reports what one day's arrival earned. A skipped day is
// not an error; SkipReason says why nothing was posted.
type AccrualOutcome struct {
	Posted     bool   `json:"posted"`
	SkipReason string `json:"skip_reason,omitempty"`
	DateKey    string `json:"date_key"`
	Hours      int    `json:"hours,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
}

// AccrueFromAttendance posts one day's pay for a teacher who arrived. The
// (record, date) unique index makes replays no-ops: a second arrival on the
// same day returns AlreadyRecordedError and changes nothing.
func (ss *SalaryService) AccrueFromAttendance(schoolID, teacherID uint, at time.Time) (*AccrualOutcome, error) {
	var teacher models.Teacher
	if err := ss.DB.Where("id = ? AND school_id = ?", teacherID, schoolID).First(&teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	dateKey := utils.DateKey(at)

	hours, amount, skip := dayAccrual(teacher.HourlyRate, teacher.Schedule, at.Weekday())
	if skip != "" {
		return &AccrualOutcome{Posted: false, SkipReason: skip, DateKey: dateKey}, nil
	}

	month := utils.MonthKeyOf(at)

	err := ss.DB.Transaction(func(tx *gorm.DB) error {
		record, err := ensureRecord(tx, schoolID, &teacher, month)
		if err != nil {
			return err
		}

		log := models.SalaryLog{
			SalaryRecordID: record.ID,
			Date:           at,
			DateKey:        &dateKey,
			Hours:          hours,
			Amount:         amount,
			Reason:         models.SalaryReasonAttendance,
		}
		if err := tx.Create(&log).Error; err != nil {
			if isDuplicateKey(err) {
				return &AlreadyRecordedError{DateKey: dateKey}
			}
			return err
		}

		return tx.Model(&models.SalaryRecord{}).Where("id = ?", record.ID).
			Update("total_amount", gorm.Expr("total_amount + ?", amount)).Error
	})
	if err != nil {
		return nil, err
	}
	return &AccrualOutcome{Posted: true, DateKey: dateKey, Hours: hours, Amount: amount}, nil
}

// ManualSalaryInput is a hand-posted adjustment: a bonus, an advance or a
// deduction (negative amount).
type ManualSalaryInput struct {
	TeacherID   uint
	Amount      int64
	Month       utils.MonthKey
	PaymentType string
	Comment     string
}

// PostManualSalary adds a manual line to the month's record, mirrors it in
// the expense ledger and debits the school budget, all in one transaction.
func (ss *SalaryService) PostManualSalary(schoolID uint, in ManualSalaryInput) error {
	if in.Amount == 0 {
		return &ValidationError{Message: "amount must be non-zero"}
	}
	if in.PaymentType != "" && !utils.IsValidPaymentMethod(in.PaymentType) {
		return &ValidationError{Message: "unknown payment method"}
	}

	var teacher models.Teacher
	if err := ss.DB.Where("id = ? AND school_id = ?", in.TeacherID, schoolID).First(&teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return ss.DB.Transaction(func(tx *gorm.DB) error {
		record, err := ensureRecord(tx, schoolID, &teacher, in.Month)
		if err != nil {
			return err
		}

		log := models.SalaryLog{
			SalaryRecordID: record.ID,
			Date:           time.Now(),
			Amount:         in.Amount,
			Reason:         models.SalaryReasonManual,
		}
		if in.PaymentType != "" {
			log.PaymentType = &in.PaymentType
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.SalaryRecord{}).Where("id = ?", record.ID).
			Update("total_amount", gorm.Expr("total_amount + ?", in.Amount)).Error; err != nil {
			return err
		}

		method := in.PaymentType
		if method == "" {
			method = "cash"
		}
		expense := models.Expense{
			SchoolID: schoolID,
			Name:     "Salary: " + teacher.FullName(),
			Category: "salary",
			Amount:   in.Amount,
			Method:   method,
			Comment:  in.Comment,
		}
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}

		return tx.Model(&models.School{}).Where("id = ?", schoolID).
			Update("budget", gorm.Expr("budget - ?", in.Amount)).Error
	})
}

// SubstitutionInput records teacher A covering teacher B's lessons
type SubstitutionInput struct {
	TeacherID   uint
	CoTeacherID uint
	Month       utils.MonthKey
	LessonCount int
}

// RecordSubstitution writes the paired side-ledger rows: a charge against
// the absent teacher and a credit for the covering one, priced at each
// teacher's own hourly rate. The rows never touch SalaryRecord totals.
func (ss *SalaryService) RecordSubstitution(schoolID uint, in SubstitutionInput) error {
	if in.LessonCount <= 0 {
		return &ValidationError{Message: "lesson count must be positive"}
	}
	if in.TeacherID == in.CoTeacherID {
		return &ValidationError{Message: "a teacher cannot substitute for themselves"}
	}

	var absent, covering models.Teacher
	if err := ss.DB.Where("id = ? AND school_id = ?", in.TeacherID, schoolID).First(&absent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := ss.DB.Where("id = ? AND school_id = ?", in.CoTeacherID, schoolID).First(&covering).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return ss.DB.Transaction(func(tx *gorm.DB) error {
		charge := models.TeacherSubstitution{
			SchoolID:    schoolID,
			TeacherID:   absent.ID,
			CoTeacherID: covering.ID,
			Month:       in.Month.String(),
			LessonCount: in.LessonCount,
			ExtraCharge: -absent.HourlyRate * int64(in.LessonCount),
		}
		if err := tx.Create(&charge).Error; err != nil {
			return err
		}
		credit := models.TeacherSubstitution{
			SchoolID:    schoolID,
			TeacherID:   covering.ID,
			CoTeacherID: absent.ID,
			Month:       in.Month.String(),
			LessonCount: in.LessonCount,
			ExtraCharge: covering.HourlyRate * int64(in.LessonCount),
		}
		return tx.Create(&credit).Error
	})
}

// MonthSalary is one teacher's month: accrued total plus substitution net
type MonthSalary struct {
	TeacherID       uint           `json:"teacher_id"`
	TeacherFullname string         `json:"teacher_fullname"`
	Month           utils.MonthKey `json:"month"`
	TotalAmount     int64          `json:"total_amount"`
	SubstitutionNet int64          `json:"substitution_net"`
	Payable         int64          `json:"payable"`
}

// MonthSummary lists every teacher's salary state for a month. Teachers
// with no record that month are omitted.
func (ss *SalaryService) MonthSummary(schoolID uint, month utils.MonthKey) ([]MonthSalary, error) {
	var records []models.SalaryRecord
	if err := ss.DB.Where("school_id = ? AND payment_month = ?", schoolID, month.String()).
		Order("teacher_fullname ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	type subRow struct {
		TeacherID uint
		Net       int64
	}
	var subs []subRow
	if err := ss.DB.Model(&models.TeacherSubstitution{}).
		Select("teacher_id, SUM(extra_charge) AS net").
		Where("school_id = ? AND month = ?", schoolID, month.String()).
		Group("teacher_id").Scan(&subs).Error; err != nil {
		return nil, err
	}
	netByTeacher := make(map[uint]int64, len(subs))
	for _, s := range subs {
		netByTeacher[s.TeacherID] = s.Net
	}

	out := make([]MonthSalary, 0, len(records))
	for _, r := range records {
		net := netByTeacher[r.TeacherID]
		out = append(out, MonthSalary{
			TeacherID:       r.TeacherID,
			TeacherFullname: r.TeacherFullname,
			Month:           month,
			TotalAmount:     r.TotalAmount,
			SubstitutionNet: net,
			Payable:         r.TotalAmount + net,
		})
	}
	return out, nil
}

// TeacherMonthDetail returns the record with its accrual lines
func (ss *SalaryService) TeacherMonthDetail(schoolID, teacherID uint, month utils.MonthKey) (*models.SalaryRecord, error) {
	var record models.SalaryRecord
	err := ss.DB.Preload("Logs", func(db *gorm.DB) *gorm.DB {
		return db.Order("salary_logs.id ASC")
	}).Where("school_id = ? AND teacher_id = ? AND payment_month = ?", schoolID, teacherID, month.String()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// TeacherHistory lists a teacher's records, newest month first
func (ss *SalaryService) TeacherHistory(schoolID, teacherID uint) ([]models.SalaryRecord, error) {
	var records []models.SalaryRecord
	err := ss.DB.Where("school_id = ? AND teacher_id = ?", schoolID, teacherID).
		Order("payment_month DESC").Find(&records).Error
	return records, err
}

// Substitutions lists the side-ledger rows for a month
func (ss *SalaryService) Substitutions(schoolID uint, month utils.MonthKey) ([]models.TeacherSubstitution, error) {
	var rows []models.TeacherSubstitution
	err := ss.DB.Where("school_id = ? AND month = ?", schoolID, month.String()).
		Order("id ASC").Find(&rows).Error
	return rows, err
}
