package services

import (
	"errors"
	"fmt"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService owns the tuition ledger: idempotent monthly accumulation,
// debt projection and the school budget counter.
type PaymentService struct {
	DB *gorm.DB
}

func NewPaymentService() *PaymentService {
	return &PaymentService{DB: database.DB}
}

// PostPaymentInput is the normalized command for one ledger entry
type PostPaymentInput struct {
	StudentID uint
	Amount    int64
	Month     utils.MonthKey
	Method    string
}

// PaymentReceipt reports the month's running total after a successful post
type PaymentReceipt struct {
	PaymentID  uint           `json:"payment_id"`
	Month      utils.MonthKey `json:"month"`
	MonthTotal int64          `json:"month_total"`
	MonthlyFee int64          `json:"monthly_fee"`
}

// checkOverpay rejects an amount that would push the month's accumulated
// total past the monthly fee. The ledger is left untouched on rejection.
func checkOverpay(monthlyFee, alreadyPaid, amount int64) error {
	if alreadyPaid+amount > monthlyFee {
		return &OverpayError{Limit: monthlyFee, AlreadyPaid: alreadyPaid, Attempted: amount}
	}
	return nil
}

// priorMonthToCheck returns the month whose debt blocks this payment, or
// false when no check applies: the previous month is skipped when it
// precedes admission or equals the target month. The chain deliberately
// stops one month back.
func priorMonthToCheck(target, admission utils.MonthKey) (utils.MonthKey, bool) {
	prev := target.Prev()
	if prev.Before(admission) || prev == target {
		return "", false
	}
	return prev, true
}

// PostPayment validates and posts one ledger entry, atomically bumping the
// school budget in the same transaction. The legacy system wrote the ledger
// row and the budget separately; here the pair commits or fails together.
func (ps *PaymentService) PostPayment(schoolID uint, in PostPaymentInput) (*PaymentReceipt, error) {
	if in.Amount <= 0 {
		return nil, &ValidationError{Message: "amount must be positive"}
	}
	if !utils.IsValidPaymentMethod(in.Method) {
		return nil, &ValidationError{Message: "unknown payment method"}
	}

	var student models.Student
	if err := ps.DB.Where("id = ? AND school_id = ?", in.StudentID, schoolID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if student.MonthlyFee <= 0 {
		return nil, &ValidationError{Message: "student has no monthly fee configured"}
	}

	var group models.Group
	if err := ps.DB.Where("id = ? AND school_id = ?", student.GroupID, schoolID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	admission := utils.MonthKeyOf(student.AdmissionDate)
	if in.Month.Before(admission) {
		return nil, &ValidationError{Message: "student was admitted after " + in.Month.String() + "; earlier months are not payable"}
	}

	var receipt PaymentReceipt
	err := ps.DB.Transaction(func(tx *gorm.DB) error {
		// Lock the month's rows so two concurrent posts cannot both pass
		// the overpay check
		var monthPaid int64
		if err := tx.Model(&models.Payment{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND month_key = ?", student.ID, in.Month.String()).
			Select("COALESCE(SUM(amount), 0)").Scan(&monthPaid).Error; err != nil {
			return err
		}

		if err := checkOverpay(student.MonthlyFee, monthPaid, in.Amount); err != nil {
			return err
		}

		if prev, check := priorMonthToCheck(in.Month, admission); check {
			var prevPaid int64
			if err := tx.Model(&models.Payment{}).
				Where("student_id = ? AND month_key = ?", student.ID, prev.String()).
				Select("COALESCE(SUM(amount), 0)").Scan(&prevPaid).Error; err != nil {
				return err
			}
			if prevPaid < student.MonthlyFee {
				return &PriorMonthDebtError{Month: prev, Debt: student.MonthlyFee - prevPaid}
			}
		}

		payment := models.Payment{
			StudentID:       student.ID,
			SchoolID:        schoolID,
			StudentFullname: student.FullName(),
			GroupID:         group.ID,
			Amount:          in.Amount,
			MonthKey:        in.Month.String(),
			Method:          in.Method,
			PaymentDate:     time.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.School{}).Where("id = ?", schoolID).
			Update("budget", gorm.Expr("budget + ?", in.Amount)).Error; err != nil {
			return err
		}

		receipt = PaymentReceipt{
			PaymentID:  payment.ID,
			Month:      in.Month,
			MonthTotal: monthPaid + in.Amount,
			MonthlyFee: student.MonthlyFee,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// DebtLine is one (student, owed-month) pair
type DebtLine struct {
	StudentID       uint           `json:"student_id"`
	StudentFullname string         `json:"student_fullname"`
	GroupID         uint           `json:"group_id"`
	GroupName       string         `json:"group_name"`
	Month           utils.MonthKey `json:"month"`
	Paid            int64          `json:"paid"`
	MonthlyFee      int64          `json:"monthly_fee"`
	DebtAmount      int64          `json:"debt_amount"`
}

// debtMonthsFor walks months from admission to the horizon and emits one
// line per month whose accumulated payments fall short of the fee. For a
// deactivated student the walk stops before InactiveFrom.
func debtMonthsFor(student *models.Student, groupName string, paidByMonth map[utils.MonthKey]int64, horizon utils.MonthKey) []DebtLine {
	if student.MonthlyFee <= 0 {
		return nil
	}

	last := horizon
	if student.InactiveFrom != nil {
		if inactive, err := utils.ParseMonthKey(*student.InactiveFrom); err == nil {
			if stop := inactive.Prev(); stop.Before(last) {
				last = stop
			}
		}
	}

	var lines []DebtLine
	for _, m := range utils.MonthsBetween(utils.MonthKeyOf(student.AdmissionDate), last) {
		paid := paidByMonth[m]
		if paid >= student.MonthlyFee {
			continue
		}
		lines = append(lines, DebtLine{
			StudentID:       student.ID,
			StudentFullname: student.FullName(),
			GroupID:         student.GroupID,
			GroupName:       groupName,
			Month:           m,
			Paid:            paid,
			MonthlyFee:      student.MonthlyFee,
			DebtAmount:      student.MonthlyFee - paid,
		})
	}
	return lines
}

// ComputeDebts projects the debt lines of every active student as of now.
// Pure projection: nothing is cached or written.
func (ps *PaymentService) ComputeDebts(schoolID uint, now time.Time) ([]DebtLine, error) {
	var students []models.Student
	if err := ps.DB.Preload("Group").
		Where("school_id = ? AND is_active = ?", schoolID, true).
		Find(&students).Error; err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := ps.DB.Where("school_id = ?", schoolID).Find(&payments).Error; err != nil {
		return nil, err
	}

	paidByStudentMonth := make(map[uint]map[utils.MonthKey]int64)
	for _, p := range payments {
		if paidByStudentMonth[p.StudentID] == nil {
			paidByStudentMonth[p.StudentID] = make(map[utils.MonthKey]int64)
		}
		paidByStudentMonth[p.StudentID][utils.MonthKey(p.MonthKey)] += p.Amount
	}

	horizon := utils.MonthKeyOf(now)
	lines := make([]DebtLine, 0)
	for i := range students {
		st := &students[i]
		lines = append(lines, debtMonthsFor(st, st.Group.Name, paidByStudentMonth[st.ID], horizon)...)
	}
	return lines, nil
}

// StudentDebts projects the debt lines of a single student as of now.
func (ps *PaymentService) StudentDebts(schoolID, studentID uint, now time.Time) ([]DebtLine, error) {
	var student models.Student
	if err := ps.DB.Preload("Group").
		Where("id = ? AND school_id = ?", studentID, schoolID).
		First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var payments []models.Payment
	if err := ps.DB.Where("student_id = ?", student.ID).Find(&payments).Error; err != nil {
		return nil, err
	}
	paidByMonth := make(map[utils.MonthKey]int64, len(payments))
	for _, p := range payments {
		paidByMonth[utils.MonthKey(p.MonthKey)] += p.Amount
	}

	return debtMonthsFor(&student, student.Group.Name, paidByMonth, utils.MonthKeyOf(now)), nil
}

// MergedPayment is the reporting aggregate of a (student, month) pair
type MergedPayment struct {
	StudentID       uint           `json:"student_id"`
	StudentFullname string         `json:"student_fullname"`
	GroupID         uint           `json:"group_id"`
	Month           utils.MonthKey `json:"month"`
	Amount          int64          `json:"amount"`
	Method          string         `json:"method"`
	MonthlyFee      int64          `json:"monthly_fee"`
	LastPaymentAt   time.Time      `json:"last_payment_at"`
}

// dominantMethod returns the most frequent method; ties break in favor of
// the method seen first during the count pass.
func dominantMethod(methods []string) string {
	if len(methods) == 0 {
		return ""
	}
	counts := make(map[string]int, len(methods))
	var order []string
	for _, m := range methods {
		if _, seen := counts[m]; !seen {
			order = append(order, m)
		}
		counts[m]++
	}
	best := order[0]
	for _, m := range order[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}

// mergePaymentRows folds ledger rows into one aggregate per (student,
// month), keyed by ID so namesakes never share a bucket. Input order is
// preserved for the first row of each bucket.
func mergePaymentRows(payments []models.Payment) []MergedPayment {
	type bucket struct {
		agg     MergedPayment
		methods []string
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, p := range payments {
		key := utils.UintKey(p.StudentID) + "/" + p.MonthKey
		b, ok := buckets[key]
		if !ok {
			b = &bucket{agg: MergedPayment{
				StudentID:       p.StudentID,
				StudentFullname: p.StudentFullname,
				GroupID:         p.GroupID,
				Month:           utils.MonthKey(p.MonthKey),
				MonthlyFee:      p.Student.MonthlyFee,
			}}
			buckets[key] = b
			order = append(order, key)
		}
		b.agg.Amount += p.Amount
		b.methods = append(b.methods, p.Method)
		if p.PaymentDate.After(b.agg.LastPaymentAt) {
			b.agg.LastPaymentAt = p.PaymentDate
		}
	}

	out := make([]MergedPayment, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		b.agg.Method = dominantMethod(b.methods)
		out = append(out, b.agg)
	}
	return out
}

// MergedPayments groups raw ledger rows by (student, month) for display.
// This is a reporting view; the ledger itself stays row-per-payment.
func (ps *PaymentService) MergedPayments(schoolID uint) ([]MergedPayment, error) {
	var payments []models.Payment
	if err := ps.DB.Preload("Student").
		Where("school_id = ?", schoolID).
		Order("id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return mergePaymentRows(payments), nil
}

// DebtStatus answers "may this student pay for this month right now"
type DebtStatus struct {
	Debt         bool            `json:"debt"`
	InvalidMonth bool            `json:"invalid_month,omitempty"`
	DebtMonth    *utils.MonthKey `json:"debt_month,omitempty"`
	DebtAmount   int64           `json:"debt_amount,omitempty"`
}

// CheckDebtStatus reports whether the immediately preceding month is still
// outstanding for the target month. Inactive students report no debt.
func (ps *PaymentService) CheckDebtStatus(schoolID, studentID uint, month utils.MonthKey) (*DebtStatus, error) {
	var student models.Student
	if err := ps.DB.Where("id = ? AND school_id = ?", studentID, schoolID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !student.IsActive {
		return &DebtStatus{Debt: false}, nil
	}

	admission := utils.MonthKeyOf(student.AdmissionDate)
	if month.Before(admission) {
		return &DebtStatus{Debt: true, InvalidMonth: true}, nil
	}

	prev, check := priorMonthToCheck(month, admission)
	if !check {
		return &DebtStatus{Debt: false}, nil
	}

	var prevPaid int64
	if err := ps.DB.Model(&models.Payment{}).
		Where("student_id = ? AND month_key = ?", student.ID, prev.String()).
		Select("COALESCE(SUM(amount), 0)").Scan(&prevPaid).Error; err != nil {
		return nil, err
	}

	if prevPaid < student.MonthlyFee {
		return &DebtStatus{Debt: true, DebtMonth: &prev, DebtAmount: student.MonthlyFee - prevPaid}, nil
	}
	return &DebtStatus{Debt: false}, nil
}

// MonthTotals is the per-month payment breakdown by method
type MonthTotals struct {
	Month    utils.MonthKey `json:"month"`
	Cash     int64          `json:"cash"`
	Card     int64          `json:"card"`
	Transfer int64          `json:"transfer"`
	Total    int64          `json:"total"`
}

// MonthlyPaymentSummary returns twelve rows, one per calendar month of the
// given year, with totals broken down by method.
func (ps *PaymentService) MonthlyPaymentSummary(schoolID uint, year int) ([]MonthTotals, error) {
	type row struct {
		MonthKey string
		Method   string
		Sum      int64
	}
	var rows []row
	if err := ps.DB.Model(&models.Payment{}).
		Select("month_key, method, SUM(amount) AS sum").
		Where("school_id = ? AND month_key LIKE ?", schoolID, fmt.Sprintf("%04d-%%", year)).
		Group("month_key, method").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]MonthTotals, 12)
	index := make(map[string]*MonthTotals, 12)
	for i := 0; i < 12; i++ {
		mk := utils.MonthKeyOf(time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC))
		out[i] = MonthTotals{Month: mk}
		index[mk.String()] = &out[i]
	}

	for _, r := range rows {
		target, ok := index[r.MonthKey]
		if !ok {
			continue
		}
		switch r.Method {
		case "cash":
			target.Cash = r.Sum
		case "card":
			target.Card = r.Sum
		case "transfer":
			target.Transfer = r.Sum
		}
		target.Total = target.Cash + target.Card + target.Transfer
	}
	return out, nil
}

// DayTotal is the collected sum for one calendar day
type DayTotal struct {
	Date string `json:"date"`
	Sum  int64  `json:"sum"`
}

// DailyPaymentSummary returns one row per day of the month with the sum
// collected that day (by payment date, not target month).
func (ps *PaymentService) DailyPaymentSummary(schoolID uint, month utils.MonthKey) ([]DayTotal, error) {
	start := month.Time()
	end := month.Next().Time()

	type row struct {
		Day int
		Sum int64
	}
	var rows []row
	if err := ps.DB.Model(&models.Payment{}).
		Select("DAY(payment_date) AS day, SUM(amount) AS sum").
		Where("school_id = ? AND payment_date >= ? AND payment_date < ?", schoolID, start, end).
		Group("DAY(payment_date)").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	daysInMonth := end.AddDate(0, 0, -1).Day()
	out := make([]DayTotal, daysInMonth)
	for i := 0; i < daysInMonth; i++ {
		out[i] = DayTotal{Date: utils.DateKey(start.AddDate(0, 0, i))}
	}
	for _, r := range rows {
		if r.Day >= 1 && r.Day <= daysInMonth {
			out[r.Day-1].Sum = r.Sum
		}
	}
	return out, nil
}

// PaymentLog returns the raw ledger rows for the school, newest first
func (ps *PaymentService) PaymentLog(schoolID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := ps.DB.Where("school_id = ?", schoolID).Order("id DESC").Find(&payments).Error
	return payments, err
}

// StudentPayments returns the ledger rows of one student
func (ps *PaymentService) StudentPayments(schoolID, studentID uint) ([]models.Payment, error) {
	var student models.Student
	if err := ps.DB.Where("id = ? AND school_id = ?", studentID, schoolID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var payments []models.Payment
	err := ps.DB.Where("student_id = ?", studentID).Order("id ASC").Find(&payments).Error
	return payments, err
}

// verifyExtraPassword gates privileged ledger mutations
func (ps *PaymentService) verifyExtraPassword(schoolID uint, password string) error {
	var school models.School
	if err := ps.DB.First(&school, schoolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if utils.CheckPassword(password, school.ExtraPassword) != nil {
		return &WrongPasswordError{}
	}
	return nil
}

// EditPayment changes the amount/method of an existing ledger row. The
// budget counter is adjusted by the delta in the same transaction.
func (ps *PaymentService) EditPayment(schoolID, paymentID uint, password string, newAmount int64, newMethod string) error {
	if err := ps.verifyExtraPassword(schoolID, password); err != nil {
		return err
	}
	if newAmount <= 0 {
		return &ValidationError{Message: "amount must be positive"}
	}
	if newMethod != "" && !utils.IsValidPaymentMethod(newMethod) {
		return &ValidationError{Message: "unknown payment method"}
	}

	return ps.DB.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND school_id = ?", paymentID, schoolID).
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		delta := newAmount - payment.Amount
		updates := map[string]interface{}{"amount": newAmount}
		if newMethod != "" {
			updates["method"] = newMethod
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return err
		}
		if delta != 0 {
			if err := tx.Model(&models.School{}).Where("id = ?", schoolID).
				Update("budget", gorm.Expr("budget + ?", delta)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePayment removes a ledger row and refunds its amount from the budget
func (ps *PaymentService) DeletePayment(schoolID, paymentID uint, password string) error {
	if err := ps.verifyExtraPassword(schoolID, password); err != nil {
		return err
	}

	return ps.DB.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND school_id = ?", paymentID, schoolID).
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		return tx.Model(&models.School{}).Where("id = ?", schoolID).
			Update("budget", gorm.Expr("budget - ?", payment.Amount)).Error
	})
}
