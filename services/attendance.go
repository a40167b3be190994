package services

import (
	"errors"
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// ScanDebounce absorbs double reads from the badge reader
	ScanDebounce = 60 * time.Second
	// MinExitDwell is the shortest stay that still counts as a visit
	MinExitDwell = 5 * time.Minute
)

type scanAction int

const (
	scanEnter scanAction = iota
	scanExit
)

// AttendanceService records gate scans and day rosters. Teacher arrivals
// feed the salary accrual engine.
type AttendanceService struct {
	DB     *gorm.DB
	Salary *SalaryService
	TZ     *time.Location
}

func NewAttendanceService(salary *SalaryService, tz *time.Location) *AttendanceService {
	if tz == nil {
		tz = time.UTC
	}
	return &AttendanceService{DB: database.DB, Salary: salary, TZ: tz}
}

// evaluateScan decides what a scan means given the person's latest entry
// for the day. last is nil when the person has not scanned today.
func evaluateScan(last *models.AttendanceEntry, now time.Time) (scanAction, error) {
	if last == nil {
		return scanEnter, nil
	}

	if last.ExitedAt != nil {
		// closed visit: another scan starts a new one, debounced against
		// the exit moment
		if since := now.Sub(*last.ExitedAt); since < ScanDebounce {
			return 0, &TooSoonError{WaitSeconds: int((ScanDebounce - since).Seconds()) + 1}
		}
		return scanEnter, nil
	}

	if last.EnteredAt == nil {
		// absent marker row: a real scan upgrades it to an entry
		return scanEnter, nil
	}

	since := now.Sub(*last.EnteredAt)
	if since < ScanDebounce {
		return 0, &TooSoonError{WaitSeconds: int((ScanDebounce - since).Seconds()) + 1}
	}
	if since < MinExitDwell {
		left := int((MinExitDwell - since).Minutes()) + 1
		return 0, &MinimumDwellError{MinutesLeft: left}
	}
	return scanExit, nil
}

// ScanResult is what the gate (and any watching dashboard) gets back
type ScanResult struct {
	PersonKind string    `json:"person_kind"`
	PersonID   uint      `json:"person_id"`
	FullName   string    `json:"full_name"`
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
	DateKey    string    `json:"date_key"`
}

// resolvePerson maps a badge number to a student or teacher of the school
func (as *AttendanceService) resolvePerson(schoolID uint, employeeNo string) (kind string, id uint, fullName string, err error) {
	var student models.Student
	serr := as.DB.Where("school_id = ? AND employee_no = ?", schoolID, employeeNo).First(&student).Error
	if serr == nil {
		if !student.IsActive {
			return "", 0, "", ErrForbidden
		}
		return models.PersonStudent, student.ID, student.FullName(), nil
	}
	if !errors.Is(serr, gorm.ErrRecordNotFound) {
		return "", 0, "", serr
	}

	var teacher models.Teacher
	terr := as.DB.Where("school_id = ? AND employee_no = ?", schoolID, employeeNo).First(&teacher).Error
	if terr == nil {
		return models.PersonTeacher, teacher.ID, teacher.FullName(), nil
	}
	if errors.Is(terr, gorm.ErrRecordNotFound) {
		return "", 0, "", ErrNotFound
	}
	return "", 0, "", terr
}

// RecordScan processes one badge read. Entry and exit share the same path:
// the person's latest row for the day decides which it is. A first teacher
// arrival of the day also posts the day's salary accrual.
func (as *AttendanceService) RecordScan(schoolID uint, employeeNo string, at time.Time) (*ScanResult, error) {
	if at.IsZero() {
		at = time.Now()
	}
	at = at.In(as.TZ)
	dateKey := utils.DateKey(at)

	kind, personID, fullName, err := as.resolvePerson(schoolID, employeeNo)
	if err != nil {
		return nil, err
	}

	var result ScanResult
	var teacherEntered bool

	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, as.TZ)

	err = as.DB.Transaction(func(tx *gorm.DB) error {
		day := models.AttendanceDay{SchoolID: schoolID, DateKey: dateKey, Date: midnight}
		if err := tx.Where(models.AttendanceDay{SchoolID: schoolID, DateKey: dateKey}).
			FirstOrCreate(&day).Error; err != nil {
			return err
		}

		// lock the person's latest row so a doubled scan cannot race past
		// the debounce window
		var last models.AttendanceEntry
		var lastPtr *models.AttendanceEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("attendance_day_id = ? AND person_kind = ? AND person_id = ?", day.ID, kind, personID).
			Order("id DESC").First(&last).Error
		switch {
		case err == nil:
			lastPtr = &last
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first scan of the day
		default:
			return err
		}

		action, err := evaluateScan(lastPtr, at)
		if err != nil {
			return err
		}

		switch action {
		case scanEnter:
			if lastPtr != nil && lastPtr.Status == models.AttendanceAbsent {
				// cron marked them absent before they showed up
				entered := at
				if err := tx.Model(lastPtr).Updates(map[string]interface{}{
					"entered_at": &entered,
					"status":     models.AttendanceArrived,
				}).Error; err != nil {
					return err
				}
			} else {
				entered := at
				entry := models.AttendanceEntry{
					AttendanceDayID: day.ID,
					SchoolID:        schoolID,
					PersonKind:      kind,
					PersonID:        personID,
					PersonFullname:  fullName,
					EnteredAt:       &entered,
					Status:          models.AttendanceArrived,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}
			result.Action = "entered"
			teacherEntered = kind == models.PersonTeacher
		case scanExit:
			exited := at
			if err := tx.Model(lastPtr).Updates(map[string]interface{}{
				"exited_at": &exited,
				"status":    models.AttendanceDeparted,
			}).Error; err != nil {
				return err
			}
			result.Action = "departed"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.PersonKind = kind
	result.PersonID = personID
	result.FullName = fullName
	result.At = at
	result.DateKey = dateKey

	if teacherEntered && as.Salary != nil {
		outcome, err := as.Salary.AccrueFromAttendance(schoolID, personID, at)
		switch {
		case err != nil:
			// accrual problems must not bounce the gate; the unique day
			// index keeps a retry safe
			var already *AlreadyRecordedError
			if !errors.As(err, &already) {
				logrus.WithFields(logrus.Fields{
					"school_id":  schoolID,
					"teacher_id": personID,
					"date_key":   dateKey,
				}).WithError(err).Error("salary accrual failed after teacher scan")
			}
		case !outcome.Posted:
			logrus.WithFields(logrus.Fields{
				"school_id":  schoolID,
				"teacher_id": personID,
				"date_key":   dateKey,
				"reason":     outcome.SkipReason,
			}).Info("salary accrual skipped")
		}
	}

	return &result, nil
}

// DayRoster is the full picture of one school day
type DayRoster struct {
	DateKey  string                   `json:"date_key"`
	Students []models.AttendanceEntry `json:"students"`
	Teachers []models.AttendanceEntry `json:"teachers"`
}

// splitRoster partitions a day's entries into student and teacher lists,
// preserving scan order
func splitRoster(dateKey string, entries []models.AttendanceEntry) *DayRoster {
	roster := &DayRoster{DateKey: dateKey, Students: []models.AttendanceEntry{}, Teachers: []models.AttendanceEntry{}}
	for _, e := range entries {
		if e.PersonKind == models.PersonTeacher {
			roster.Teachers = append(roster.Teachers, e)
		} else {
			roster.Students = append(roster.Students, e)
		}
	}
	return roster
}

// DayAttendance returns all entries of a given day split by person kind.
// A day nobody scanned on yields an empty roster, not an error.
func (as *AttendanceService) DayAttendance(schoolID uint, dateKey string) (*DayRoster, error) {
	if _, err := utils.ParseDateKey(dateKey); err != nil {
		return nil, &ValidationError{Message: "bad date key: " + dateKey}
	}

	var day models.AttendanceDay
	err := as.DB.Where("school_id = ? AND date_key = ?", schoolID, dateKey).First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return splitRoster(dateKey, nil), nil
	}
	if err != nil {
		return nil, err
	}

	var entries []models.AttendanceEntry
	if err := as.DB.Where("attendance_day_id = ?", day.ID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return splitRoster(dateKey, entries), nil
}

// PersonMonthHistory lists a person's entries across one month
func (as *AttendanceService) PersonMonthHistory(schoolID uint, kind string, personID uint, month utils.MonthKey) ([]models.AttendanceEntry, error) {
	var entries []models.AttendanceEntry
	err := as.DB.
		Joins("JOIN attendance_days ON attendance_days.id = attendance_entries.attendance_day_id").
		Where("attendance_entries.school_id = ? AND attendance_entries.person_kind = ? AND attendance_entries.person_id = ?", schoolID, kind, personID).
		Where("attendance_days.date_key LIKE ?", month.String()+"-%").
		Order("attendance_days.date_key ASC").
		Find(&entries).Error
	return entries, err
}

// MonthStats summarizes one person's month
type MonthStats struct {
	Month    utils.MonthKey `json:"month"`
	Present  int            `json:"present"`
	Absent   int            `json:"absent"`
	Departed int            `json:"departed"`
}

// PersonMonthStats counts arrived/absent/departed days in a month
func (as *AttendanceService) PersonMonthStats(schoolID uint, kind string, personID uint, month utils.MonthKey) (*MonthStats, error) {
	entries, err := as.PersonMonthHistory(schoolID, kind, personID, month)
	if err != nil {
		return nil, err
	}
	stats := &MonthStats{Month: month}
	for _, e := range entries {
		switch e.Status {
		case models.AttendanceAbsent:
			stats.Absent++
		case models.AttendanceDeparted:
			stats.Present++
			stats.Departed++
		default:
			stats.Present++
		}
	}
	return stats, nil
}

// absentConflict rejects a manual absent mark once the person has any
// entry for the day, scan or marker alike. The absent state is terminal
// only for the marking path; a real scan still upgrades it.
func absentConflict(existingEntries int64, dateKey string) error {
	if existingEntries > 0 {
		return &AlreadyRecordedError{DateKey: dateKey}
	}
	return nil
}

// MarkAbsent appends a terminal absent entry for one person, with no time
// fields and no salary accrual. Refused once the person has any entry for
// the day. A later real scan still upgrades the marker into an arrival.
func (as *AttendanceService) MarkAbsent(schoolID uint, kind string, personID uint, dateKey string) error {
	dayTime, err := utils.ParseDateKey(dateKey)
	if err != nil {
		return &ValidationError{Message: "bad date key: " + dateKey}
	}

	var fullName string
	switch kind {
	case models.PersonStudent:
		var st models.Student
		if err := as.DB.Where("school_id = ? AND id = ?", schoolID, personID).First(&st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		fullName = st.FullName()
	case models.PersonTeacher:
		var tc models.Teacher
		if err := as.DB.Where("school_id = ? AND id = ?", schoolID, personID).First(&tc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		fullName = tc.FullName()
	default:
		return &ValidationError{Message: "unknown person kind: " + kind}
	}

	return as.DB.Transaction(func(tx *gorm.DB) error {
		day := models.AttendanceDay{SchoolID: schoolID, DateKey: dateKey, Date: dayTime}
		if err := tx.Where(models.AttendanceDay{SchoolID: schoolID, DateKey: dateKey}).
			FirstOrCreate(&day).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.AttendanceEntry{}).
			Where("attendance_day_id = ? AND person_kind = ? AND person_id = ?", day.ID, kind, personID).
			Count(&count).Error; err != nil {
			return err
		}
		if err := absentConflict(count, dateKey); err != nil {
			return err
		}

		entry := models.AttendanceEntry{
			AttendanceDayID: day.ID,
			SchoolID:        schoolID,
			PersonKind:      kind,
			PersonID:        personID,
			PersonFullname:  fullName,
			Status:          models.AttendanceAbsent,
		}
		return tx.Create(&entry).Error
	})
}

// CloseDay marks every active person without an entry as absent. Run by
// the scheduler at end of day; safe to run twice.
func (as *AttendanceService) CloseDay(schoolID uint, dateKey string) (int, error) {
	dayTime, err := utils.ParseDateKey(dateKey)
	if err != nil {
		return 0, &ValidationError{Message: "bad date key: " + dateKey}
	}

	marked := 0
	err = as.DB.Transaction(func(tx *gorm.DB) error {
		day := models.AttendanceDay{SchoolID: schoolID, DateKey: dateKey, Date: dayTime}
		if err := tx.Where(models.AttendanceDay{SchoolID: schoolID, DateKey: dateKey}).
			FirstOrCreate(&day).Error; err != nil {
			return err
		}

		seen := make(map[string]bool)
		var entries []models.AttendanceEntry
		if err := tx.Where("attendance_day_id = ?", day.ID).Find(&entries).Error; err != nil {
			return err
		}
		for _, e := range entries {
			seen[e.PersonKind+":"+utils.UintKey(e.PersonID)] = true
		}

		var students []models.Student
		if err := tx.Where("school_id = ? AND is_active = ?", schoolID, true).Find(&students).Error; err != nil {
			return err
		}
		for _, st := range students {
			if seen[models.PersonStudent+":"+utils.UintKey(st.ID)] {
				continue
			}
			entry := models.AttendanceEntry{
				AttendanceDayID: day.ID,
				SchoolID:        schoolID,
				PersonKind:      models.PersonStudent,
				PersonID:        st.ID,
				PersonFullname:  st.FullName(),
				Status:          models.AttendanceAbsent,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			marked++
		}

		var teachers []models.Teacher
		if err := tx.Where("school_id = ?", schoolID).Find(&teachers).Error; err != nil {
			return err
		}
		for _, tc := range teachers {
			if seen[models.PersonTeacher+":"+utils.UintKey(tc.ID)] {
				continue
			}
			entry := models.AttendanceEntry{
				AttendanceDayID: day.ID,
				SchoolID:        schoolID,
				PersonKind:      models.PersonTeacher,
				PersonID:        tc.ID,
				PersonFullname:  tc.FullName(),
				Status:          models.AttendanceAbsent,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	return marked, err
}
