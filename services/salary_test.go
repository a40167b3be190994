package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"sata_school_go/models"

	"gorm.io/gorm"
)

func TestDayAccrual(t *testing.T) {
	sched := models.WeekSchedule{
		Monday:    2,
		Tuesday:   2,
		Wednesday: 0,
		Thursday:  3,
		Friday:    2,
		Saturday:  1,
	}

	tests := []struct {
		name       string
		day        time.Weekday
		rate       int64
		wantHours  int
		wantAmount int64
		wantSkip   string
	}{
		{"regular weekday", time.Monday, 50000, 2, 100000, ""},
		{"longer day", time.Thursday, 50000, 3, 150000, ""},
		{"saturday counts", time.Saturday, 50000, 1, 50000, ""},
		{"sunday reports rest day", time.Sunday, 50000, 0, 0, SkipRestDay},
		{"day off reports unscheduled", time.Wednesday, 50000, 0, 0, SkipNoScheduledHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, amount, skip := dayAccrual(tt.rate, sched, tt.day)
			if skip != tt.wantSkip || hours != tt.wantHours || amount != tt.wantAmount {
				t.Errorf("dayAccrual(%v) = (%d, %d, %q), want (%d, %d, %q)",
					tt.day, hours, amount, skip, tt.wantHours, tt.wantAmount, tt.wantSkip)
			}
		})
	}
}

func TestDayAccrualWeekTotal(t *testing.T) {
	// a full scanned week at rate 50000 with 2h every working day:
	// six candidate days, Sunday excluded, 12h total
	sched := models.WeekSchedule{Monday: 2, Tuesday: 2, Wednesday: 2, Thursday: 2, Friday: 2, Saturday: 2}

	var total int64
	for d := time.Sunday; d <= time.Saturday; d++ {
		_, amount, skip := dayAccrual(50000, sched, d)
		if skip == "" {
			total += amount
		}
	}
	if total != 600000 {
		t.Errorf("week total = %d, want 600000", total)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", gorm.ErrDuplicatedKey, true},
		{"mysql message", fmt.Errorf("Error 1062 (23000): Duplicate entry '3-2024-03-04' for key 'idx_salary_log_day'"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKey(tt.err); got != tt.want {
				t.Errorf("isDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
