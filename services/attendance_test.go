package services

import (
	"errors"
	"testing"
	"time"

	"sata_school_go/models"
)

func entryAt(entered time.Time) *models.AttendanceEntry {
	e := &models.AttendanceEntry{Status: models.AttendanceArrived}
	e.EnteredAt = &entered
	return e
}

func closedEntry(entered, exited time.Time) *models.AttendanceEntry {
	e := entryAt(entered)
	e.ExitedAt = &exited
	e.Status = models.AttendanceDeparted
	return e
}

func TestEvaluateScanFirstOfDay(t *testing.T) {
	now := date(2024, time.March, 4).Add(8 * time.Hour)
	action, err := evaluateScan(nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != scanEnter {
		t.Errorf("action = %v, want scanEnter", action)
	}
}

func TestEvaluateScanDebounce(t *testing.T) {
	base := date(2024, time.March, 4).Add(8 * time.Hour)

	tests := []struct {
		name     string
		elapsed  time.Duration
		wantSoon bool
	}{
		{"immediate double read", 2 * time.Second, true},
		{"just inside the window", 59 * time.Second, true},
		{"exactly at the window", 60 * time.Second, false},
		{"well past the window", 3 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluateScan(entryAt(base), base.Add(tt.elapsed))
			var soon *TooSoonError
			gotSoon := errors.As(err, &soon)
			if gotSoon != tt.wantSoon {
				t.Fatalf("elapsed %v: TooSoon = %v, want %v (err %v)", tt.elapsed, gotSoon, tt.wantSoon, err)
			}
			if gotSoon && soon.WaitSeconds <= 0 {
				t.Errorf("WaitSeconds = %d, want positive", soon.WaitSeconds)
			}
		})
	}
}

func TestEvaluateScanExitDwell(t *testing.T) {
	base := date(2024, time.March, 4).Add(8 * time.Hour)

	tests := []struct {
		name       string
		elapsed    time.Duration
		wantAction scanAction
		wantDwell  bool
	}{
		{"between debounce and dwell", 90 * time.Second, 0, true},
		{"one second short of dwell", 5*time.Minute - time.Second, 0, true},
		{"exactly at dwell", 5 * time.Minute, scanExit, false},
		{"long stay", 3 * time.Hour, scanExit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := evaluateScan(entryAt(base), base.Add(tt.elapsed))
			var dwell *MinimumDwellError
			gotDwell := errors.As(err, &dwell)
			if gotDwell != tt.wantDwell {
				t.Fatalf("elapsed %v: dwell rejection = %v, want %v (err %v)", tt.elapsed, gotDwell, tt.wantDwell, err)
			}
			if !tt.wantDwell && action != tt.wantAction {
				t.Errorf("action = %v, want %v", action, tt.wantAction)
			}
		})
	}
}

func TestEvaluateScanReentry(t *testing.T) {
	entered := date(2024, time.March, 4).Add(8 * time.Hour)
	exited := entered.Add(4 * time.Hour)
	last := closedEntry(entered, exited)

	t.Run("too soon after exit", func(t *testing.T) {
		_, err := evaluateScan(last, exited.Add(10*time.Second))
		var soon *TooSoonError
		if !errors.As(err, &soon) {
			t.Fatalf("expected TooSoonError, got %v", err)
		}
	})

	t.Run("normal re-entry", func(t *testing.T) {
		action, err := evaluateScan(last, exited.Add(2*time.Minute))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if action != scanEnter {
			t.Errorf("action = %v, want scanEnter", action)
		}
	})
}

func TestSplitRoster(t *testing.T) {
	entered := date(2024, time.March, 4).Add(8 * time.Hour)
	entries := []models.AttendanceEntry{
		{SchoolID: 7, PersonKind: models.PersonStudent, PersonID: 1, PersonFullname: "Aziz Karimov", EnteredAt: &entered, Status: models.AttendanceArrived},
		{SchoolID: 7, PersonKind: models.PersonTeacher, PersonID: 2, PersonFullname: "Dilnoza Rashidova", EnteredAt: &entered, Status: models.AttendanceArrived},
		{SchoolID: 7, PersonKind: models.PersonStudent, PersonID: 3, PersonFullname: "Malika Yusupova", Status: models.AttendanceAbsent},
	}

	roster := splitRoster("2024-03-04", entries)
	if roster.DateKey != "2024-03-04" {
		t.Errorf("DateKey = %q, want 2024-03-04", roster.DateKey)
	}
	if len(roster.Students) != 2 || len(roster.Teachers) != 1 {
		t.Fatalf("split = %d students / %d teachers, want 2/1", len(roster.Students), len(roster.Teachers))
	}
	if roster.Students[0].PersonFullname != "Aziz Karimov" || roster.Students[1].PersonFullname != "Malika Yusupova" {
		t.Errorf("student order not preserved: %q, %q", roster.Students[0].PersonFullname, roster.Students[1].PersonFullname)
	}
	if roster.Teachers[0].SchoolID != 7 {
		t.Errorf("teacher SchoolID = %d, want 7", roster.Teachers[0].SchoolID)
	}

	empty := splitRoster("2024-03-05", nil)
	if empty.Students == nil || empty.Teachers == nil {
		t.Error("empty roster must keep non-nil slices")
	}
}

func TestAbsentConflict(t *testing.T) {
	if err := absentConflict(0, "2024-03-04"); err != nil {
		t.Fatalf("no entries: unexpected error %v", err)
	}
	err := absentConflict(1, "2024-03-04")
	var already *AlreadyRecordedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyRecordedError, got %v", err)
	}
	if already.DateKey != "2024-03-04" {
		t.Errorf("DateKey = %q, want 2024-03-04", already.DateKey)
	}
}

func TestEvaluateScanAbsentMarkerUpgrades(t *testing.T) {
	// cron marked the person absent, then they actually showed up
	marker := &models.AttendanceEntry{Status: models.AttendanceAbsent}
	action, err := evaluateScan(marker, date(2024, time.March, 4).Add(9*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != scanEnter {
		t.Errorf("action = %v, want scanEnter", action)
	}
}
