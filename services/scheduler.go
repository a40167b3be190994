package services

import (
	"time"

	"sata_school_go/database"
	"sata_school_go/models"
	"sata_school_go/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the time-driven jobs: closing attendance days and log
// maintenance. One instance per process.
type Scheduler struct {
	cron       *cron.Cron
	attendance *AttendanceService
	archive    *LogArchiveService
	tz         *time.Location
}

func NewScheduler(attendance *AttendanceService, archive *LogArchiveService, tz *time.Location) *Scheduler {
	if tz == nil {
		tz = time.UTC
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(tz)),
		attendance: attendance,
		archive:    archive,
		tz:         tz,
	}
}

// Start registers the jobs and launches the cron loop
func (s *Scheduler) Start() error {
	// Close the attendance day shortly before midnight so everyone who
	// never scanned gets an absent row
	if _, err := s.cron.AddFunc("55 23 * * *", s.closeAttendanceDays); err != nil {
		return err
	}

	// Nightly log flush and archive
	if _, err := s.cron.AddFunc("30 2 * * *", func() {
		if err := s.archive.FlushCachedLogsToDatabase(); err != nil {
			logrus.WithError(err).Warn("scheduled log flush failed")
		}
		if err := s.archive.ArchiveOldLogs(30); err != nil {
			logrus.WithError(err).Warn("scheduled log archive failed")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	logrus.Info("scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// closeAttendanceDays marks absentees for today in every school. Sunday is
// the rest day; nobody is marked absent on it.
func (s *Scheduler) closeAttendanceDays() {
	now := time.Now().In(s.tz)
	if now.Weekday() == time.Sunday {
		return
	}
	dateKey := utils.DateKey(now)

	var schools []models.School
	if err := database.DB.Find(&schools).Error; err != nil {
		logrus.WithError(err).Error("close attendance: listing schools failed")
		return
	}

	for _, school := range schools {
		marked, err := s.attendance.CloseDay(school.ID, dateKey)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"school_id": school.ID,
				"date_key":  dateKey,
			}).WithError(err).Error("close attendance day failed")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"school_id": school.ID,
			"date_key":  dateKey,
			"marked":    marked,
		}).Info("attendance day closed")
	}
}
