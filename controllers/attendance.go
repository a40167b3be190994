package controllers

import (
	"time"

	"sata_school_go/models"
	"sata_school_go/services"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct {
	Attendance *services.AttendanceService
}

func NewAttendanceController(attendance *services.AttendanceService) *AttendanceController {
	return &AttendanceController{Attendance: attendance}
}

type scanRequest struct {
	EmployeeNo string `json:"employee_no" validate:"required"`
	Timestamp  string `json:"timestamp"`
}

// PostScan ingests one badge scan over HTTP. The gate devices that cannot
// hold a websocket open fall back to this endpoint.
func (ac *AttendanceController) PostScan(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	var at time.Time
	if req.Timestamp != "" {
		at, err = time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Timestamp must be RFC3339"})
		}
	}

	result, err := ac.Attendance.RecordScan(schoolID, req.EmployeeNo, at)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"scan": result})
}

// GetDay returns the student and teacher rosters for one day
func (ac *AttendanceController) GetDay(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	dateKey := c.Query("date")
	if dateKey == "" {
		dateKey = utils.DateKey(time.Now())
	}

	roster, err := ac.Attendance.DayAttendance(schoolID, dateKey)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(roster)
}

// GetStudentMonth returns one student's entries for a month
func (ac *AttendanceController) GetStudentMonth(c *fiber.Ctx) error {
	return ac.personMonth(c, models.PersonStudent)
}

// GetTeacherMonth returns one teacher's entries for a month
func (ac *AttendanceController) GetTeacherMonth(c *fiber.Ctx) error {
	return ac.personMonth(c, models.PersonTeacher)
}

func (ac *AttendanceController) personMonth(c *fiber.Ctx, kind string) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	personID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}
	month, err := queryMonth(c, "month")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month, want MM-YYYY"})
	}

	entries, err := ac.Attendance.PersonMonthHistory(schoolID, kind, personID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	stats, err := ac.Attendance.PersonMonthStats(schoolID, kind, personID, month)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"month":   month.Legacy(),
		"entries": entries,
		"stats":   stats,
	})
}

type markAbsentRequest struct {
	PersonKind string `json:"person_kind" validate:"required,oneof=student teacher"`
	PersonID   uint   `json:"person_id" validate:"required"`
	Date       string `json:"date"`
}

// MarkAbsent records a terminal absence by hand, for days the person is
// known to be away before the nightly close runs
func (ac *AttendanceController) MarkAbsent(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req markAbsentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}
	dateKey := req.Date
	if dateKey == "" {
		dateKey = utils.DateKey(time.Now())
	}

	if err := ac.Attendance.MarkAbsent(schoolID, req.PersonKind, req.PersonID, dateKey); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"date_key": dateKey, "status": "absent"})
}

// CloseDay marks everyone without a scan absent. The nightly job does this
// automatically; the endpoint exists for catch-up after device outages.
func (ac *AttendanceController) CloseDay(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	dateKey := c.Query("date")
	if dateKey == "" {
		dateKey = utils.DateKey(time.Now())
	}

	marked, err := ac.Attendance.CloseDay(schoolID, dateKey)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"date_key": dateKey, "marked_absent": marked})
}
