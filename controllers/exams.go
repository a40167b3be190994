package controllers

import (
	"time"

	"sata_school_go/services"
	"sata_school_go/utils"

	"github.com/gofiber/fiber/v2"
)

type ExamController struct {
	Exams *services.ExamService
}

func NewExamController(exams *services.ExamService) *ExamController {
	return &ExamController{Exams: exams}
}

type createSessionRequest struct {
	Type      string `json:"type" validate:"required,oneof=monthly quarterly yearly"`
	Year      int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Month     *int   `json:"month"`
	Quarter   *int   `json:"quarter"`
	GroupID   uint   `json:"group_id" validate:"required"`
	SubjectID uint   `json:"subject_id" validate:"required"`
	MaxScore  int    `json:"max_score"`
}

// CreateSession opens a scoring session for a group and subject
func (ec *ExamController) CreateSession(c *fiber.Ctx) error {
	schoolID, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	session, err := ec.Exams.CreateSession(schoolID, services.SessionInput{
		Type:      req.Type,
		Year:      req.Year,
		Month:     req.Month,
		Quarter:   req.Quarter,
		GroupID:   req.GroupID,
		SubjectID: req.SubjectID,
		MaxScore:  req.MaxScore,
		CreatedBy: actor.ActorID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

// GetSessions lists sessions for a year, optionally filtered by type
func (ec *ExamController) GetSessions(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	year := c.QueryInt("year", time.Now().Year())

	sessions, err := ec.Exams.ListSessions(schoolID, year, c.Query("type"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"year": year, "sessions": sessions})
}

// GetSessionResults returns a session with its score rows
func (ec *ExamController) GetSessionResults(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	sessionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	out, err := ec.Exams.SessionResults(schoolID, sessionID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(out)
}

type submitResultsRequest struct {
	Results []services.ResultInput `json:"results" validate:"required,min=1"`
}

// SubmitResults applies a score sheet to a session. A locked session
// answers 423 and the sheet is applied all-or-nothing.
func (ec *ExamController) SubmitResults(c *fiber.Ctx) error {
	schoolID, actor, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	sessionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	var req submitResultsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if errs := utils.ValidateStruct(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}

	if err := ec.Exams.SubmitResults(schoolID, sessionID, req.Results, actor.ActorID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Results saved", "count": len(req.Results)})
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

// SetLock locks or unlocks a session against further edits
func (ec *ExamController) SetLock(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	sessionID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	var req lockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ec.Exams.SetLocked(schoolID, sessionID, req.Locked); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session_id": sessionID, "locked": req.Locked})
}

// GetStudentHistory lists every score a student has received
func (ec *ExamController) GetStudentHistory(c *fiber.Ctx) error {
	schoolID, _, err := actorSchool(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	studentID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	results, err := ec.Exams.StudentExamHistory(schoolID, studentID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"results": results})
}
