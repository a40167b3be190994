package services

import (
	"errors"
	"fmt"

	"sata_school_go/database"
	"sata_school_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExamService manages scoring sessions and their bulk result sheets
type ExamService struct {
	DB *gorm.DB
}

func NewExamService() *ExamService {
	return &ExamService{DB: database.DB}
}

// SessionInput describes a new scoring session. Month applies to monthly
// sessions, Quarter to quarterly ones; yearly sessions carry neither.
type SessionInput struct {
	Type      string
	Year      int
	Month     *int
	Quarter   *int
	GroupID   uint
	SubjectID uint
	MaxScore  int
	CreatedBy uint
}

// normalizeSessionInput enforces the type/period pairing and clears the
// field the type does not use, so the unique session key stays canonical.
func normalizeSessionInput(in *SessionInput) error {
	switch in.Type {
	case models.ExamMonthly:
		if in.Month == nil || *in.Month < 1 || *in.Month > 12 {
			return &ValidationError{Message: "monthly session needs a month between 1 and 12"}
		}
		in.Quarter = nil
	case models.ExamQuarterly:
		if in.Quarter == nil || *in.Quarter < 1 || *in.Quarter > 4 {
			return &ValidationError{Message: "quarterly session needs a quarter between 1 and 4"}
		}
		in.Month = nil
	case models.ExamYearly:
		in.Month = nil
		in.Quarter = nil
	default:
		return &ValidationError{Message: "unknown session type: " + in.Type}
	}
	if in.Year < 2000 || in.Year > 2100 {
		return &ValidationError{Message: "implausible year"}
	}
	if in.MaxScore <= 0 {
		in.MaxScore = 100
	}
	return nil
}

// CreateSession opens a scoring session. The composite unique index turns a
// repeat of the same (type, period, group, subject) into a conflict.
func (es *ExamService) CreateSession(schoolID uint, in SessionInput) (*models.ExamSession, error) {
	if err := normalizeSessionInput(&in); err != nil {
		return nil, err
	}

	var group models.Group
	if err := es.DB.Where("id = ? AND school_id = ?", in.GroupID, schoolID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var subject models.Subject
	if err := es.DB.Where("id = ? AND school_id = ?", in.SubjectID, schoolID).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	session := models.ExamSession{
		SchoolID:  schoolID,
		Type:      in.Type,
		Year:      in.Year,
		Month:     in.Month,
		Quarter:   in.Quarter,
		GroupID:   in.GroupID,
		SubjectID: in.SubjectID,
		MaxScore:  in.MaxScore,
		CreatedBy: in.CreatedBy,
	}
	err := es.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		// every current group member starts at zero so the score sheet is
		// complete even before the teacher grades anyone
		var students []models.Student
		if err := tx.Where("school_id = ? AND group_id = ? AND is_active = ?",
			schoolID, in.GroupID, true).Find(&students).Error; err != nil {
			return err
		}
		for _, st := range students {
			seed := models.ExamResult{
				SchoolID:  schoolID,
				SessionID: session.ID,
				StudentID: st.ID,
				SubjectID: in.SubjectID,
				Score:     0,
				CreatedBy: in.CreatedBy,
			}
			if err := tx.Create(&seed).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, &ConflictError{Message: "a session for this period, group and subject already exists"}
		}
		return nil, err
	}
	return &session, nil
}

// ResultInput is one row of a submitted score sheet
type ResultInput struct {
	StudentID uint   `json:"student_id"`
	Score     int    `json:"score"`
	Comment   string `json:"comment"`
}

// validateScores checks every row against the session ceiling before any
// write happens, so a sheet is applied all-or-nothing.
func validateScores(maxScore int, results []ResultInput) error {
	if len(results) == 0 {
		return &ValidationError{Message: "empty result sheet"}
	}
	seen := make(map[uint]bool, len(results))
	for i, r := range results {
		if r.StudentID == 0 {
			return &ValidationError{Message: fmt.Sprintf("row %d: missing student", i+1)}
		}
		if seen[r.StudentID] {
			return &ValidationError{Message: fmt.Sprintf("row %d: student %d listed twice", i+1, r.StudentID)}
		}
		seen[r.StudentID] = true
		if r.Score < 0 || r.Score > maxScore {
			return &ValidationError{Message: fmt.Sprintf("row %d: score %d outside 0..%d", i+1, r.Score, maxScore)}
		}
	}
	return nil
}

// SubmitResults upserts a score sheet into a session. A locked session
// rejects the whole sheet.
func (es *ExamService) SubmitResults(schoolID, sessionID uint, results []ResultInput, actorID uint) error {
	return es.DB.Transaction(func(tx *gorm.DB) error {
		var session models.ExamSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND school_id = ?", sessionID, schoolID).
			First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if session.IsLocked {
			return &LockedError{SessionID: session.ID}
		}

		if err := validateScores(session.MaxScore, results); err != nil {
			return err
		}

		// every student must belong to the session's group
		var members []models.Student
		if err := tx.Where("school_id = ? AND group_id = ?", schoolID, session.GroupID).Find(&members).Error; err != nil {
			return err
		}
		inGroup := make(map[uint]bool, len(members))
		for _, m := range members {
			inGroup[m.ID] = true
		}

		rows := make([]models.ExamResult, 0, len(results))
		for _, r := range results {
			if !inGroup[r.StudentID] {
				return &ValidationError{Message: fmt.Sprintf("student %d is not in the session's group", r.StudentID)}
			}
			rows = append(rows, models.ExamResult{
				SchoolID:  schoolID,
				SessionID: session.ID,
				StudentID: r.StudentID,
				SubjectID: session.SubjectID,
				Score:     r.Score,
				Comment:   r.Comment,
				CreatedBy: actorID,
				UpdatedBy: actorID,
			})
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_by", "updated_at"}),
		}).Create(&rows).Error
	})
}

// SetLocked locks or unlocks a session
func (es *ExamService) SetLocked(schoolID, sessionID uint, locked bool) error {
	res := es.DB.Model(&models.ExamSession{}).
		Where("id = ? AND school_id = ?", sessionID, schoolID).
		Update("is_locked", locked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SessionWithResults is a session plus its score sheet
type SessionWithResults struct {
	Session models.ExamSession  `json:"session"`
	Results []models.ExamResult `json:"results"`
}

// SessionResults loads a session and its rows ordered by student
func (es *ExamService) SessionResults(schoolID, sessionID uint) (*SessionWithResults, error) {
	var session models.ExamSession
	if err := es.DB.Preload("Group").Preload("Subject").
		Where("id = ? AND school_id = ?", sessionID, schoolID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var results []models.ExamResult
	if err := es.DB.Preload("Student").
		Where("session_id = ?", sessionID).
		Order("student_id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return &SessionWithResults{Session: session, Results: results}, nil
}

// ListSessions returns the school's sessions for a year, optionally
// filtered by type
func (es *ExamService) ListSessions(schoolID uint, year int, sessionType string) ([]models.ExamSession, error) {
	q := es.DB.Preload("Group").Preload("Subject").
		Where("school_id = ? AND year = ?", schoolID, year)
	if sessionType != "" {
		q = q.Where("type = ?", sessionType)
	}
	var sessions []models.ExamSession
	err := q.Order("id DESC").Find(&sessions).Error
	return sessions, err
}

// StudentExamHistory lists one student's results across all sessions
func (es *ExamService) StudentExamHistory(schoolID, studentID uint) ([]models.ExamResult, error) {
	var results []models.ExamResult
	err := es.DB.Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("id DESC").Find(&results).Error
	return results, err
}
