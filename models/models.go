package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// School is the tenant boundary. Every other record carries its SchoolID.
// Budget is a running counter mutated only through atomic increments.
type School struct {
	BaseModel
	Name  string `json:"name" gorm:"size:255;not null"`
	Login string `json:"login" gorm:"size:100;not null;uniqueIndex"`
	// bcrypt hash of the admin password
	Password string `json:"-" gorm:"size:255;not null"`
	// ExtraPassword gates privileged payment edits/deletes
	ExtraPassword string `json:"-" gorm:"size:255"`
	// Credentials for the attendance gate terminal (kiosk login)
	GateLogin    string `json:"gate_login,omitempty" gorm:"size:100"`
	GatePassword string `json:"-" gorm:"size:255"`
	Phone        string `json:"phone" gorm:"size:20;not null"`
	Budget       int64  `json:"budget" gorm:"not null;default:0"`

	Teachers []Teacher `json:"teachers,omitempty" gorm:"foreignKey:SchoolID"`
	Students []Student `json:"students,omitempty" gorm:"foreignKey:SchoolID"`
	Groups   []Group   `json:"groups,omitempty" gorm:"foreignKey:SchoolID"`
}

// StaffUser is a non-teacher back-office account (admin or staff)
type StaffUser struct {
	BaseModel
	SchoolID uint   `json:"school_id" gorm:"not null;index"`
	Name     string `json:"name" gorm:"size:200;not null"`
	Login    string `json:"login" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Role     string `json:"role" gorm:"size:50;not null;default:'staff';type:enum('admin','staff')"` // admin, staff

	School School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

// WeekSchedule holds the teacher's lesson hours per weekday. Sunday is the
// rest day and intentionally has no column.
type WeekSchedule struct {
	Monday    int `json:"monday" gorm:"default:0"`
	Tuesday   int `json:"tuesday" gorm:"default:0"`
	Wednesday int `json:"wednesday" gorm:"default:0"`
	Thursday  int `json:"thursday" gorm:"default:0"`
	Friday    int `json:"friday" gorm:"default:0"`
	Saturday  int `json:"saturday" gorm:"default:0"`
}

// HoursOn returns the scheduled hours for a weekday, zero for Sunday.
func (w WeekSchedule) HoursOn(day time.Weekday) int {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	}
	return 0
}

// Teacher model
type Teacher struct {
	BaseModel
	SchoolID  uint      `json:"school_id" gorm:"not null;index"`
	FirstName string    `json:"first_name" gorm:"size:100;not null"`
	LastName  string    `json:"last_name" gorm:"size:100;not null"`
	BirthDate time.Time `json:"birth_date"`
	Phone     string    `json:"phone" gorm:"size:20;not null"`
	Subject   string    `json:"subject" gorm:"size:100"`
	// HourlyRate is the pay per lesson hour in integer currency units
	HourlyRate int64 `json:"hourly_rate" gorm:"not null"`
	// WeeklyHours is the total contracted lesson hours per week
	WeeklyHours   int          `json:"weekly_hours" gorm:"not null"`
	Schedule      WeekSchedule `json:"schedule" gorm:"embedded;embeddedPrefix:sched_"`
	MonthlySalary int64        `json:"monthly_salary"`
	ClassLeader   string       `json:"class_leader" gorm:"size:100"`
	// EmployeeNo identifies the teacher to the badge/camera hardware
	EmployeeNo *string `json:"employee_no" gorm:"size:64;uniqueIndex"`
	Login      string  `json:"login" gorm:"size:100;not null;uniqueIndex"`
	Password   string  `json:"-" gorm:"size:255;not null"`

	School School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

func (t *Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

// Student model
type Student struct {
	BaseModel
	SchoolID       uint      `json:"school_id" gorm:"not null;index"`
	GroupID        uint      `json:"group_id" gorm:"not null;index"`
	FirstName      string    `json:"first_name" gorm:"size:100;not null"`
	LastName       string    `json:"last_name" gorm:"size:100;not null"`
	MiddleName     string    `json:"middle_name" gorm:"size:100"`
	PassportNumber *string   `json:"passport_number" gorm:"size:64;uniqueIndex"`
	Gender         string    `json:"gender" gorm:"size:20;not null"`
	BirthDate      time.Time `json:"birth_date" gorm:"not null"`
	AdmissionDate  time.Time `json:"admission_date" gorm:"not null"`
	// MonthlyFee in integer currency units; the overpay ceiling per month
	MonthlyFee int64 `json:"monthly_fee" gorm:"not null;default:0"`
	IsActive   bool  `json:"is_active" gorm:"default:true;index"`
	// InactiveFrom is the month key ("YYYY-MM") a deactivated student stops
	// accruing debt from
	InactiveFrom        *string `json:"inactive_from" gorm:"size:7"`
	PhoneNumber         string  `json:"phone_number" gorm:"size:20;not null"`
	GuardianPhoneNumber string  `json:"guardian_phone_number" gorm:"size:20;index"`
	Source              string  `json:"source" gorm:"size:50;type:enum('telegram','instagram','website','friend','ads','banner')"`
	// EmployeeNo identifies the student to the badge/camera hardware
	EmployeeNo *string `json:"employee_no" gorm:"size:64;uniqueIndex"`

	School School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
	Group  Group  `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Group model
type Group struct {
	BaseModel
	SchoolID uint   `json:"school_id" gorm:"not null;index"`
	Name     string `json:"name" gorm:"size:100;not null"`
	Level    string `json:"level" gorm:"size:50"`

	School   School    `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
	Students []Student `json:"students,omitempty" gorm:"foreignKey:GroupID"`
}

// Subject model
type Subject struct {
	BaseModel
	SchoolID uint   `json:"school_id" gorm:"not null;index"`
	Name     string `json:"name" gorm:"size:100;not null"`

	School School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

// LessonSlot is one slot in the weekly lesson schedule
type LessonSlot struct {
	BaseModel
	SchoolID  uint `json:"school_id" gorm:"not null;index"`
	GroupID   uint `json:"group_id" gorm:"not null;index"`
	SubjectID uint `json:"subject_id" gorm:"not null"`
	TeacherID uint `json:"teacher_id" gorm:"not null;index"`
	// Weekday uses English lowercase day names derived from local time
	Weekday     string `json:"weekday" gorm:"size:20;not null"`
	LessonOrder int    `json:"lesson_order" gorm:"not null"`
	Room        string `json:"room" gorm:"size:50"`

	Group   Group   `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Teacher Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// Payment is one ledger entry. Entries accumulate per (student, month) and
// are append-only; edits and deletes go through the password-gated admin path.
type Payment struct {
	BaseModel
	StudentID       uint   `json:"student_id" gorm:"not null;index:idx_payments_student_month"`
	SchoolID        uint   `json:"school_id" gorm:"not null;index"`
	StudentFullname string `json:"student_fullname" gorm:"size:200;not null"`
	GroupID         uint   `json:"group_id" gorm:"not null"`
	Amount          int64  `json:"amount" gorm:"not null"`
	// MonthKey is canonical "YYYY-MM"
	MonthKey    string    `json:"month_key" gorm:"size:7;not null;index:idx_payments_student_month"`
	Method      string    `json:"method" gorm:"size:20;not null;type:enum('cash','card','transfer')"`
	PaymentDate time.Time `json:"payment_date" gorm:"not null"`

	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Expense is a school outflow record. Cash expenses decrement the budget.
type Expense struct {
	BaseModel
	SchoolID uint   `json:"school_id" gorm:"not null;index"`
	Name     string `json:"name" gorm:"size:200;not null"`
	Category string `json:"category" gorm:"size:100"`
	Amount   int64  `json:"amount" gorm:"not null"`
	Method   string `json:"method" gorm:"size:20;not null;type:enum('cash','card','transfer')"`
	Comment  string `json:"comment" gorm:"type:text"`
}

// AttendanceDay is the per-school, per-day attendance document
type AttendanceDay struct {
	BaseModel
	SchoolID uint      `json:"school_id" gorm:"not null;uniqueIndex:idx_attendance_school_day"`
	Date     time.Time `json:"date" gorm:"not null"`
	// DateKey is "YYYY-MM-DD" in the school's local timezone
	DateKey string `json:"date_key" gorm:"size:10;not null;uniqueIndex:idx_attendance_school_day"`

	Entries []AttendanceEntry `json:"entries,omitempty" gorm:"foreignKey:AttendanceDayID"`
}

// Person kinds inside an attendance day
const (
	PersonStudent = "student"
	PersonTeacher = "teacher"
)

// Attendance entry statuses
const (
	AttendanceArrived  = "arrived"
	AttendanceDeparted = "departed"
	AttendanceAbsent   = "absent"
)

// AttendanceEntry is one arrival/departure (or terminal absent) row. For a
// given person within a day at most one entry may have ExitedAt = NULL.
type AttendanceEntry struct {
	BaseModel
	AttendanceDayID uint   `json:"attendance_day_id" gorm:"not null;index"`
	SchoolID        uint   `json:"school_id" gorm:"not null;index"`
	PersonKind      string `json:"person_kind" gorm:"size:20;not null;type:enum('student','teacher')"`
	PersonID        uint   `json:"person_id" gorm:"not null;index"`
	// PersonFullname is denormalized at scan time so rosters render without
	// joining back to students/teachers
	PersonFullname string     `json:"person_fullname" gorm:"size:200"`
	EmployeeNo     string     `json:"employee_no" gorm:"size:64"`
	EnteredAt      *time.Time `json:"entered_at"`
	ExitedAt       *time.Time `json:"exited_at"`
	Status         string     `json:"status" gorm:"size:20;not null;type:enum('arrived','departed','absent')"`
}

// Salary accrual reasons
const (
	SalaryReasonAttendance = "attendance"
	SalaryReasonManual     = "manual"
)

// SalaryRecord is the monthly salary document per (teacher, school, month).
// TotalAmount always equals the sum of its log amounts; both are written in
// the same transaction.
type SalaryRecord struct {
	BaseModel
	TeacherID uint `json:"teacher_id" gorm:"not null;uniqueIndex:idx_salary_teacher_month"`
	SchoolID  uint `json:"school_id" gorm:"not null;uniqueIndex:idx_salary_teacher_month"`
	// PaymentMonth is canonical "YYYY-MM"
	PaymentMonth string `json:"payment_month" gorm:"size:7;not null;uniqueIndex:idx_salary_teacher_month"`
	// TeacherFullname is set on insert only, never overwritten
	TeacherFullname string `json:"teacher_fullname" gorm:"size:200;not null"`
	TotalAmount     int64  `json:"total_amount" gorm:"not null;default:0"`

	Logs []SalaryLog `json:"logs,omitempty" gorm:"foreignKey:SalaryRecordID"`
}

// SalaryLog is one immutable accrual line. DateKey is set for attendance
// accruals and unique per record, so a worked day credits at most once.
// Manual postings carry a NULL DateKey and never collide.
type SalaryLog struct {
	BaseModel
	SalaryRecordID uint      `json:"salary_record_id" gorm:"not null;uniqueIndex:idx_salary_log_day"`
	Date           time.Time `json:"date" gorm:"not null"`
	DateKey        *string   `json:"date_key" gorm:"size:10;uniqueIndex:idx_salary_log_day"`
	Hours          int       `json:"hours" gorm:"default:0"`
	Amount         int64     `json:"amount" gorm:"not null"`
	PaymentType    *string   `json:"payment_type" gorm:"size:20"`
	Reason         string    `json:"reason" gorm:"size:20;not null;default:'attendance';type:enum('attendance','manual')"`
}

// TeacherSubstitution is a side-ledger adjustment created when one teacher
// covers for another. ExtraCharge is negative for the absent teacher and
// positive for the covering one; these never flow into SalaryRecord totals.
type TeacherSubstitution struct {
	BaseModel
	SchoolID    uint `json:"school_id" gorm:"not null;index"`
	TeacherID   uint `json:"teacher_id" gorm:"not null;index"`
	CoTeacherID uint `json:"co_teacher_id" gorm:"not null"`
	// Month is canonical "YYYY-MM"
	Month       string `json:"month" gorm:"size:7;not null;index"`
	LessonCount int    `json:"lesson_count" gorm:"not null"`
	ExtraCharge int64  `json:"extra_charge" gorm:"not null"`
}

// Exam session types
const (
	ExamMonthly   = "monthly"
	ExamQuarterly = "quarterly"
	ExamYearly    = "yearly"
)

// ExamSession model. Month and Quarter are mutually exclusive and nulled by
// the session type.
type ExamSession struct {
	BaseModel
	SchoolID  uint   `json:"school_id" gorm:"not null;uniqueIndex:idx_exam_session_key"`
	Type      string `json:"type" gorm:"size:20;not null;uniqueIndex:idx_exam_session_key;type:enum('monthly','quarterly','yearly')"`
	Year      int    `json:"year" gorm:"not null;uniqueIndex:idx_exam_session_key"`
	Month     *int   `json:"month" gorm:"uniqueIndex:idx_exam_session_key"`
	Quarter   *int   `json:"quarter" gorm:"uniqueIndex:idx_exam_session_key"`
	GroupID   uint   `json:"group_id" gorm:"not null;uniqueIndex:idx_exam_session_key"`
	SubjectID uint   `json:"subject_id" gorm:"not null;uniqueIndex:idx_exam_session_key"`
	MaxScore  int    `json:"max_score" gorm:"not null;default:100"`
	IsLocked  bool   `json:"is_locked" gorm:"default:false"`
	CreatedBy uint   `json:"created_by"`

	Group   Group   `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// ExamResult model, unique per (session, student)
type ExamResult struct {
	BaseModel
	SchoolID  uint   `json:"school_id" gorm:"not null;index"`
	SessionID uint   `json:"session_id" gorm:"not null;uniqueIndex:idx_exam_result_student"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_exam_result_student"`
	SubjectID uint   `json:"subject_id" gorm:"not null"`
	Score     int    `json:"score" gorm:"not null;default:0"`
	Comment   string `json:"comment" gorm:"type:text"`
	CreatedBy uint   `json:"created_by"`
	UpdatedBy uint   `json:"updated_by"`

	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Grade is a per-lesson mark set by the teacher in the journal
type Grade struct {
	BaseModel
	SchoolID     uint      `json:"school_id" gorm:"not null;index"`
	StudentID    uint      `json:"student_id" gorm:"not null;index"`
	GroupID      uint      `json:"group_id" gorm:"not null;index"`
	SubjectID    uint      `json:"subject_id" gorm:"not null"`
	LessonSlotID uint      `json:"lesson_slot_id" gorm:"not null"`
	Date         time.Time `json:"date" gorm:"not null"`
	Value        int       `json:"value" gorm:"not null"`
	Comment      string    `json:"comment" gorm:"size:500"`

	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// Homework assigned for a lesson slot
type Homework struct {
	BaseModel
	SchoolID     uint      `json:"school_id" gorm:"not null;index"`
	GroupID      uint      `json:"group_id" gorm:"not null;index"`
	SubjectID    uint      `json:"subject_id" gorm:"not null"`
	LessonSlotID uint      `json:"lesson_slot_id" gorm:"not null"`
	TeacherID    uint      `json:"teacher_id" gorm:"not null"`
	DueDate      time.Time `json:"due_date" gorm:"not null"`
	Text         string    `json:"text" gorm:"type:text;not null"`

	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// SchoolQuarter defines the date span of an academic quarter
type SchoolQuarter struct {
	BaseModel
	SchoolID  uint      `json:"school_id" gorm:"not null;uniqueIndex:idx_quarter_school_no"`
	Number    int       `json:"number" gorm:"not null;uniqueIndex:idx_quarter_school_no"`
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	SchoolID   uint   `json:"school_id" gorm:"index"`
	ActorKind  string `json:"actor_kind" gorm:"size:20"`
	ActorID    uint   `json:"actor_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
}

// LogArchive tracks activity-log batches exported to S3
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}
