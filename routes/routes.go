package routes

import (
	"sata_school_go/controllers"
	"sata_school_go/handlers"
	"sata_school_go/middleware"
	"sata_school_go/services"
	"sata_school_go/services/websocket"

	"github.com/gofiber/fiber/v2"
)

// Deps carries the shared service instances the routes wire into
// controllers. main builds one of these at startup.
type Deps struct {
	Payments   *services.PaymentService
	Salaries   *services.SalaryService
	Attendance *services.AttendanceService
	Exams      *services.ExamService
	Reports    *services.ReportService
	Archive    *services.LogArchiveService
	Health     *services.HealthService
	Hub        *websocket.Hub
	Bridge     *websocket.Bridge
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, deps Deps) {
	authController := &controllers.AuthController{}
	schoolController := &controllers.SchoolController{}
	studentController := &controllers.StudentController{}
	teacherController := &controllers.TeacherController{}
	groupController := &controllers.GroupController{}
	subjectController := &controllers.SubjectController{}
	lessonController := &controllers.LessonController{}
	expenseController := &controllers.ExpenseController{}
	journalController := controllers.NewJournalController()
	paymentController := controllers.NewPaymentController(deps.Payments)
	salaryController := controllers.NewSalaryController(deps.Salaries)
	attendanceController := controllers.NewAttendanceController(deps.Attendance)
	examController := controllers.NewExamController(deps.Exams)
	parentController := controllers.NewParentController(deps.Payments, deps.Attendance, deps.Exams)
	reportController := controllers.NewReportController(deps.Reports)
	logController := controllers.NewLogController(deps.Archive)
	healthController := controllers.NewHealthController(deps.Health)
	wsController := controllers.NewWebSocketController(deps.Hub, deps.Bridge)
	deviceWebhook := handlers.NewDeviceWebhookHandler(deps.Attendance, deps.Hub)

	// API group
	api := app.Group("/api")

	api.Get("/health", healthController.GetHealthStatus)

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.SchoolLogin)
	auth.Post("/login/gate", authController.GateLogin)
	auth.Post("/login/staff", authController.StaffLogin)
	auth.Post("/login/teacher", authController.TeacherLogin)
	auth.Post("/login/parent", authController.ParentLogin)

	// School registration is public: a new school signs itself up
	api.Post("/schools/register", schoolController.Register)

	// Signed device pushes authenticate via HMAC, not JWT
	api.Post("/webhooks/device", deviceWebhook.Handle)

	// Protected routes (staff-side JWT)
	protected := api.Group("/", middleware.JWTMiddleware())
	protected.Get("/profile", authController.Profile)
	protected.Post("/auth/logout", authController.Logout)

	// School profile and staff accounts
	school := protected.Group("/school", middleware.RequireStaffOrAdmin())
	school.Get("/", schoolController.GetProfile)
	school.Put("/", middleware.RequireAdmin(), schoolController.Update)
	school.Put("/password", middleware.RequireAdmin(), schoolController.ChangePassword)
	school.Post("/staff", middleware.RequireAdmin(), schoolController.CreateStaff)
	school.Get("/staff", schoolController.GetStaff)
	school.Delete("/staff/:id", middleware.RequireAdmin(), schoolController.DeleteStaff)

	// Roster
	students := protected.Group("/students", middleware.RequireStaffOrAdmin())
	students.Get("/", studentController.GetStudents)
	students.Get("/:id", studentController.GetStudent)
	students.Post("/", studentController.CreateStudent)
	students.Put("/:id", studentController.UpdateStudent)
	students.Patch("/:id/active", studentController.ToggleActive)
	students.Post("/:id/badge", studentController.RegenerateBadge)
	students.Delete("/:id", middleware.RequireAdmin(), studentController.DeleteStudent)

	teachers := protected.Group("/teachers", middleware.RequireStaffOrAdmin())
	teachers.Get("/", teacherController.GetTeachers)
	teachers.Get("/:id", teacherController.GetTeacher)
	teachers.Post("/", teacherController.CreateTeacher)
	teachers.Put("/:id", teacherController.UpdateTeacher)
	teachers.Post("/:id/badge", teacherController.RegenerateBadge)
	teachers.Delete("/:id", middleware.RequireAdmin(), teacherController.DeleteTeacher)

	groups := protected.Group("/groups", middleware.RequireTeacherOrAbove())
	groups.Get("/", groupController.GetGroups)
	groups.Get("/:id", groupController.GetGroup)
	groups.Post("/", middleware.RequireStaffOrAdmin(), groupController.CreateGroup)
	groups.Put("/:id", middleware.RequireStaffOrAdmin(), groupController.UpdateGroup)
	groups.Delete("/:id", middleware.RequireAdmin(), groupController.DeleteGroup)

	subjects := protected.Group("/subjects", middleware.RequireTeacherOrAbove())
	subjects.Get("/", subjectController.GetSubjects)
	subjects.Post("/", middleware.RequireStaffOrAdmin(), subjectController.CreateSubject)
	subjects.Delete("/:id", middleware.RequireStaffOrAdmin(), subjectController.DeleteSubject)

	lessons := protected.Group("/lessons", middleware.RequireTeacherOrAbove())
	lessons.Get("/", lessonController.GetTimetable)
	lessons.Post("/", middleware.RequireStaffOrAdmin(), lessonController.CreateSlot)
	lessons.Delete("/:id", middleware.RequireStaffOrAdmin(), lessonController.DeleteSlot)

	// Payments ledger
	payments := protected.Group("/payments", middleware.RequireStaffOrAdmin())
	payments.Post("/", paymentController.PostPayment)
	payments.Get("/debts", paymentController.GetDebts)
	payments.Get("/merged", paymentController.GetMergedPayments)
	payments.Get("/check-debt/:id", paymentController.CheckDebt)
	payments.Get("/student/:id", paymentController.GetStudentPayments)
	payments.Get("/log", paymentController.GetPaymentLog)
	payments.Get("/summary/monthly", paymentController.GetMonthlySummary)
	payments.Get("/summary/daily", paymentController.GetDailySummary)
	payments.Put("/:id", middleware.RequireAdmin(), paymentController.EditPayment)
	payments.Delete("/:id", middleware.RequireAdmin(), paymentController.DeletePayment)

	expenses := protected.Group("/expenses", middleware.RequireStaffOrAdmin())
	expenses.Get("/", expenseController.GetExpenses)
	expenses.Post("/", expenseController.CreateExpense)
	expenses.Delete("/:id", middleware.RequireAdmin(), expenseController.DeleteExpense)
	expenses.Get("/summary", expenseController.GetMonthlySummary)

	// Salaries
	salaries := protected.Group("/salaries", middleware.RequireStaffOrAdmin())
	salaries.Get("/", salaryController.GetMonthSummary)
	salaries.Get("/teacher/:id", salaryController.GetTeacherMonth)
	salaries.Get("/teacher/:id/history", salaryController.GetTeacherHistory)
	salaries.Post("/manual", middleware.RequireAdmin(), salaryController.PostManualSalary)
	salaries.Post("/substitutions", salaryController.PostSubstitution)
	salaries.Get("/substitutions", salaryController.GetSubstitutions)

	// A teacher may read their own salary record
	protected.Get("/my/salary", middleware.RequireKind(middleware.ActorTeacher), salaryController.GetMySalary)

	// Attendance
	attendance := protected.Group("/attendance")
	attendance.Post("/scan", middleware.RequireScanSource(), attendanceController.PostScan)
	attendance.Get("/day", middleware.RequireTeacherOrAbove(), attendanceController.GetDay)
	attendance.Get("/student/:id", middleware.RequireTeacherOrAbove(), attendanceController.GetStudentMonth)
	attendance.Get("/teacher/:id", middleware.RequireStaffOrAdmin(), attendanceController.GetTeacherMonth)
	attendance.Post("/absent", middleware.RequireStaffOrAdmin(), attendanceController.MarkAbsent)
	attendance.Post("/close", middleware.RequireStaffOrAdmin(), attendanceController.CloseDay)

	// Exams
	exams := protected.Group("/exams", middleware.RequireTeacherOrAbove())
	exams.Post("/sessions", examController.CreateSession)
	exams.Get("/sessions", examController.GetSessions)
	exams.Get("/sessions/:id", examController.GetSessionResults)
	exams.Post("/sessions/:id/results", examController.SubmitResults)
	exams.Put("/sessions/:id/lock", middleware.RequireStaffOrAdmin(), examController.SetLock)
	exams.Get("/student/:id", examController.GetStudentHistory)

	// Class journal
	journal := protected.Group("/journal", middleware.RequireTeacherOrAbove())
	journal.Post("/grades", journalController.PostGrade)
	journal.Get("/groups/:id/grades", journalController.GetGroupGrades)
	journal.Delete("/grades/:id", middleware.RequireStaffOrAdmin(), journalController.DeleteGrade)
	journal.Post("/homework", journalController.PostHomework)
	journal.Get("/groups/:id/homework", journalController.GetGroupHomework)
	journal.Delete("/homework/:id", journalController.DeleteHomework)
	journal.Put("/quarters", middleware.RequireStaffOrAdmin(), journalController.SetQuarter)
	journal.Get("/quarters", journalController.GetQuarters)

	// Reports
	reports := protected.Group("/reports", middleware.RequireStaffOrAdmin())
	reports.Get("/debts.xlsx", reportController.DownloadDebtReport)
	reports.Get("/payments.xlsx", reportController.DownloadPaymentReport)
	reports.Get("/salaries.xlsx", reportController.DownloadSalaryReport)
	reports.Post("/import/students", reportController.ImportStudents)

	// Activity logs
	logs := protected.Group("/logs", middleware.RequireAdmin())
	logs.Get("/", logController.GetLogs)
	logs.Get("/export", logController.ExportLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Get("/archives/:id/download", logController.DownloadArchive)
	logs.Get("/:id", logController.GetLog)
	logs.Post("/flush", logController.FlushCachedLogs)
	logs.Delete("/old", logController.DeleteOldLogs)

	// WebSocket stats (staff-side)
	protected.Get("/ws/stats", middleware.RequireStaffOrAdmin(), wsController.GetStats)

	// Parent surface (parent JWT, separate secret)
	parent := api.Group("/parent", middleware.ParentJWTMiddleware())
	parent.Get("/children", parentController.GetChildren)
	parent.Get("/children/:id/payments", parentController.GetChildPayments)
	parent.Get("/children/:id/attendance", parentController.GetChildAttendance)
	parent.Get("/children/:id/grades", parentController.GetChildGrades)
	parent.Get("/children/:id/exams", parentController.GetChildExams)
	parent.Get("/children/:id/homework", parentController.GetChildHomework)

	// WebSocket upgrades authenticate via ?token= inside the handler
	ws := app.Group("/ws", controllers.RequireUpgrade())
	ws.Get("/dashboard", wsController.DashboardHandler())
	ws.Get("/gate", wsController.GateHandler())
}
