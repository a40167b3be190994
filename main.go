package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sata_school_go/config"
	"sata_school_go/database"
	"sata_school_go/database/seeders"
	"sata_school_go/middleware"
	"sata_school_go/routes"
	"sata_school_go/services"
	"sata_school_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	config.LoadConfig()
	setupLogging()
	database.Connect()

	if os.Getenv("SEED_DB") == "true" {
		seeders.SeedAll()
	}
}

func main() {
	tz := config.AppConfig.Location()

	// Domain services
	salaryService := services.NewSalaryService()
	paymentService := services.NewPaymentService()
	attendanceService := services.NewAttendanceService(salaryService, tz)
	examService := services.NewExamService()
	reportService := services.NewReportService(paymentService, salaryService)
	healthService := services.NewHealthService("Sata School API", "1.0.0")

	// Log write-behind flush and S3 archive
	logArchiveService := services.NewLogArchiveService()
	logArchiveService.StartLogMaintenanceScheduler()

	// Realtime: dashboard hub and the gate scan bridge
	wsHub := websocket.NewHub()
	go wsHub.Run()
	healthService.AttachRealtime(wsHub)
	bridge := websocket.NewBridge(wsHub, attendanceService, config.AppConfig.AttendanceWebhookURL)

	// Some camera vendors only expose a WebSocket event stream; dial out
	// to it when configured instead of waiting for the terminal to push.
	feedCtx, stopFeed := context.WithCancel(context.Background())
	if url := config.AppConfig.CameraFeedURL; url != "" {
		go bridge.DialCameraFeed(feedCtx, config.AppConfig.CameraFeedSchoolID, url)
	}

	// Nightly absent-marking and log maintenance cron
	scheduler := services.NewScheduler(attendanceService, logArchiveService, tz)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware())

	routes.SetupRoutes(app, routes.Deps{
		Payments:   paymentService,
		Salaries:   salaryService,
		Attendance: attendanceService,
		Exams:      examService,
		Reports:    reportService,
		Archive:    logArchiveService,
		Health:     healthService,
		Hub:        wsHub,
		Bridge:     bridge,
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	// Graceful shutdown: stop the cron, then drain Fiber
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutting down")
		stopFeed()
		scheduler.Stop()
		if err := app.Shutdown(); err != nil {
			logrus.WithError(err).Error("Shutdown error")
		}
	}()

	addr := ":" + config.AppConfig.Port
	logrus.WithFields(logrus.Fields{
		"port": config.AppConfig.Port,
		"env":  config.AppConfig.AppEnv,
		"tz":   config.AppConfig.Timezone,
	}).Info("Server starting")

	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures logrus per config
func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if config.AppConfig.AppEnv == "development" {
		logrus.SetOutput(os.Stdout)
		return
	}
	file, err := os.OpenFile(config.AppConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logrus.SetOutput(file)
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
