package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sata_school_go/config"
	"sata_school_go/database"
	"sata_school_go/models"
)

const (
	overallStatusOK       = "ok"
	overallStatusDegraded = "degraded"
	overallStatusCritical = "critical"

	checkStatusUp       = "up"
	checkStatusDown     = "down"
	checkStatusDisabled = "disabled"

	defaultServiceName = "Sata School API"
	defaultVersion     = "1.0.0"
	defaultTimeout     = 1500 * time.Millisecond
)

// ClientCounter reports how many realtime clients (gate terminals and
// dashboards) are currently connected. Satisfied by the websocket hub.
type ClientCounter interface {
	ClientCount() int
}

// HealthService answers "can this backend take scans and payments right
// now": it probes the MySQL pool, the Redis log queue, the realtime hub
// and how fresh the newest attendance day is.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
	timeout     time.Duration
	realtime    ClientCounter
}

// HealthReport is the JSON body of the health endpoint.
type HealthReport struct {
	Status        string        `json:"status"`
	Service       string        `json:"service"`
	Version       string        `json:"version"`
	Environment   string        `json:"environment"`
	Time          time.Time     `json:"time"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Checks        []CheckResult `json:"checks"`
}

// CheckResult is one probed subsystem.
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func NewHealthService(serviceName, version string) *HealthService {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultServiceName
	}
	if strings.TrimSpace(version) == "" {
		version = defaultVersion
	}
	return &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		timeout:     defaultTimeout,
	}
}

// AttachRealtime wires the websocket hub in after both exist.
func (s *HealthService) AttachRealtime(rc ClientCounter) {
	s.realtime = rc
}

// GetHealthReport probes every subsystem and folds their statuses into one
// overall verdict. Only a dead database is critical; a stalled log queue or
// an empty hub degrade but the gates keep working.
func (s *HealthService) GetHealthReport() HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report := HealthReport{
		Status:      overallStatusOK,
		Service:     s.serviceName,
		Version:     s.version,
		Environment: currentEnvironment(),
		Time:        time.Now().UTC(),
	}
	if uptime := time.Since(s.startTime); uptime > 0 {
		report.UptimeSeconds = uptime.Seconds()
	}

	for _, probe := range []func(context.Context) (CheckResult, string){
		s.checkDatabase,
		s.checkLogQueue,
		s.checkRealtime,
		s.checkAttendanceFreshness,
	} {
		check, status := probe(ctx)
		report.Checks = append(report.Checks, check)
		report.Status = combineStatus(report.Status, status)
	}
	return report
}

// HTTPStatusForOverall maps a health verdict to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == overallStatusCritical {
		return 503
	}
	return 200
}

func (s *HealthService) checkDatabase(ctx context.Context) (CheckResult, string) {
	check := CheckResult{Name: "mysql"}

	if database.DB == nil {
		check.Status = checkStatusDown
		check.Error = "database connection not initialised"
		return check, overallStatusCritical
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		check.Status = checkStatusDown
		check.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return check, overallStatusCritical
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	start := time.Now()
	err = sqlDB.PingContext(pingCtx)
	cancel()
	check.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		check.Status = checkStatusDown
		check.Error = err.Error()
		return check, overallStatusCritical
	}

	stats := sqlDB.Stats()
	check.Status = checkStatusUp
	check.Details = map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"max_open_connections": stats.MaxOpenConnections,
	}
	return check, overallStatusOK
}

// checkLogQueue pings Redis and reports the activity-log write-behind
// backlog. A growing backlog means the nightly flush is not keeping up.
func (s *HealthService) checkLogQueue(ctx context.Context) (CheckResult, string) {
	check := CheckResult{Name: "redis_log_queue"}
	queueEnabled := config.AppConfig != nil && config.AppConfig.UseRedisLogQueue

	client := database.GetRedisClient()
	if client == nil {
		if queueEnabled {
			check.Status = checkStatusDown
			check.Error = "redis client not initialised"
			return check, overallStatusDegraded
		}
		check.Status = checkStatusDisabled
		return check, overallStatusOK
	}

	pingCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	start := time.Now()
	err := client.Ping(pingCtx).Err()
	cancel()
	check.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		check.Status = checkStatusDown
		check.Error = err.Error()
		if queueEnabled {
			return check, overallStatusDegraded
		}
		return check, overallStatusOK
	}

	check.Status = checkStatusUp
	check.Details = map[string]interface{}{"address": client.Options().Addr}
	if queueEnabled {
		if depth, err := client.ZCard(ctx, "logs:queue").Result(); err == nil {
			check.Details["pending_logs"] = depth
		}
	}
	return check, overallStatusOK
}

func (s *HealthService) checkRealtime(_ context.Context) (CheckResult, string) {
	check := CheckResult{Name: "realtime_hub"}
	if s.realtime == nil {
		check.Status = checkStatusDisabled
		return check, overallStatusOK
	}
	check.Status = checkStatusUp
	check.Details = map[string]interface{}{"connected_clients": s.realtime.ClientCount()}
	return check, overallStatusOK
}

// checkAttendanceFreshness reports the newest attendance day on record.
// Informational only: a quiet holiday week is not an outage.
func (s *HealthService) checkAttendanceFreshness(_ context.Context) (CheckResult, string) {
	check := CheckResult{Name: "attendance"}
	if database.DB == nil {
		check.Status = checkStatusDisabled
		return check, overallStatusOK
	}

	var day models.AttendanceDay
	err := database.DB.Order("date_key DESC").First(&day).Error
	if err != nil {
		// no days yet is a fresh install, not a failure
		check.Status = checkStatusUp
		check.Details = map[string]interface{}{"latest_day": nil}
		return check, overallStatusOK
	}

	check.Status = checkStatusUp
	check.Details = map[string]interface{}{
		"latest_day":     day.DateKey,
		"days_since_key": int(time.Since(day.Date).Hours() / 24),
	}
	return check, overallStatusOK
}

func currentEnvironment() string {
	if config.AppConfig == nil {
		return "unknown"
	}
	if env := strings.TrimSpace(config.AppConfig.AppEnv); env != "" {
		return env
	}
	return "unknown"
}

func combineStatus(current, candidate string) string {
	order := map[string]int{
		overallStatusOK:       0,
		overallStatusDegraded: 1,
		overallStatusCritical: 2,
	}
	if _, ok := order[current]; !ok {
		current = overallStatusOK
	}
	if v, ok := order[candidate]; ok && v > order[current] {
		return candidate
	}
	return current
}
