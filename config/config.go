package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// JWT. Parent tokens are signed with their own secret so a leaked parent
	// token can never be replayed against staff endpoints.
	JWTSecret       string
	ParentJWTSecret string
	JWTExpiresIn    time.Duration

	// AWS (SSM config source + S3 log archive)
	AWSRegion    string
	S3BucketName string

	// Server
	Port   string
	AppEnv string

	// Timezone used for attendance day boundaries and weekday names
	Timezone string

	// AttendanceWebhookURL receives a replay of every hardware scan event
	// accepted over the WebSocket bridge. Empty disables replay.
	AttendanceWebhookURL string

	// DeviceWebhookSecret signs inbound scan pushes from camera terminals
	// that speak HTTP instead of the WebSocket bridge. Empty disables the
	// endpoint.
	DeviceWebhookSecret string

	// CameraFeedURL is an upstream vendor event stream to dial out to,
	// for terminals that only serve WebSocket. Scans arriving on it are
	// attributed to CameraFeedSchoolID. Empty disables the dialer.
	CameraFeedURL      string
	CameraFeedSchoolID uint

	// Logging
	LogLevel string
	LogFile  string

	// Feature Toggles
	UseRedisLogQueue bool
	SkipMigrate      bool

	location *time.Location
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

// Location returns the school-local timezone. Falls back to UTC when the
// configured name cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			log.Printf("Warning: unknown timezone %q, using UTC", c.Timezone)
			loc = time.UTC
		}
		c.location = loc
	}
	return c.location
}

var AppConfig *Config

func LoadConfig() {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var (
		ssmClient *ssm.SSM
		paramMap  map[string]string
	)

	// Stage & base path for SSM (allows multi-env without code changes)
	basePath := getEnv("SSM_BASE_PATH", "/sataschool")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	basePath = strings.TrimRight(basePath, "/")
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "eu-central-1"))})
		if err != nil {
			log.Fatal("Failed to create AWS session:", err)
		}
		ssmClient = ssm.New(sess)
		log.Printf("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssmClient, prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	// Helper accessor respecting map / env fallback
	getVal := func(key, def string) string {
		if useSSM {
			uk := strings.ToUpper(key)
			if v, ok := paramMap[uk]; ok && v != "" {
				return v
			}
		}
		return getEnv(strings.ToUpper(key), def)
	}

	jwtExpiresStr := getVal("JWT_EXPIRES_IN", "720h") // 30 days, matching mobile clients
	jwtExpires, err := time.ParseDuration(jwtExpiresStr)
	if err != nil {
		log.Fatal("Invalid JWT_EXPIRES_IN format:", err)
	}

	feedSchoolID, err := strconv.ParseUint(getVal("CAMERA_FEED_SCHOOL_ID", "0"), 10, 32)
	if err != nil {
		log.Fatal("Invalid CAMERA_FEED_SCHOOL_ID:", err)
	}

	AppConfig = &Config{
		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "sata_school"),

		RedisHost:     getVal("REDIS_HOST", "localhost"),
		RedisPort:     getVal("REDIS_PORT", "6379"),
		RedisPassword: getVal("REDIS_PASSWORD", ""),

		JWTSecret:       getVal("JWT_SECRET", "your_super_secret_jwt_key"),
		ParentJWTSecret: getVal("JWT_SECRET_PARENT", "your_super_secret_parent_key"),
		JWTExpiresIn:    jwtExpires,

		AWSRegion:    getVal("AWS_REGION", "eu-central-1"),
		S3BucketName: getVal("S3_BUCKET_NAME", "sataschool-log-archive"),

		Port:   getVal("PORT", "8057"),
		AppEnv: getVal("APP_ENV", "development"),

		Timezone: getVal("TIMEZONE", "Asia/Tashkent"),

		AttendanceWebhookURL: getVal("ATTENDANCE_WEBHOOK_URL", ""),
		DeviceWebhookSecret:  getVal("DEVICE_WEBHOOK_SECRET", ""),

		CameraFeedURL:      getVal("CAMERA_FEED_URL", ""),
		CameraFeedSchoolID: uint(feedSchoolID),

		LogLevel: getVal("LOG_LEVEL", "info"),
		LogFile:  getVal("LOG_FILE", "logs/app.log"),

		UseRedisLogQueue: strings.ToLower(getVal("USE_REDIS_LOG_QUEUE", "false")) == "true",
		SkipMigrate:      strings.ToLower(getVal("SKIP_MIGRATE", "false")) == "true",
	}

	validateConfig(AppConfig, useSSM)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// fetchSSMParameters reads all parameters under prefix and returns a map with
// UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	next := aws.String("")
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
		}
		if *next != "" {
			in.NextToken = next
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			log.Printf("Warning: unable to fetch SSM parameters for prefix %s: %v", prefix, err)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			idx := strings.LastIndex(name, "/")
			key := name
			if idx >= 0 {
				key = name[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config, usedSSM bool) {
	// Only enforce stricter rules in production
	if strings.ToLower(c.AppEnv) != "production" {
		return
	}
	required := map[string]string{
		"DB_PASSWORD":       c.DBPassword,
		"JWT_SECRET":        c.JWTSecret,
		"JWT_SECRET_PARENT": c.ParentJWTSecret,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			log.Fatalf("Missing required secret %s in production (SSM=%v)", k, usedSSM)
		}
	}
	if len(c.JWTSecret) < 16 {
		log.Fatal("JWT_SECRET too short (min 16 chars)")
	}
	if c.JWTSecret == c.ParentJWTSecret {
		log.Fatal("JWT_SECRET and JWT_SECRET_PARENT must differ")
	}
}
