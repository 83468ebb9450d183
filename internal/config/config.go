package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Scheduling rules
	BusinessTimezone    string
	AppointmentDuration time.Duration
	BusinessHourStart   int
	BusinessHourEnd     int
	SlotSuggestionLimit int
	AppointmentTitle    string
	RequireConfirmation bool
	CalendarBackend     string
	CORSAllowedOrigins  []string
	RateLimitRPS        float64
	RateLimitBurst      int

	// Google service account
	GoogleClientEmail   string
	GooglePrivateKey    string
	GoogleProjectID     string
	GoogleCalendarID    string
	GoogleSpreadsheetID string

	// Audit sink
	DatabaseURL string

	// Slot locks
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SlotLockTTL   time.Duration

	// Email
	EmailProvider       string
	AdvisorEmail        string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	SESFromEmail        string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BusinessTimezone:    getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata"),
		AppointmentDuration: getEnvAsDuration("APPOINTMENT_DURATION", 30*time.Minute),
		BusinessHourStart:   getEnvAsInt("BUSINESS_HOURS_START", 9),
		BusinessHourEnd:     getEnvAsInt("BUSINESS_HOURS_END", 18),
		SlotSuggestionLimit: getEnvAsInt("SLOT_SUGGESTION_LIMIT", 2),
		AppointmentTitle:    getEnv("APPOINTMENT_TITLE", "Appointment - Voice Scheduler"),
		RequireConfirmation: getEnvAsBool("REQUIRE_CONFIRMATION", false),
		CalendarBackend:     strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_BACKEND", "memory"))),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:        getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:      getEnvAsInt("RATE_LIMIT_BURST", 10),

		// Keys pasted into env files usually carry literal \n sequences.
		GoogleClientEmail:   getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GooglePrivateKey:    strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCalendarID:    getEnv("GOOGLE_CALENDAR_ID", ""),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SlotLockTTL:   getEnvAsDuration("SLOT_LOCK_TTL", 30*time.Second),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		AdvisorEmail:        getEnv("ADVISOR_EMAIL", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Appointment Scheduler"),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// Location resolves BusinessTimezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	if c == nil || c.BusinessTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GoogleConfigured reports whether service-account credentials are present.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientEmail != "" && c.GooglePrivateKey != "" && c.GoogleProjectID != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
