package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
)

type TokenBackend string

const (
	TokenBackendKMS           TokenBackend = "kms"
	TokenBackendSecretManager TokenBackend = "secretmanager"
)

type RateLimitBackend string

const (
	RateLimitMemory    RateLimitBackend = "memory"
	RateLimitFirestore RateLimitBackend = "firestore"
)

type Config struct {
	ProjectID   string
	Region      string
	Port        string
	LogLevel    string
	Environment string

	PlaidClientID       string
	PlaidSecret         string
	PlaidEnvironment    dto.PlaidEnvironment
	PlaidWebhookURL     string
	PlaidVerifyWebhooks bool

	TokenBackend TokenBackend
	KMSKeyName   string

	VertexModel string
	AITTL       time.Duration

	// DatabaseURL switches utilization history to Postgres when set.
	DatabaseURL string

	StatementFallbackDay   int
	CloseBufferDays        int
	ReportConfiguredTarget bool

	RateLimitBackend  RateLimitBackend
	RateLimitReads    int
	RateLimitWrites   int
	RateLimitIPReads  int
	RateLimitIPWrites int
	RateLimitWindow   time.Duration

	SyncSchedule string
	SyncRPS      float64
	ReminderDays int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	CORSOrigins []string
}

func New() *Config {
	return &Config{
		ProjectID:   os.Getenv("PROJECTID"),
		Region:      getEnv("REGION", "us-central1"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    os.Getenv("LOGLEVEL"),
		Environment: getEnv("ENVIRONMENT", "development"),

		PlaidClientID:       os.Getenv("PLAIDCLIENTID"),
		PlaidSecret:         os.Getenv("PLAIDSECRET"),
		PlaidEnvironment:    getPlaidEnvironment(os.Getenv("PLAIDENVIRONMENT")),
		PlaidWebhookURL:     os.Getenv("PLAIDWEBHOOKURL"),
		PlaidVerifyWebhooks: getBool("PLAIDVERIFYWEBHOOKS", true),

		TokenBackend: TokenBackend(strings.ToLower(getEnv("TOKENBACKEND", string(TokenBackendKMS)))),
		KMSKeyName:   os.Getenv("KMSKEYNAME"),

		VertexModel: getEnv("VERTEXMODEL", "gemini-2.0-flash"),
		AITTL:       getDuration("AITTL", 7*24*time.Hour),

		DatabaseURL: os.Getenv("DATABASEURL"),

		StatementFallbackDay:   getInt("STATEMENT_FALLBACK_DAY", 15),
		CloseBufferDays:        getInt("CLOSE_BUFFER_DAYS", 2),
		ReportConfiguredTarget: getBool("REPORT_CONFIGURED_TARGET", false),

		RateLimitBackend:  RateLimitBackend(strings.ToLower(getEnv("RATELIMIT_BACKEND", string(RateLimitMemory)))),
		RateLimitReads:    getInt("RATELIMIT_READS", 120),
		RateLimitWrites:   getInt("RATELIMIT_WRITES", 20),
		RateLimitIPReads:  getInt("RATELIMIT_IP_READS", 600),
		RateLimitIPWrites: getInt("RATELIMIT_IP_WRITES", 100),
		RateLimitWindow:   getDuration("RATELIMIT_WINDOW", time.Minute),

		SyncSchedule: getEnv("SYNC_SCHEDULE", "0 */6 * * *"),
		SyncRPS:      getFloat("SYNC_RPS", 2),
		ReminderDays: getInt("REMINDER_DAYS", 5),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SenderEmail:  os.Getenv("SENDER_EMAIL"),

		CORSOrigins: getList("CORS_ORIGINS", []string{"*"}),
	}
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var problems []string
	if c.ProjectID == "" {
		problems = append(problems, "PROJECTID is required")
	}
	if c.PlaidClientID == "" || c.PlaidSecret == "" {
		problems = append(problems, "PLAIDCLIENTID and PLAIDSECRET are required")
	}
	switch c.TokenBackend {
	case TokenBackendKMS:
		if c.KMSKeyName == "" {
			problems = append(problems, "KMSKEYNAME is required when TOKENBACKEND=kms")
		}
	case TokenBackendSecretManager:
	default:
		problems = append(problems, fmt.Sprintf("unknown TOKENBACKEND %q", c.TokenBackend))
	}
	switch c.RateLimitBackend {
	case RateLimitMemory, RateLimitFirestore:
	default:
		problems = append(problems, fmt.Sprintf("unknown RATELIMIT_BACKEND %q", c.RateLimitBackend))
	}
	if c.StatementFallbackDay < 1 || c.StatementFallbackDay > 31 {
		problems = append(problems, "STATEMENT_FALLBACK_DAY must be between 1 and 31")
	}
	if c.CloseBufferDays < 0 {
		problems = append(problems, "CLOSE_BUFFER_DAYS must not be negative")
	}
	if c.RateLimitReads <= 0 || c.RateLimitWrites <= 0 || c.RateLimitWindow <= 0 ||
		c.RateLimitIPReads <= 0 || c.RateLimitIPWrites <= 0 {
		problems = append(problems, "rate limit budgets and window must be positive")
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		problems = append(problems, "SENDER_EMAIL is required when SMTP_HOST is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MailEnabled reports whether reminder e-mails can be sent.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func getPlaidEnvironment(env string) dto.PlaidEnvironment {
	switch env {
	case "sandbox":
		return dto.PlaidSandbox
	case "development":
		return dto.PlaidDevelopment
	default: // "production"
		return dto.PlaidProduction
	}
}

// ---- Helpers ----

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
