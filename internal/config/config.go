package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by ENGRAM_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("ENGRAM_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

const bytesPerGiB = 1 << 30

// QuotaBytes returns the per-user storage quota, defaulting to 1 GiB.
func QuotaBytes() int64 {
	v, err := strconv.ParseInt(os.Getenv("QUOTA_BYTES"), 10, 64)
	if err != nil || v <= 0 {
		return bytesPerGiB
	}
	return v
}

// LLMTimeoutMs returns the default LLM call deadline, bounded [1000,60000].
func LLMTimeoutMs() int {
	v, err := strconv.Atoi(os.Getenv("LLM_TIMEOUT_MS"))
	if err != nil || v < 1000 || v > 60000 {
		return 60000
	}
	return v
}

// SchedulerCron returns the consolidation scheduler's cron expression.
func SchedulerCron() string {
	v := os.Getenv("SCHEDULER_CRON")
	if v == "" {
		return "0 3 * * *"
	}
	return v
}

// SchedulerEnabled reports whether the scheduler should run its periodic
// tick. Defaults to true.
func SchedulerEnabled() bool {
	v := os.Getenv("SCHEDULER_ENABLED")
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

// SchedulerMaxLoad returns the [0,1] load ceiling above which scheduled
// (not manually triggered) maintenance is suppressed.
func SchedulerMaxLoad() float64 {
	v, err := strconv.ParseFloat(os.Getenv("SCHEDULER_MAX_LOAD"), 64)
	if err != nil || v < 0 || v > 1 {
		return 0.8
	}
	return v
}

// ConsolidationBatchSize returns how many episodic memories a single
// IdentifyClusters call considers, defaulting to 100.
func ConsolidationBatchSize() int {
	v, err := strconv.Atoi(os.Getenv("CONSOLIDATION_BATCH_SIZE"))
	if err != nil || v < 1 {
		return 100
	}
	return v
}

// ArchiveAgeDays returns the age threshold ArchiveOld uses when an archive
// request names none, defaulting to 90.
func ArchiveAgeDays() int {
	v, err := strconv.Atoi(os.Getenv("ARCHIVE_AGE_DAYS"))
	if err != nil || v < 1 {
		return 90
	}
	return v
}

// SessionTTL returns how many minutes after its start a session record is
// kept before the SessionStore's sweep removes it, defaulting to 60 (1 hour).
func SessionTTL() int {
	v, err := strconv.Atoi(os.Getenv("SESSION_TTL_MINUTES"))
	if err != nil || v < 1 {
		return 60
	}
	return v
}
