package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers understood by repository.Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Model providers understood by the llm router.
const (
	ProviderAuto   = "auto"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	OCR      OCRConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP and gRPC listener configuration
type ServerConfig struct {
	HTTPAddr           string
	GRPCAddr           string
	AuthTokens         map[string]string // token -> user
	AuthDisabled       bool
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxUploadBytes     int64
	RateLimitPerSecond float64
	RateLimitBurst     int
	HealthInterval     time.Duration
}

// LLMConfig holds model-provider configuration
type LLMConfig struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Temperature   float32
	Timeout       time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
	ExcerptChars  int
}

// PipelineConfig holds extraction and reconciliation thresholds
type PipelineConfig struct {
	Tolerance       float64 // relative declared-vs-computed gap that triggers a warning
	RowTolerance    float64 // vertical distance for grouping layout tokens into one row
	MinConfidence   float64
	FallbackEnabled bool
	RawSampleChars  int
	HeaderKeywords  []string
	AmbiguousBoth   bool // fill area and volume for codes that could be either
	MaxPages        int  // documents with more pages or sheets are rejected
}

// OCRConfig controls recognition of PDFs without a text layer
type OCRConfig struct {
	Enabled       bool
	Pdftoppm      string
	Tesseract     string
	Lang          string
	DPI           int
	MaxPages      int
	MinConfidence float64
}

// LogConfig selects the slog handler built by cmd
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:           getEnv("GRPC_ADDR", ""),
			AuthTokens:         parseAuthTokens(getEnv("AUTH_TOKENS", "")),
			AuthDisabled:       getEnvAsBool("AUTH_DISABLED", false),
			ReadTimeout:        getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("HTTP_WRITE_TIMEOUT", 3*time.Minute),
			IdleTimeout:        getEnvAsDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute),
			RequestTimeout:     getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 150*time.Second),
			ShutdownTimeout:    getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 20*time.Second),
			MaxUploadBytes:     int64(getEnvAsInt("MAX_UPLOAD_MB", 32)) << 20,
			RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 1),
			RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
			HealthInterval:     getEnvAsDuration("HEALTH_INTERVAL", 15*time.Second),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", ProviderAuto)),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:   getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxAttempts:   getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			BaseDelay:     getEnvAsDuration("LLM_BASE_DELAY", time.Second),
			ExcerptChars:  getEnvAsInt("LLM_EXCERPT_CHARS", 12000),
		},
		Pipeline: PipelineConfig{
			Tolerance:       getEnvAsFloat("RECONCILE_TOLERANCE", 0.05),
			RowTolerance:    getEnvAsFloat("LAYOUT_ROW_TOLERANCE", 3),
			MinConfidence:   getEnvAsFloat("MIN_CONFIDENCE", 0.6),
			FallbackEnabled: getEnvAsBool("LAYOUT_FALLBACK_ENABLED", true),
			RawSampleChars:  getEnvAsInt("RAW_SAMPLE_CHARS", 2000),
			HeaderKeywords:  getEnvAsList("LAYOUT_HEADER_KEYWORDS", nil),
			AmbiguousBoth:   getEnvAsBool("AMBIGUOUS_FILL_BOTH", false),
			MaxPages:        getEnvAsInt("DOCUMENT_MAX_PAGES", 50),
		},
		OCR: OCRConfig{
			Enabled:       getEnvAsBool("OCR_ENABLED", false),
			Pdftoppm:      getEnv("OCR_PDFTOPPM", "pdftoppm"),
			Tesseract:     getEnv("OCR_TESSERACT", "tesseract"),
			Lang:          getEnv("OCR_LANG", "fra+eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 20),
			MinConfidence: getEnvAsFloat("OCR_MIN_CONFIDENCE", 30),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAuthTokens reads "user:token,user2:token2". A bare token maps to user "api".
func parseAuthTokens(raw string) map[string]string {
	tokens := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		user, token, found := strings.Cut(part, ":")
		if !found {
			user, token = "api", part
		}
		user, token = strings.TrimSpace(user), strings.TrimSpace(token)
		if token != "" {
			tokens[token] = user
		}
	}
	return tokens
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("DB_DRIVER", c.Database.Driver, OneOf(DriverPostgres, DriverSQLite))
	if c.Database.Driver == DriverPostgres {
		v.Field("DB_URL", c.Database.DSN, Required)
	}
	v.Field("LLM_PROVIDER", c.LLM.Provider, OneOf(ProviderAuto, ProviderGemini, ProviderOpenAI, ProviderNone))
	switch c.LLM.Provider {
	case ProviderGemini:
		v.Field("GEMINI_API_KEY", c.LLM.GeminiAPIKey, Required)
	case ProviderOpenAI:
		v.Field("OPENAI_API_KEY", c.LLM.OpenAIAPIKey, Required)
	}
	v.Field("LLM_MAX_ATTEMPTS", float64(c.LLM.MaxAttempts), InRange(1, 10))
	v.Field("RECONCILE_TOLERANCE", c.Pipeline.Tolerance, InRange(0, 1))
	v.Field("LAYOUT_ROW_TOLERANCE", c.Pipeline.RowTolerance, InRange(0, 100))
	v.Field("MIN_CONFIDENCE", c.Pipeline.MinConfidence, InRange(0, 1))
	v.Field("DOCUMENT_MAX_PAGES", float64(c.Pipeline.MaxPages), InRange(0, 1000))
	if c.OCR.Enabled {
		v.Field("OCR_DPI", float64(c.OCR.DPI), InRange(72, 1200))
		v.Field("OCR_MIN_CONFIDENCE", c.OCR.MinConfidence, InRange(0, 100))
		v.Field("OCR_MAX_PAGES", float64(c.OCR.MaxPages), InRange(0, 1000))
	}

	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	v := NewValidator()
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	if !c.Server.AuthDisabled && len(c.Server.AuthTokens) == 0 {
		v.Field("AUTH_TOKENS", "", Required)
	}
	v.Field("MAX_UPLOAD_MB", float64(c.Server.MaxUploadBytes>>20), InRange(1, 512))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
