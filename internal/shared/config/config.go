package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"readability-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	LogLevel           string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	S3Endpoint         string
	SSEKMSKeyID        string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	DatabaseURL        string
	Env                string
	JWTSecret          string
	PublicBaseURL      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	AdminEmails        []string
	Pipeline           PipelineConfig
}

// PipelineConfig carries the tunables handed to the analysis orchestrator.
type PipelineConfig struct {
	Models              []ModelConfig  `yaml:"models"`
	ModelTimeoutSeconds int            `yaml:"model_timeout_seconds"`
	FetchTimeoutSeconds int            `yaml:"fetch_timeout_seconds"`
	FetchRatePerMinute  int            `yaml:"fetch_rate_per_minute"`
	MaxRedirects        int            `yaml:"max_redirects"`
	SnapshotEnabled     bool           `yaml:"snapshot_enabled"`
	RoleLimits          map[string]int `yaml:"role_limits"`
}

// ModelConfig describes one reader model reached through an OpenAI-compatible endpoint.
type ModelConfig struct {
	Key            string `yaml:"key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"-"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Enabled        bool   `yaml:"enabled"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("APP_ENV", getEnv("ENV", "dev")))
	dbURL := getEnv("DB_URL", os.Getenv("DATABASE_URL"))

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"))),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE_TYPE", getEnv("OBJECT_STORE", "local"))),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          getEnv("S3_REGION", getEnv("AWS_REGION", "")),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:        getEnv("MINIO_BUCKET", "readability-snapshots"),
		MinioUseSSL:        getBool("MINIO_USE_SSL", false),
		DatabaseURL:        dbURL,
		Env:                env,
		JWTSecret:          getEnv("JWT_SECRET", ""),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
		AdminEmails:        splitAndTrim(getEnv("ADMIN_EMAILS", "")),
		Pipeline:           pipelineFromEnv(),
	}

	if path := os.Getenv("READABILITY_CONFIG"); path != "" {
		if err := applyYAMLFile(&cfg.Pipeline, path); err != nil {
			telemetry.Warn("config.overlay_ignored", map[string]any{"path": path, "error": err.Error()})
		}
	}
	resolveModelKeys(cfg.Pipeline.Models)
	return cfg
}

// Validate reports settings that cannot work in the selected environment.
// Dev and local runs fall back to memory repositories and a local store, so
// only deployed environments are checked strictly.
func (c Config) Validate() error {
	var errs []error
	deployed := c.Env == "production" || c.Env == "staging"
	if deployed && strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DB_URL is required"))
	}
	if deployed && strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(c.S3Bucket) == "" {
			errs = append(errs, errors.New("OBJECT_STORE_TYPE=s3 requires S3_BUCKET"))
		}
	case "minio":
		if strings.TrimSpace(c.MinioEndpoint) == "" {
			errs = append(errs, errors.New("OBJECT_STORE_TYPE=minio requires MINIO_ENDPOINT"))
		}
	}
	return errors.Join(errs...)
}

// DefaultModels returns the three reader models with their default endpoints.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{Key: "claude", Model: "claude-sonnet-4-5-20250929", BaseURL: "https://api.anthropic.com/v1", APIKeyEnv: "ANTHROPIC_API_KEY", Enabled: true},
		{Key: "openai", Model: "gpt-4o", BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY", Enabled: true},
		{Key: "gemini", Model: "gemini-2.0-flash", BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", APIKeyEnv: "GEMINI_API_KEY", Enabled: true},
	}
}

func pipelineFromEnv() PipelineConfig {
	return PipelineConfig{
		Models:              DefaultModels(),
		ModelTimeoutSeconds: getInt("MODEL_TIMEOUT_SECONDS", 60),
		FetchTimeoutSeconds: getInt("FETCH_TIMEOUT_SECONDS", 30),
		FetchRatePerMinute:  getInt("FETCH_RATE_PER_MINUTE", 60),
		MaxRedirects:        getInt("FETCH_MAX_REDIRECTS", 5),
		SnapshotEnabled:     getBool("SNAPSHOT_ENABLED", true),
	}
}

func resolveModelKeys(models []ModelConfig) {
	for i := range models {
		if models[i].APIKey == "" && models[i].APIKeyEnv != "" {
			models[i].APIKey = os.Getenv(models[i].APIKeyEnv)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	return lo.FilterMap(strings.Split(raw, ","), func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
