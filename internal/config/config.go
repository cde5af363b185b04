package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings for the pipeline. Values come from the
// environment (optionally a .env file) with sensible defaults; only the
// credentials have no default.
type Config struct {
	DBPath      string
	DownloadDir string
	OutputDir   string

	GoogleClientID     string
	GoogleClientSecret string

	OpenAIAPIKey     string
	OpenAITextModel  string
	OpenAIImageModel string

	GmailQuery   string
	MaxResults   int64
	LookbackDays int

	// Quota guard tuning. The thresholds are observed operational constants,
	// not derived from anything; keep them adjustable.
	MaxFilesPerMessage int
	ArchiveCountLimit  int
	DirectCountLimit   int
	MaxAttachmentBytes int64

	MetricsAddr    string
	MetricsEnabled bool
}

// Load reads configuration from the environment, loading .env first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "invoices.db")),
		DownloadDir: getEnv("DOWNLOAD_DIR", filepath.Join(cwd, "downloads")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAITextModel:  getEnv("OPENAI_TEXT_MODEL", "gpt-4-turbo"),
		OpenAIImageModel: getEnv("OPENAI_IMAGE_MODEL", "gpt-4.1"),

		GmailQuery:   getEnv("GMAIL_QUERY", "has:attachment"),
		MaxResults:   int64(getEnvInt("GMAIL_MAX_RESULTS", 10)),
		LookbackDays: getEnvInt("THREAD_LOOKBACK_DAYS", 7),

		MaxFilesPerMessage: getEnvInt("MAX_FILES_PER_MESSAGE", 50),
		ArchiveCountLimit:  getEnvInt("ARCHIVE_COUNT_LIMIT", 5),
		DirectCountLimit:   getEnvInt("DIRECT_COUNT_LIMIT", 20),
		MaxAttachmentBytes: int64(getEnvInt("MAX_ATTACHMENT_BYTES", 25*1024*1024)),

		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
	}

	return cfg, nil
}

// Require returns an error when a mandatory setting is empty.
func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	switch value {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
