package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Backup   BackupConfig
	Auth     AuthConfig
	SMS      SMSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Path string
}

type BackupConfig struct {
	Dir  string
	Keep int
}

type AuthConfig struct {
	DefaultAdminPassword string
}

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	AdminPhone string
}

// Enabled reports whether enough credentials are set to reach the SMS gateway.
func (s SMSConfig) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != ""
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from the environment, after loading .env if it exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("HOSP_DB", "hospital.db"),
		},
		Backup: BackupConfig{
			Dir:  getEnv("HOSP_BACKUP_DIR", "backups"),
			Keep: parseInt(getEnv("HOSP_BACKUP_KEEP", "7"), 7),
		},
		Auth: AuthConfig{
			DefaultAdminPassword: getEnv("HOSP_ADMIN_PASSWORD", "admin"),
		},
		SMS: SMSConfig{
			AccountSID: getEnv("TWILIO_SID", ""),
			AuthToken:  getEnv("TWILIO_TOKEN", ""),
			From:       getEnv("TWILIO_FROM", ""),
			BaseURL:    getEnv("TWILIO_BASE_URL", ""),
			AdminPhone: getEnv("ADMIN_PHONE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "hospital.log"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: Invalid number '%s', using default %d\n", s, def)
		return def
	}
	return n
}
