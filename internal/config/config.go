package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Directory
		Database
		Import
		RefDataSync
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Directory struct {
		BaseURL  string
		Username string
		Password string
		Timeout  time.Duration
	}
	Database struct {
		Path string
	}
	Import struct {
		DefaultBatchSize int
		SessionTTL       time.Duration
	}
	RefDataSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 4 * * *" = daily at 04:00
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("directory_base_url", "")
	v.SetDefault("directory_username", "")
	v.SetDefault("directory_password", "")
	v.SetDefault("directory_timeout", "30s")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("import_batch_size", 50)
	v.SetDefault("import_session_ttl", "30m")
	v.SetDefault("refdata_sync_enabled", false)
	v.SetDefault("refdata_sync_schedule", "0 4 * * *") // Daily at 04:00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Directory: Directory{
			BaseURL:  v.GetString("DIRECTORY_BASE_URL"),
			Username: v.GetString("DIRECTORY_USERNAME"),
			Password: v.GetString("DIRECTORY_PASSWORD"),
			Timeout:  v.GetDuration("DIRECTORY_TIMEOUT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Import: Import{
			DefaultBatchSize: v.GetInt("IMPORT_BATCH_SIZE"),
			SessionTTL:       v.GetDuration("IMPORT_SESSION_TTL"),
		},
		RefDataSync: RefDataSync{
			Enabled:  v.GetBool("REFDATA_SYNC_ENABLED"),
			Schedule: v.GetString("REFDATA_SYNC_SCHEDULE"),
		},
	}
}
