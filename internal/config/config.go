package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	Database    DatabaseConfig   `json:"database"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	Share       ShareConfig      `json:"share"`
	Timezone    string           `json:"timezone"`
	CORSAllow   []string         `json:"cors_allow"`
	OssMounts   []OssMount       `json:"oss_mounts"`
	Cleanup     CleanupConfig    `json:"cleanup"`
	LogConfig   logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type ShareConfig struct {
	TokenSecret   string `json:"token_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
	CodeLength    int    `json:"code_length"`
}

// OssMount maps a logical drive folder onto an S3-compatible bucket. Root is
// the path prefix inside the drive namespace, e.g. "alice/archive".
type OssMount struct {
	Root            string `json:"root"`
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style"`
}

type CleanupConfig struct {
	Enable bool   `json:"enable"`
	Cron   string `json:"cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Share.TokenSecret == "" {
		return nil, fmt.Errorf("share.token_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.Share.TokenTTLHours == 0 {
		cfg.Share.TokenTTLHours = 6
	}
	if cfg.Share.CodeLength == 0 {
		cfg.Share.CodeLength = 4
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Cleanup.Cron == "" {
		cfg.Cleanup.Cron = "*/30 * * * *"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	for i, mount := range cfg.OssMounts {
		if mount.Root == "" || mount.Bucket == "" || mount.Endpoint == "" {
			return nil, fmt.Errorf("oss_mounts[%d]: root/bucket/endpoint are required", i)
		}
	}
	return &cfg, nil
}
