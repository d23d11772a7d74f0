package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sgics/sgics/internal/flagx"
	"github.com/sgics/sgics/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations are
// timex.Duration so both "15m" and integer nanoseconds are accepted. Empty
// or absent fields leave the current value untouched. Admin credentials are
// deliberately not readable from the file.
type JsonConfig struct {
	HTTPAddr                     string          `json:"http_addr"`
	GRPCHealthAddr               string          `json:"grpc_health_addr"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	ReadinessTimeout             *timex.Duration `json:"readiness_timeout"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
	Environment                  string          `json:"environment"`
	LogLevel                     string          `json:"log_level"`
	LogFormat                    string          `json:"log_format"`
	MigrateOnStart               *bool           `json:"migrate_on_start"`
}

// parseJSON overlays the file named by -c/-config in args. No flag means
// nothing to load.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlay(&cfg.HTTPAddr, c.HTTPAddr)
	overlay(&cfg.GRPCHealthAddr, c.GRPCHealthAddr)
	overlay(&cfg.DatabaseDSN, c.DatabaseDSN)
	overlay(&cfg.SecretKey, c.SecretKey)
	overlay(&cfg.S3RootUser, c.S3RootUser)
	overlay(&cfg.S3RootPassword, c.S3RootPassword)
	overlay(&cfg.S3Bucket, c.S3Bucket)
	overlay(&cfg.S3Region, c.S3Region)
	overlay(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&cfg.Environment, c.Environment)
	overlay(&cfg.LogLevel, c.LogLevel)
	overlay(&cfg.LogFormat, c.LogFormat)

	if c.AccessTokenValidityDuration != nil {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		cfg.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.ReadinessTimeout != nil {
		cfg.ReadinessTimeout = c.ReadinessTimeout.Duration
	}
	if c.MigrateOnStart != nil {
		cfg.MigrateOnStart = *c.MigrateOnStart
	}
	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
