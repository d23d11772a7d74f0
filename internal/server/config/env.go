package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotenvLoad is a seam for tests.
var dotenvLoad = godotenv.Load

// parseEnv loads an optional .env file from the working directory and then
// overlays every recognised environment variable that is set and non-empty.
// Variables already present in the process environment win over .env.
//
//	SGICS_HTTP_ADDR, SGICS_GRPC_HEALTH_ADDR, DATABASE_URL, SECRET_KEY,
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, READINESS_TIMEOUT,
//	S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_ENDPOINT,
//	SGICS_ENV, LOG_LEVEL, LOG_FORMAT, SGICS_MIGRATE_ON_START,
//	ADMIN_USERNAME, ADMIN_EMAIL, ADMIN_PASSWORD
func parseEnv(cfg *Config) {
	_ = dotenvLoad()

	setString(&cfg.HTTPAddr, "SGICS_HTTP_ADDR")
	setString(&cfg.GRPCHealthAddr, "SGICS_GRPC_HEALTH_ADDR")
	setString(&cfg.DatabaseDSN, "DATABASE_URL")
	setString(&cfg.SecretKey, "SECRET_KEY")
	setDuration(&cfg.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	setDuration(&cfg.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	setDuration(&cfg.ReadinessTimeout, "READINESS_TIMEOUT")
	setString(&cfg.S3RootUser, "S3_ACCESS_KEY")
	setString(&cfg.S3RootPassword, "S3_SECRET_KEY")
	setString(&cfg.S3Bucket, "S3_BUCKET")
	setString(&cfg.S3Region, "S3_REGION")
	setString(&cfg.S3BaseEndpoint, "S3_ENDPOINT")
	setString(&cfg.Environment, "SGICS_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setBool(&cfg.MigrateOnStart, "SGICS_MIGRATE_ON_START")

	setString(&cfg.AdminUsername, "ADMIN_USERNAME")
	setString(&cfg.AdminEmail, "ADMIN_EMAIL")
	setString(&cfg.AdminPassword, "ADMIN_PASSWORD")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Malformed durations and booleans are ignored; Validate catches the
// resulting defaults if they are unusable.
func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
