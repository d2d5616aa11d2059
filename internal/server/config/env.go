package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SOCIALNET_"

// parseEnv loads ./.env when present (existing variables are not overridden)
// and then overlays SOCIALNET_* variables onto config.
func parseEnv(config *Config) {
	if err := loadDotEnv(".env"); err != nil {
		panic(err)
	}
	if err := applyEnv(config, os.LookupEnv); err != nil {
		panic(err)
	}
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	return r.lookup(envPrefix + key)
}

func (r *envReader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if v, ok := r.get(key); ok {
		*dst = splitList(v)
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = b
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = n
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = d
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.str("HTTP_ADDR", &config.HTTPAddr)
	r.str("GRPC_ADDR", &config.GRPCAddr)
	r.str("DATABASE_DSN", &config.DatabaseDSN)
	r.str("ACCESS_TOKEN_SECRET", &config.AccessTokenSecret)
	r.str("REFRESH_TOKEN_SECRET", &config.RefreshTokenSecret)
	r.duration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	r.duration("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	r.duration("REFRESH_COMMIT_TIMEOUT", &config.RefreshCommitTimeout)
	r.integer("LOGIN_RETRIES", &config.LoginRetries)
	r.boolean("COOKIE_SECURE", &config.CookieSecure)
	r.str("COOKIE_SAMESITE", &config.CookieSameSite)
	r.list("ALLOWED_ORIGINS", &config.AllowedOrigins)
	r.boolean("GUARD_CONFIRM_USER", &config.GuardConfirmUser)
	r.boolean("EXPOSE_ERRORS", &config.ExposeErrors)
	r.boolean("DEV_MODE", &config.DevMode)
	r.str("REDIS_ADDR", &config.RedisAddr)
	r.integer("LOGIN_RATE_LIMIT", &config.LoginRateLimit)
	r.duration("LOGIN_RATE_WINDOW", &config.LoginRateWindow)
	r.str("S3_ROOT_USER", &config.S3RootUser)
	r.str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	r.str("S3_BUCKET", &config.S3Bucket)
	r.str("S3_REGION", &config.S3Region)
	r.str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	r.duration("UPLOAD_URL_EXPIRY", &config.UploadURLExpiry)

	return errors.Join(r.errs...)
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
