package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/socialnet/internal/flagx"
	"github.com/dmitrijs2005/socialnet/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// both "15m" style strings and integer nanoseconds. Absent keys leave the
// current value untouched, which is why the booleans are pointers.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	GRPCAddr                     string         `json:"grpc_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RefreshCommitTimeout         timex.Duration `json:"refresh_commit_timeout"`
	LoginRetries                 int            `json:"login_retries"`
	CookieSecure                 *bool          `json:"cookie_secure"`
	CookieSameSite               string         `json:"cookie_same_site"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	GuardConfirmUser             *bool          `json:"guard_confirm_user"`
	ExposeErrors                 *bool          `json:"expose_errors"`
	DevMode                      *bool          `json:"dev_mode"`
	RedisAddr                    string         `json:"redis_addr"`
	LoginRateLimit               int            `json:"login_rate_limit"`
	LoginRateWindow              timex.Duration `json:"login_rate_window"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	UploadURLExpiry              timex.Duration `json:"upload_url_expiry"`
}

// parseJson overlays the file named by -c / -config (or $SOCIALNET_CONFIG)
// onto config. No file means no change. Unreadable or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.CookieSameSite, c.CookieSameSite)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.RefreshCommitTimeout.Duration != 0 {
		config.RefreshCommitTimeout = c.RefreshCommitTimeout.Duration
	}
	if c.LoginRateWindow.Duration != 0 {
		config.LoginRateWindow = c.LoginRateWindow.Duration
	}
	if c.UploadURLExpiry.Duration != 0 {
		config.UploadURLExpiry = c.UploadURLExpiry.Duration
	}
	if c.LoginRetries != 0 {
		config.LoginRetries = c.LoginRetries
	}
	if c.LoginRateLimit != 0 {
		config.LoginRateLimit = c.LoginRateLimit
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	}

	setBool(&config.CookieSecure, c.CookieSecure)
	setBool(&config.GuardConfirmUser, c.GuardConfirmUser)
	setBool(&config.ExposeErrors, c.ExposeErrors)
	setBool(&config.DevMode, c.DevMode)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
