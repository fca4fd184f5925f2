// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port int `envconfig:"port" default:"8080"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	// Signing secrets must be distinct per token kind; startup fails when
	// they are equal.
	AccessTokenSecret  string        `envconfig:"access_token_secret" required:"true"`
	RefreshTokenSecret string        `envconfig:"refresh_token_secret" required:"true"`
	AccessTokenTTL     time.Duration `envconfig:"access_token_ttl" default:"15m"`
	RefreshTokenTTL    time.Duration `envconfig:"refresh_token_ttl" default:"168h"`
	TokenIssuer        string        `envconfig:"token_issuer" default:"teamtrait-identity"`

	InvitationLifetime time.Duration `envconfig:"invitation_lifetime" default:"168h"`

	// Base URL used to build invitation and OAuth callback links.
	BaseURL string `envconfig:"base_url" default:"http://localhost:8080"`

	GoogleClientID     string `envconfig:"google_client_id"`
	GoogleClientSecret string `envconfig:"google_client_secret"`
	GoogleIssuer       string `envconfig:"google_issuer" default:"https://accounts.google.com"`

	MailerURL    string `envconfig:"mailer_url"`
	MailerAPIKey string `envconfig:"mailer_api_key"`

	// Login and refresh attempts allowed per minute per remote address.
	LoginRatePerMinute int `envconfig:"login_rate_per_minute" default:"30"`
	LoginRateBurst     int `envconfig:"login_rate_burst" default:"10"`

	CORSAllowedOrigins []string `envconfig:"cors_allowed_origins" default:"*"`
}
