package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:     AppConfig{Env: "local", Port: 8080},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "followup"},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Auth:    AuthConfig{JWTSecret: "secret"},
		Gateway: GatewayConfig{BaseURL: "http://localhost:8081"},
	}
}

func TestValidateReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for empty config")
	}
}

func TestValidateLocalMinimum(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "followup"
	c.Auth.JWTAudience = "dashboard"
	c.Gateway.APIKey = "k"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
	c.DB.SSLMode = "require"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error with sslmode set, got %v", err)
	}
}

func TestValidateProductionRequiresGatewayKey(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "followup"
	c.Auth.JWTAudience = "dashboard"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without GATEWAY_API_KEY")
	}
}

func TestValidateRequiresGatewayBaseURL(t *testing.T) {
	c := validLocal()
	c.Gateway.BaseURL = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error without GATEWAY_BASE_URL")
	}
}

func TestWithDefaults(t *testing.T) {
	c := validLocal().WithDefaults()

	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access TTL default: %v", c.Auth.AccessTokenTTL)
	}
	if c.GenAI.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected model default: %q", c.GenAI.Model)
	}
	if c.Engine.SendsPerMinute != 60 || c.Engine.MaxParallel != 8 {
		t.Fatalf("unexpected engine defaults: %+v", c.Engine)
	}
	if c.AMQP.InboundQueue != "followup.inbound" {
		t.Fatalf("unexpected queue default: %q", c.AMQP.InboundQueue)
	}
}

func TestHelpersFormatAddresses(t *testing.T) {
	c := validLocal().WithDefaults()
	if got := c.HTTPAddr(); got != ":8080" {
		t.Fatalf("unexpected http addr %q", got)
	}
	if got := c.RedisAddr(); got != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", got)
	}
	want := "host=localhost port=5432 user=postgres password=x dbname=followup sslmode=disable"
	if got := c.PostgresDSN(); got != want {
		t.Fatalf("unexpected dsn %q", got)
	}
}
