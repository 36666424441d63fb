package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.DB.SSLMode = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig()
	c.DB.SSLMode = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_IngestionDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Ingestion.Interval != 5*time.Minute {
		t.Fatalf("expected 5m dispatch interval default, got %v", c.Ingestion.Interval)
	}
	if c.Ingestion.Queue != "jobs:pbx_ingestion" {
		t.Fatalf("expected dedicated ingestion queue default, got %q", c.Ingestion.Queue)
	}
	if c.Ingestion.LockTTL <= 0 {
		t.Fatalf("expected bounded lock lease default")
	}
	if c.Ingestion.Concurrency <= 0 {
		t.Fatalf("expected worker concurrency default")
	}
}

func TestValidate_RequiresPBXAPIKey(t *testing.T) {
	c := validConfig()
	c.PBX.APIKey = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing PBX_API_KEY")
	}
}

func TestValidate_CallbackSecretOptionalAtStartup(t *testing.T) {
	c := validConfig()
	c.Callback.Secret = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func validConfig() Config {
	return Config{
		App:      AppConfig{Env: "local", Port: 8080},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "recordings", SSLMode: "disable"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Auth:     AuthConfig{JWTSecret: "secret"},
		PBX:      PBXConfig{APIKey: "pbx-key"},
		Callback: CallbackConfig{Secret: "cb-secret"},
	}
}
