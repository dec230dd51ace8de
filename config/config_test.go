package config

import "testing"

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()
	if cfg.Postgres.Host != "localhost" || cfg.Postgres.Port != "5432" {
		t.Errorf("postgres defaults = %s:%s, want localhost:5432", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	if cfg.Postgres.SSLMode != "disable" {
		t.Errorf("sslmode default = %q, want disable", cfg.Postgres.SSLMode)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Encoding != "console" {
		t.Errorf("logger defaults = %s/%s, want debug/console", cfg.Logger.Level, cfg.Logger.Encoding)
	}
	if cfg.Postgres.MaxOpenConns != 10 {
		t.Errorf("max open conns default = %d, want 10", cfg.Postgres.MaxOpenConns)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("LOGGER_DISABLE_CALLER", "true")
	t.Setenv("DB_CONN_MAX_LIFETIME", "not-a-number")

	cfg := LoadEnv()
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != "6543" {
		t.Errorf("postgres = %s:%s, want db.internal:6543", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	if cfg.Postgres.MaxOpenConns != 25 {
		t.Errorf("max open conns = %d, want 25", cfg.Postgres.MaxOpenConns)
	}
	if !cfg.Logger.DisableCaller {
		t.Error("LOGGER_DISABLE_CALLER=true not applied")
	}
	if cfg.Postgres.ConnMaxLifetime != 300 {
		t.Errorf("unparseable int should fall back to 300, got %d", cfg.Postgres.ConnMaxLifetime)
	}
}
