package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
server:
  port: 9090
  api_key: secret
database:
  host: db.local
  name: facegate
  user: app
  password: pw
nats:
  url: nats://localhost:4222
minio:
  endpoint: localhost:9000
  access_key: ak
  secret_key: sk
  bucket: captures
vision:
  models_dir: /models
recognition:
  threshold: 0.7
attendance:
  entry: "09:00"
  exit: "18:00"
  weekdays: daily
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Recognition.Threshold != 0.7 {
		t.Errorf("threshold = %v, want 0.7", cfg.Recognition.Threshold)
	}
	if cfg.Attendance.Entry != "09:00" || cfg.Attendance.Exit != "18:00" {
		t.Errorf("shift window = %s-%s, want 09:00-18:00", cfg.Attendance.Entry, cfg.Attendance.Exit)
	}
	if cfg.Attendance.Weekdays != "daily" {
		t.Errorf("weekdays = %q, want daily", cfg.Attendance.Weekdays)
	}

	want := "postgres://app:pw@db.local:5432/facegate?sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Recognition.Threshold != 0.6 {
		t.Errorf("default threshold = %v, want 0.6", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.EmbeddingDim != 512 {
		t.Errorf("default embedding dim = %d, want 512", cfg.Recognition.EmbeddingDim)
	}
	if cfg.Recognition.Index != "postgres" {
		t.Errorf("default index = %q, want postgres", cfg.Recognition.Index)
	}
	if cfg.Attendance.Entry != "08:00" || cfg.Attendance.Exit != "17:00" {
		t.Errorf("default shift = %s-%s, want 08:00-17:00", cfg.Attendance.Entry, cfg.Attendance.Exit)
	}
	if cfg.Attendance.ToleranceMinutes != 10 {
		t.Errorf("default tolerance = %d, want 10", cfg.Attendance.ToleranceMinutes)
	}
	if cfg.Attendance.ExitGrace != Duration(2*time.Hour) {
		t.Errorf("default exit grace = %s, want 2h", time.Duration(cfg.Attendance.ExitGrace))
	}
	if cfg.Attendance.NonWorkdayOvertimeHours != 8.0 {
		t.Errorf("default non-workday overtime = %v, want 8.0", cfg.Attendance.NonWorkdayOvertimeHours)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FG_DB_HOST", "override.host")
	t.Setenv("FG_RECOGNITION_THRESHOLD", "0.85")
	t.Setenv("FG_RECOGNITION_INDEX", "memory")
	t.Setenv("FG_API_KEY", "env-key")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Host != "override.host" {
		t.Errorf("db host = %q, want override.host", cfg.Database.Host)
	}
	if cfg.Recognition.Threshold != 0.85 {
		t.Errorf("threshold = %v, want 0.85", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.Index != "memory" {
		t.Errorf("index = %q, want memory", cfg.Recognition.Index)
	}
	if cfg.Server.APIKey != "env-key" {
		t.Errorf("api key = %q, want env-key", cfg.Server.APIKey)
	}
}

func TestExitGraceFromString(t *testing.T) {
	cfg, err := Load(writeConfig(t, "attendance:\n  exit_grace: 90m\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Attendance.ExitGrace != Duration(90*time.Minute) {
		t.Errorf("exit grace = %s, want 90m", time.Duration(cfg.Attendance.ExitGrace))
	}

	if _, err := Load(writeConfig(t, "attendance:\n  exit_grace: soon\n")); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
