package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  host: 127.0.0.1
  port: 9090
database:
  dsn: postgres://localhost/reverie
s3:
  bucket: test-bucket
  region: us-east-1
worker:
  threads: 4
  stuckThresholdMinutes: 15
recap:
  baseURL: http://recap.internal
  timeoutMs: 5000
retention:
  enabled: true
  jobs:
    completedDays: 7
    failedDays: 30
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(path)
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.S3.Bucket != "test-bucket" {
		t.Fatalf("unexpected s3 config: %+v", cfg.S3)
	}
	if cfg.Worker.Threads != 4 || cfg.Worker.StuckThresholdMinutes != 15 {
		t.Fatalf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.Recap.BaseURL != "http://recap.internal" || cfg.Recap.TimeoutMs != 5000 {
		t.Fatalf("unexpected recap config: %+v", cfg.Recap)
	}
	if !cfg.Retention.Enabled || cfg.Retention.Jobs.FailedDays != 30 {
		t.Fatalf("unexpected retention config: %+v", cfg.Retention)
	}
}
