package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deduper/internal/config"
	"deduper/internal/logging"
	"deduper/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "deduper.log"))
	if !strings.Contains(content, "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "hashing")
	component.Info("hashed file", logging.String(logging.FieldPath, "/tmp/a b.jpg"), logging.Int("bytes", 42))

	content := readLog(t, logPath)
	if !strings.Contains(content, " INFO hashing: hashed file") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, `path="/tmp/a b.jpg"`) {
		t.Fatalf("expected quoted path, got %q", content)
	}
	if !strings.Contains(content, "bytes=42") {
		t.Fatalf("expected int field, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("cache miss", logging.String("kind", "hash"))

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lower-case level, got %v", payload["level"])
	}
	ts, ok := payload["ts"].(string)
	if !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", ts); err != nil || !strings.HasSuffix(ts, "Z") {
		t.Fatalf("expected UTC millisecond timestamp, got %q", ts)
	}
	if _, ok := payload["time"]; ok {
		t.Fatalf("time key should be renamed, got %v", payload)
	}
	if payload["kind"] != "hash" {
		t.Fatalf("expected kind field, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAddsScanFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithStage(services.WithScanID(context.Background(), "scan-1"), "grouping")
	logging.WithContext(ctx, logger).Debug("grouped")

	content := readLog(t, logPath)
	if !strings.Contains(content, "scan_id=scan-1") || !strings.Contains(content, "stage=grouping") {
		t.Fatalf("expected context fields, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "exiftool failed", "metadata_extract_failed",
		logging.String(logging.FieldImpact, "file keeps empty metadata"))

	content := readLog(t, logPath)
	for _, want := range []string{"event_type=metadata_extract_failed", "error_hint=", `impact="file keeps empty metadata"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestErrorWithContextKeepsCallerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "error.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "cache unusable", "cache_open_failed",
		logging.String(logging.FieldErrorHint, "remove the cache file"))

	content := readLog(t, logPath)
	if !strings.Contains(content, "event_type=cache_open_failed") || !strings.Contains(content, `error_hint="remove the cache file"`) {
		t.Fatalf("unexpected error line %q", content)
	}
	if strings.Count(content, "error_hint=") != 1 || strings.Contains(content, "impact=") {
		t.Fatalf("defaults must not duplicate caller fields: %q", content)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}
