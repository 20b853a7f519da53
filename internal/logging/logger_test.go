package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"openbst/internal/config"
	"openbst/internal/logging"
	"openbst/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (func() string, logging.Options) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), format+"-"+level+".log")
	opts := logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath, logPath},
	}
	read := func() string {
		t.Helper()
		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(content)
	}
	return read, opts
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "openbst.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	read, opts := newFileLogger(t, "console", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")
	logger.Debug("filtered debug")

	content := read()
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(content, "filtered debug") {
		t.Fatalf("debug line written at info level: %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	read, opts := newFileLogger(t, "console", "debug")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := read(); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerLeadsWithSessionFields(t *testing.T) {
	read, opts := newFileLogger(t, "console", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-123")
	ctx = services.WithKind(ctx, "static_gain_compensation")
	component := logging.WithContext(ctx, logging.NewComponentLogger(logger, "provenance"))
	component.Info("process started",
		logging.String(logging.FieldStatus, "NEWNODE"),
		logging.String(logging.FieldNode, "01__static_gain_compensation__ab"),
		logging.Int(logging.FieldStep, 1),
		logging.String("detail", "two words"),
	)
	component.Info("bare line")

	lines := strings.Split(strings.TrimSpace(read()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	want := "INFO provenance[01__static_gain_compensation__ab] static_gain_compensation#1 NEWNODE run=run-123: process started detail=\"two words\""
	if !strings.HasSuffix(lines[0], want) {
		t.Fatalf("line = %q, want suffix %q", lines[0], want)
	}
	for _, key := range []string{"node=", "step=", "status=", "run_id=", "kind=", "component="} {
		if strings.Contains(lines[0], key) {
			t.Fatalf("session field %s repeated in tail: %q", key, lines[0])
		}
	}
	if want := "INFO provenance static_gain_compensation run=run-123: bare line"; !strings.HasSuffix(lines[1], want) {
		t.Fatalf("line = %q, want suffix %q", lines[1], want)
	}
}

func TestConsoleLoggerWithoutSessionFields(t *testing.T) {
	read, opts := newFileLogger(t, "console", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("index").Info("scan done", logging.Int("records", 3))

	if content := read(); !strings.Contains(content, " INFO scan done index.records=3") {
		t.Fatalf("unexpected line %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	read, opts := newFileLogger(t, "json", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("json line", logging.Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "json line" || entry["error"] != "boom" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, opts := newFileLogger(t, "xml", "info")
	if _, err := logging.New(opts); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextFillsRequiredFields(t *testing.T) {
	read, opts := newFileLogger(t, "console", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "requirement not met", "provenance_requirement",
		logging.String(logging.FieldImpact, "step was not computed"),
	)

	content := read()
	for _, want := range []string{
		"event_type=provenance_requirement",
		`error_hint="check logs for details"`,
		`impact="step was not computed"`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	read, opts := newFileLogger(t, "json", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-123")
	ctx = services.WithKind(ctx, "raw_decoding")
	logging.WithContext(ctx, logger).Info("step requested")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldRunID] != "run-123" || entry[logging.FieldKind] != "raw_decoding" {
		t.Fatalf("expected context fields in %v", entry)
	}

	if got := logging.WithContext(context.Background(), logger); got != logger {
		t.Fatal("expected the same logger when the context carries no fields")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled at any level")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}
