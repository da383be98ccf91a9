package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
)

func TestNew_ReleaseBuildWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}

	logger := newWithWriter(&buf, cfg, "1.2.3", "antenna")
	logger.Debug("hidden")
	logger.Info("batch published", "events", 3)

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record written at info level: %q", line)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, line)
	}
	for key, want := range map[string]any{
		"msg":     "batch published",
		"app":     "antenna",
		"version": "1.2.3",
		"env":     "prod",
		"events":  float64(3),
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %v", key, rec[key], want)
		}
	}
}

func TestNew_DevBuildIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}

	logger := newWithWriter(&buf, cfg, "dev", "beacon")
	logger.Debug("announce toggled", "active", true)

	out := buf.String()
	if !strings.Contains(out, "announce toggled") {
		t.Fatalf("output = %q, want message", out)
	}
	if !strings.Contains(out, "beacon") || !strings.Contains(out, "active") {
		t.Errorf("output = %q, want app and active attributes", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Errorf("dev output should not be JSON: %q", out)
	}
}
