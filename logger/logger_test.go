package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"vidgen-gateway/config"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	log.WithField("video_id", "abc").Debug("status refreshed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["video_id"] != "abc" || entry["msg"] != "status refreshed" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewTextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAutoFormatUsesJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "bogus", Format: "auto"}, &buf)
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected fallback to info, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter for a buffer, got %T", log.Formatter)
	}
}
