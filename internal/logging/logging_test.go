package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("not-a-level")
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
	if New("debug").GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level")
	}
}

func TestLogErrorWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("error")
	logger.SetOutput(&buf)

	LogError(logger, "service", "Create", "cloud insert", map[string]any{"id": 1}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "boom" || entry["module"] != "service" || entry["funcName"] != "Create" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["data"] == nil {
		t.Fatalf("expected data field")
	}
}
