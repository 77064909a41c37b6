package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"monfari.org/internal/obs"
)

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerWithWriter("info", &buf)

	ctx := WithConnID(context.Background(), "conn-123")

	if err := LogEvent(ctx, logger, "audit.test", map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["conn_id"] != "conn-123" {
		t.Fatalf("unexpected conn id: %v", entry["conn_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerWithWriter("info", &buf)
	if err := LogEvent(context.Background(), logger, "  ", nil); err == nil {
		t.Fatal("expected error for blank event")
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestConnIDBlankIgnored(t *testing.T) {
	ctx := WithConnID(context.Background(), " ")
	if _, ok := ConnIDFromContext(ctx); ok {
		t.Fatal("blank conn id should not be stored")
	}
}
