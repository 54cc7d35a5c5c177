package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter()
	f.ColorOutput = false
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	str := string(out)
	if !strings.Contains(str, "INFO") {
		t.Error("Expected level INFO")
	}
	if !strings.Contains(str, "[Test]") {
		t.Error("Expected category [Test]")
	}
	if !strings.Contains(str, "Hello") {
		t.Error("Expected message Hello")
	}
	if !strings.Contains(str, "key=val") {
		t.Error("Expected field key=val")
	}
}

func TestJsonFormatter(t *testing.T) {
	f := NewJsonFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(out, &data); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if data["level"] != "INFO" {
		t.Error("Expected level INFO")
	}
	if data["category"] != "Test" {
		t.Error("Expected category Test")
	}
	fields, ok := data["fields"].(map[string]interface{})
	if !ok {
		t.Error("Expected fields map")
	} else if fields["key"] != "val" {
		t.Error("Expected key=val")
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer

	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddWriter(&buf).
		Build()

	logger := factory.CreateLogger("App").WithFields(Field{Key: "request", Value: 42})
	logger.Trace("ignored")
	logger.Info("started", Field{Key: "port", Value: 8080})

	output := buf.String()
	if strings.Contains(output, "ignored") {
		t.Error("Trace should be filtered below minimum level")
	}
	if !strings.Contains(output, "[App]") {
		t.Error("Expected category [App]")
	}
	if !strings.Contains(output, "request=42") {
		t.Error("Expected bound field request=42")
	}
	if !strings.Contains(output, "port=8080") {
		t.Error("Expected call field port=8080")
	}
	if lines := strings.Split(strings.TrimSpace(output), "\n"); len(lines) != 1 {
		t.Errorf("Expected 1 line, got %d", len(lines))
	}
}

func TestWithCategory(t *testing.T) {
	var buf bytes.Buffer

	factory := NewLoggingBuilder().AddWriter(&buf).Build()
	logger := factory.CreateLogger("A").WithCategory("B")
	logger.Warn("renamed")

	if !strings.Contains(buf.String(), "[B]") {
		t.Errorf("Expected category [B], got %q", buf.String())
	}
}
