package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("ingesting %s", "1999letter.pdf")

	if got := buf.String(); got != "[DEBUG] ingesting 1999letter.pdf\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("should not appear")

	if buf.Len() > 0 {
		t.Error("expected no output when verbose is disabled")
	}
}

func TestWarn_AlwaysPrints(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("dimension mismatch")

	if !strings.Contains(buf.String(), "[WARN] dimension mismatch") {
		t.Errorf("expected warning output, got %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Ingestion")

	if !strings.Contains(buf.String(), "=== Ingestion ===") {
		t.Errorf("expected section header, got %q", buf.String())
	}
}
