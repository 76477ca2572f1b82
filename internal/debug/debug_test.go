package debug

import (
	"bytes"
	"strings"
	"testing"
)

// capture routes log output into a buffer for the duration of the test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(nil)
		SetDebug(false)
		SetQuiet(false)
	})
	return &buf
}

func TestSetDebug(t *testing.T) {
	// Initially disabled
	SetDebug(false)
	if IsEnabled() {
		t.Error("Debug should be disabled initially")
	}

	// Enable
	SetDebug(true)
	if !IsEnabled() {
		t.Error("Debug should be enabled")
	}

	// Disable again
	SetDebug(false)
	if IsEnabled() {
		t.Error("Debug should be disabled again")
	}
}

func TestDebugOutput(t *testing.T) {
	buf := capture(t)
	SetDebug(true)

	Debug("test message %s", "arg")

	output := buf.String()
	if !strings.Contains(output, "[DEBUG]") {
		t.Errorf("Output should contain [DEBUG] prefix, got: %s", output)
	}
	if !strings.Contains(output, "test message arg") {
		t.Errorf("Output should contain message, got: %s", output)
	}
	// Should contain timestamp
	if !strings.Contains(output, ":") {
		t.Errorf("Output should contain timestamp, got: %s", output)
	}
}

func TestDebugDisabled(t *testing.T) {
	buf := capture(t)
	SetDebug(false)

	Debug("this should not appear")

	if buf.Len() != 0 {
		t.Errorf("Debug output should be empty when disabled, got: %s", buf.String())
	}
}

func TestWarn(t *testing.T) {
	t.Run("shown without debug", func(t *testing.T) {
		buf := capture(t)
		SetDebug(false)

		Warn("card %s rewritten", "TBIN")

		if !strings.Contains(buf.String(), "[WARN]") || !strings.Contains(buf.String(), "card TBIN rewritten") {
			t.Errorf("unexpected warning output: %q", buf.String())
		}
	})

	t.Run("suppressed when quiet", func(t *testing.T) {
		buf := capture(t)
		SetQuiet(true)

		Warn("hidden")

		if buf.Len() != 0 {
			t.Errorf("Warn output should be empty when quiet, got: %s", buf.String())
		}
	})
}

func TestDebugSection(t *testing.T) {
	buf := capture(t)
	SetDebug(true)

	DebugSection("Test Section")

	output := buf.String()
	if !strings.Contains(output, "[DEBUG]") {
		t.Errorf("Output should contain [DEBUG] prefix, got: %s", output)
	}
	if !strings.Contains(output, "=== Test Section ===") {
		t.Errorf("Output should contain section header, got: %s", output)
	}
}

func TestDebugValue(t *testing.T) {
	buf := capture(t)
	SetDebug(true)

	DebugValue("NAXIS1", 4326)

	if !strings.Contains(buf.String(), "NAXIS1 = 4326") {
		t.Errorf("Output should contain key=value, got: %s", buf.String())
	}
}

func TestDebugJSON(t *testing.T) {
	buf := capture(t)
	SetDebug(true)

	testData := map[string]interface{}{
		"foo": "bar",
		"num": 42,
	}
	DebugJSON("testData", testData)

	output := buf.String()
	if !strings.Contains(output, "testData:") {
		t.Errorf("Output should contain key, got: %s", output)
	}
	if !strings.Contains(output, "\"foo\"") {
		t.Errorf("Output should contain JSON data, got: %s", output)
	}
}
