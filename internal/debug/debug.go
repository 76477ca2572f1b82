// Package debug is the stderr logger shared by the psrfits packages.
// Debug output is off by default; warnings are always shown unless quiet.
package debug

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	enabled bool
	noColor bool
	quiet   bool
	out     io.Writer = os.Stderr
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// SetDebug enables or disables debug mode
func SetDebug(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = enable
}

// IsEnabled returns whether debug mode is enabled
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetNoColor enables or disables colored output
func SetNoColor(disable bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disable
}

// SetQuiet suppresses warnings. Debug output still follows SetDebug.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetOutput redirects all log output. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

func emit(level, color, msg string) {
	mu.RLock()
	useColor := !noColor
	w := out
	mu.RUnlock()

	timestamp := time.Now().Format("15:04:05.000")
	if useColor {
		fmt.Fprintf(w, "%s[%s]%s %s%s%s %s\n",
			color, level, colorReset, colorGray, timestamp, colorReset, msg)
	} else {
		fmt.Fprintf(w, "[%s] %s %s\n", level, timestamp, msg)
	}
}

// Debug prints a debug message with timestamp
func Debug(format string, args ...interface{}) {
	if !IsEnabled() {
		return
	}
	emit("DEBUG", colorCyan, fmt.Sprintf(format, args...))
}

// Debugf is an alias for Debug
func Debugf(format string, args ...interface{}) {
	Debug(format, args...)
}

// Warn prints a diagnostic regardless of debug mode.
func Warn(format string, args ...interface{}) {
	mu.RLock()
	q := quiet
	mu.RUnlock()
	if q {
		return
	}
	emit("WARN", colorYellow, fmt.Sprintf(format, args...))
}

// DebugSection prints a section header for debug output
func DebugSection(section string) {
	if !IsEnabled() {
		return
	}
	emit("DEBUG", colorCyan, fmt.Sprintf("=== %s ===", section))
}

// DebugValue prints key=value style debug info
func DebugValue(key string, value interface{}) {
	if !IsEnabled() {
		return
	}
	emit("DEBUG", colorCyan, fmt.Sprintf("%s = %v", key, value))
}

// DebugJSON prints structured data as JSON for debugging
func DebugJSON(key string, v interface{}) {
	if !IsEnabled() {
		return
	}

	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		Debug("Failed to marshal %s to JSON: %v", key, err)
		return
	}
	emit("DEBUG", colorCyan, fmt.Sprintf("%s:\n%s", key, string(jsonBytes)))
}
