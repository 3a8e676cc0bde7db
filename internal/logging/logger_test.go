package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "flowboard.log")

		logger, err := NewLogger(Options{Level: LevelDebug, File: path})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", path)
		}
	})

	t.Run("writes to stderr when file is empty", func(t *testing.T) {
		logger, err := NewLogger(Options{Level: LevelInfo})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.closer != nil {
			t.Error("expected no closer when writing to stderr")
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "flowboard.log")

		logger, err := NewLogger(Options{Level: LevelInfo, File: path})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", path)
		}
	})
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
		wantError bool
	}{
		{LevelDebug, true, true, true, true},
		{LevelInfo, false, true, true, true},
		{LevelWarn, false, false, true, true},
		{LevelError, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.log")
			logger, err := NewLogger(Options{Level: tt.level, File: path})
			if err != nil {
				t.Fatalf("NewLogger failed: %v", err)
			}

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")
			logger.Close()

			content := readFile(t, path)
			checks := []struct {
				msg  string
				want bool
			}{
				{"debug message", tt.wantDebug},
				{"info message", tt.wantInfo},
				{"warn message", tt.wantWarn},
				{"error message", tt.wantError},
			}
			for _, c := range checks {
				got := strings.Contains(content, c.msg)
				if got != c.want {
					t.Errorf("level %s: contains(%q) = %v, want %v", tt.level, c.msg, got, c.want)
				}
			}
		})
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(Options{Level: LevelInfo, File: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("hello", "count", 3)
	logger.Close()

	line := firstLine(t, path)
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v\nline: %s", err, line)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
}

func TestLoggerTextFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(Options{Level: LevelInfo, Format: FormatText, File: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("plain message")
	logger.Close()

	line := firstLine(t, path)
	var entry map[string]any
	if json.Unmarshal([]byte(line), &entry) == nil {
		t.Errorf("text format should not produce JSON, got: %s", line)
	}
	if !strings.Contains(line, "plain message") {
		t.Errorf("line missing message: %s", line)
	}
}

func TestLoggerContextAttrs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(Options{Level: LevelInfo, File: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := logger.WithBoard("backend").WithTask("t-42").WithWave(2)
	child.Info("executing")
	logger.Close()

	var entry map[string]any
	if err := json.Unmarshal([]byte(firstLine(t, path)), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["board_id"] != "backend" {
		t.Errorf("board_id = %v, want backend", entry["board_id"])
	}
	if entry["task_id"] != "t-42" {
		t.Errorf("task_id = %v, want t-42", entry["task_id"])
	}
	if entry["wave"] != float64(2) {
		t.Errorf("wave = %v, want 2", entry["wave"])
	}
}

func TestLoggerWithDoesNotMutateParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(Options{Level: LevelInfo, File: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	_ = logger.With("extra", "value")
	logger.Info("parent message")
	logger.Close()

	if strings.Contains(firstLine(t, path), "extra") {
		t.Error("child attribute leaked into parent logger")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	// Must not panic or write anywhere.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func firstLine(t *testing.T, path string) string {
	t.Helper()
	content := readFile(t, path)
	lines := strings.SplitN(content, "\n", 2)
	if lines[0] == "" {
		t.Fatal("log file is empty")
	}
	return lines[0]
}
