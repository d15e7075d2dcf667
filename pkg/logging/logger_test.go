package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the log directory at a temp dir and resets global state
func setupTestDir(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	t.Setenv(DirEnv, tempDir)

	origLogDir, origInitErr := logDir, initErr
	origSessionID := sessionID

	logDir = ""
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir, initErr = origLogDir, origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
	})
	return tempDir
}

func TestNewLogger(t *testing.T) {
	dir := setupTestDir(t)

	logger, err := NewLogger("orchestrator")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	if filepath.Dir(logger.LogPath()) != dir {
		t.Errorf("Expected log in %s, got %s", dir, logger.LogPath())
	}
	if !strings.HasSuffix(logger.LogPath(), "-pagechat.log") {
		t.Errorf("Unexpected log file name %q", filepath.Base(logger.LogPath()))
	}
	if _, err := os.Stat(logger.LogPath()); err != nil {
		t.Errorf("Log file does not exist: %v", err)
	}
}

func TestLoggerFormattingAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "gemini")

	logger.Debugf("hidden %d", 1)
	logger.Infof("status=%d", 200)
	logger.Warnf("retry %d", 2)
	logger.Errorf("failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level:\n%s", out)
	}
	for _, want := range []string{
		"[gemini] [INFO] status=200",
		"[gemini] [WARN] retry 2",
		"[gemini] [ERROR] failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	logger.SetLevel(LevelDebug)
	logger.Debugf("visible")
	if !strings.Contains(buf.String(), "[gemini] [DEBUG] visible") {
		t.Errorf("debug entry missing: %q", buf.String())
	}
}

func TestMultipleComponentsShareFile(t *testing.T) {
	setupTestDir(t)

	logger1, err := NewLogger("server")
	if err != nil {
		t.Fatalf("Failed to create logger1: %v", err)
	}
	defer logger1.Close()

	logger2, err := NewLogger("orchestrator")
	if err != nil {
		t.Fatalf("Failed to create logger2: %v", err)
	}
	defer logger2.Close()

	if logger1.LogPath() != logger2.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", logger1.LogPath(), logger2.LogPath())
	}

	logger1.Infof("from server")
	logger2.Infof("from orchestrator")

	content, err := os.ReadFile(logger1.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "[server] [INFO] from server") ||
		!strings.Contains(string(content), "[orchestrator] [INFO] from orchestrator") {
		t.Errorf("unexpected content:\n%s", content)
	}
}

func TestWithSubComponent(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "server").With("sse").Infof("flush")
	if !strings.Contains(buf.String(), "[server.sse] [INFO] flush") {
		t.Errorf("unexpected entry %q", buf.String())
	}
}

func TestNilAndDiscard(t *testing.T) {
	var nilLogger *Logger
	nilLogger.Infof("ignored")
	Discard("x").Errorf("ignored")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo, "warning": LevelWarn, "error": LevelError}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFallbackToStderr(t *testing.T) {
	setupTestDir(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(DirEnv, filepath.Join(blocker, "logs"))

	logger, err := NewLogger("test")
	if err == nil {
		t.Fatal("expected error when the log directory cannot be created")
	}
	if logger == nil || logger.LogPath() != "" {
		t.Fatalf("expected stderr fallback logger, got %+v", logger)
	}
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
