package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/contentforge/studio/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestResolveFileUsesWritablePath(t *testing.T) {
	base := t.TempDir()
	t.Setenv("WRITABLE_PATH", base)

	if got := ResolveFile("logs/studio.log"); got != filepath.Join(base, "logs", "studio.log") {
		t.Fatalf("unexpected path %q", got)
	}
	if got := ResolveFile("/var/log/studio.log"); got != "/var/log/studio.log" {
		t.Fatalf("expected absolute path to be kept, got %q", got)
	}
	if got := ResolveFile(" "); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}

func TestSetup(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(os.Stderr)
	})

	file := filepath.Join(t.TempDir(), "studio.log")
	closer, err := Setup(config.LoggingConfig{Level: "debug", File: file})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { _ = closer.Close() })
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}

	if _, errBad := Setup(config.LoggingConfig{Level: "loud"}); errBad == nil {
		t.Fatalf("expected invalid level to fail")
	}
}
