package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"chartmaster/config"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level   string
		verbose bool
		want    logrus.Level
	}{
		{"", false, logrus.InfoLevel},
		{"warn", false, logrus.WarnLevel},
		{"warn", true, logrus.DebugLevel},
		{"trace", true, logrus.TraceLevel},
	}
	for _, tc := range cases {
		log, closer, err := New(config.LogConfig{Level: tc.level}, tc.verbose)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.level, err)
		}
		closer.Close()
		if log.GetLevel() != tc.want {
			t.Errorf("level(%q, verbose=%v) = %s, want %s", tc.level, tc.verbose, log.GetLevel(), tc.want)
		}
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud"}, false); err == nil {
		t.Fatal("bad level accepted")
	}
	if _, _, err := New(config.LogConfig{Format: "xml"}, false); err == nil {
		t.Fatal("bad format accepted")
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chartmaster.log")
	log, closer, err := New(config.LogConfig{File: path, Format: "json", MaxSizeMB: 1}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.WithField("component", "test").Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) || !strings.Contains(string(data), `"component":"test"`) {
		t.Fatalf("log file = %s", data)
	}
}
