package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

const watchedConfig = `
datasets:
  email:
    shape: email
    source:
      url: https://noco.example.com/records
    business:
      hourly_rate: %s
`

func TestWatcherReloadsValidConfig(t *testing.T) {
	path := writeConfig(t, replaceRate(watchedConfig, "60"))

	changes := make(chan *Config, 4)
	w, err := newWatcher(path, 20*time.Millisecond, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(replaceRate(watchedConfig, "90")), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-changes:
		if got := cfg.Datasets["email"].Business.HourlyRate; got == nil || *got != 90 {
			t.Errorf("expected reloaded hourly_rate 90, got %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherFollowsAtomicSaves(t *testing.T) {
	path := writeConfig(t, replaceRate(watchedConfig, "60"))

	changes := make(chan *Config, 4)
	w, err := newWatcher(path, 20*time.Millisecond, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	// Editors save by writing a sibling file and renaming it over the original.
	// Two saves in a row check the watch survives the first replacement.
	for _, rate := range []string{"90", "120"} {
		tmp := filepath.Join(filepath.Dir(path), "config.yaml.tmp")
		if err := os.WriteFile(tmp, []byte(replaceRate(watchedConfig, rate)), 0644); err != nil {
			t.Fatalf("failed to write replacement: %v", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			t.Fatalf("failed to replace config: %v", err)
		}

		want, _ := strconv.ParseFloat(rate, 64)
		deadline := time.After(5 * time.Second)
	wait:
		for {
			select {
			case cfg := <-changes:
				if got := cfg.Datasets["email"].Business.HourlyRate; got != nil && *got == want {
					break wait
				}
			case <-deadline:
				t.Fatalf("timed out waiting for reload with hourly_rate %s", rate)
			}
		}
	}
}

func TestWatcherRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, replaceRate(watchedConfig, "60"))

	changes := make(chan *Config, 4)
	errs := make(chan error, 4)
	w, err := newWatcher(path, 20*time.Millisecond,
		func(c *Config) { changes <- c },
		func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("datasets: {}\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected a non-nil error")
		}
	case <-changes:
		t.Fatal("invalid config must not reach the callback")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rejection")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := writeConfig(t, replaceRate(watchedConfig, "60"))
	w, err := NewWatcher(path, func(*Config) {}, nil)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second stop should be a no-op, got %v", err)
	}
}

func TestNewWatcherMissingFile(t *testing.T) {
	if _, err := NewWatcher("/nonexistent/config.yaml", func(*Config) {}, nil); err == nil {
		t.Error("expected error watching a missing file")
	}
}

func replaceRate(tmpl, rate string) string {
	return fmt.Sprintf(tmpl, rate)
}
