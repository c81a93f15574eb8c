package config

import (
	"testing"
	"time"
)

func TestSnapshotBackend(t *testing.T) {
	t.Setenv("SNAPSHOT_BACKEND", "")
	if got := SnapshotBackend(); got != "file" {
		t.Errorf("SnapshotBackend() = %q, want %q", got, "file")
	}

	t.Setenv("SNAPSHOT_BACKEND", "sqlite")
	if got := SnapshotBackend(); got != "sqlite" {
		t.Errorf("SnapshotBackend() = %q, want %q", got, "sqlite")
	}
}

func TestMaxContextItems(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"default", "", 100},
		{"explicit", "25", 25},
		{"garbage", "lots", 100},
		{"negative", "-3", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAX_CONTEXT_ITEMS", tt.env)
			if got := MaxContextItems(); got != tt.want {
				t.Errorf("MaxContextItems() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestContextMaxAge(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"default", "", 24 * time.Hour},
		{"explicit", "90m", 90 * time.Minute},
		{"garbage", "soon", 24 * time.Hour},
		{"negative", "-1h", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONTEXT_MAX_AGE", tt.env)
			if got := ContextMaxAge(); got != tt.want {
				t.Errorf("ContextMaxAge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMinImportance(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want float64
	}{
		{"default", "", 0.1},
		{"explicit", "0.5", 0.5},
		{"zero is a valid floor", "0", 0},
		{"over range", "1.5", 0.1},
		{"under range", "-0.2", 0.1},
		{"garbage", "high", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MIN_IMPORTANCE", tt.env)
			if got := MinImportance(); got != tt.want {
				t.Errorf("MinImportance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCleanupInterval(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"default", "", 10 * time.Minute},
		{"explicit", "5m", 5 * time.Minute},
		{"zero means every write", "0s", 0},
		{"negative", "-1m", 10 * time.Minute},
		{"garbage", "often", 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLEANUP_INTERVAL", tt.env)
			if got := CleanupInterval(); got != tt.want {
				t.Errorf("CleanupInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSweepRPS(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want float64
	}{
		{"default unpaced", "", 0},
		{"explicit", "2.5", 2.5},
		{"negative", "-1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SWEEP_RPS", tt.env)
			if got := SweepRPS(); got != tt.want {
				t.Errorf("SweepRPS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	if got := LogLevel(); got != "info" {
		t.Errorf("LogLevel() = %q, want %q", got, "info")
	}

	t.Setenv("LOG_LEVEL", "debug")
	if got := LogLevel(); got != "debug" {
		t.Errorf("LogLevel() = %q, want %q", got, "debug")
	}
}
