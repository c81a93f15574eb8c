package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MNEMO_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MNEMO_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// SnapshotBackend returns the configured snapshot store backend.
// Defaults to "file" if not set.
// Valid values: file, sqlite, postgres, memory
func SnapshotBackend() string {
	b := os.Getenv("SNAPSHOT_BACKEND")
	if b == "" {
		return "file"
	}
	return b
}

func SnapshotDir() string {
	dir := os.Getenv("SNAPSHOT_DIR")
	if dir == "" {
		return "./data/sessions"
	}
	return dir
}

func SQLitePath() string {
	path := os.Getenv("SQLITE_PATH")
	if path == "" {
		return "./data/mnemo.db"
	}
	return path
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// MaxContextItems returns the per-session item cap.
// Defaults to 100 if not set.
func MaxContextItems() int {
	n, err := strconv.Atoi(os.Getenv("MAX_CONTEXT_ITEMS"))
	if err != nil || n <= 0 {
		return 100
	}
	return n
}

// ContextMaxAge returns how long an item stays retainable.
// Defaults to 24h if not set.
func ContextMaxAge() time.Duration {
	d, err := time.ParseDuration(os.Getenv("CONTEXT_MAX_AGE"))
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// MinImportance returns the retention floor. Items ranked below it are
// dropped at cleanup. Zero is a valid floor; defaults to 0.1 if not set
// or out of range.
func MinImportance() float64 {
	v, err := strconv.ParseFloat(os.Getenv("MIN_IMPORTANCE"), 64)
	if err != nil || v < 0 || v > 1 {
		return 0.1
	}
	return v
}

// CleanupInterval returns the spacing of the opportunistic cleanups that
// piggyback on writes. Zero means every write cleans up.
// Defaults to 10m if not set.
func CleanupInterval() time.Duration {
	raw := os.Getenv("CLEANUP_INTERVAL")
	if raw == "" {
		return 10 * time.Minute
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 10 * time.Minute
	}
	return d
}

// SweepInterval returns how often the session sweeper runs.
// Defaults to 1h if not set.
func SweepInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SessionMaxIdle returns how long a session may sit untouched before a
// sweep closes it. Defaults to 24h if not set.
func SessionMaxIdle() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SESSION_MAX_IDLE"))
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SweepRPS returns the persist rate during sweeps.
// Defaults to 0 (unpaced) if not set.
func SweepRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("SWEEP_RPS"), 64)
	if err != nil || rps < 0 {
		return 0
	}
	return rps
}

// SweepBurst returns the burst size for sweep pacing.
// Defaults to 1 if not set.
func SweepBurst() int {
	burst, err := strconv.Atoi(os.Getenv("SWEEP_BURST"))
	if err != nil || burst < 1 {
		return 1
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
