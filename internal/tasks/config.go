package tasks

import "time"

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 1
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 2h
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults. A full sync can run
// for a long time, so stuck tasks are released late.
func DefaultConfig() Config {
	return Config{
		Workers:         1,
		ReleaseAfter:    2 * time.Hour,
		CleanupInterval: time.Hour,
	}
}
