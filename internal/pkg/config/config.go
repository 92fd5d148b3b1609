package config

import (
	"io"
	"time"
)

// DurationConfig reads integer values as durations of a fixed unit.
type DurationConfig interface {
	// GetMillisecond reads key as a number of milliseconds.
	GetMillisecond(key string) time.Duration
	// GetSecond reads key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads key as a number of minutes.
	GetMinute(key string) time.Duration
}

// Config is the read-only view of the application configuration.
//
// Missing keys yield zero values; callers decide their own defaults.
type Config interface {
	io.Closer
	DurationConfig

	GetBool(key string) bool
	GetInt(key string) int
	GetFloat64(key string) float64
	GetString(key string) string

	// GetArray reads key either as a YAML list or as "a,b,c". Blank items are
	// dropped.
	GetArray(key string) []string

	// GetMap reads key as "k:v,k:v".
	GetMap(key string) map[string]string

	// IsSet reports whether key has a value from any source.
	IsSet(key string) bool
}
