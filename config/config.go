// Package config holds the typed configuration for the statesyncd binary.
package config

import "time"

// StorageBackend selects the KeyValueStore implementation a store is
// backed by.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StoragePebble StorageBackend = "pebble"
)

// Config is the resolved configuration for a statesyncd run, after flags
// and defaults have been applied.
type Config struct {
	// DataDir roots the two on-disk stores (state/ and code/ subdirs)
	// when StorageBackend is StoragePebble. Ignored for StorageMemory.
	DataDir string

	StorageBackend StorageBackend

	// ProbeCacheBytes sizes the fastcache probe-acceleration layer in
	// front of each store; 0 disables it.
	ProbeCacheBytes int

	LogLevel string
	LogFile  string

	MetricsAddr string

	// RequestTimeout, divided by 1000, is the simulated round-trip delay
	// of the demonstration RequestExecutor. No timeout is enforced with it.
	RequestTimeout time.Duration

	// MaxPeers bounds how many concurrent RequestExecutor bindings the
	// CLI constructs and rotates through on InvalidPeerData or a request
	// timeout (see sync.RotatingExecutor). Must be at least 1.
	MaxPeers int
}

// Default returns the configuration used when no flags override it.
func Default() Config {
	return Config{
		DataDir:         "./statesyncd-data",
		StorageBackend:  StorageMemory,
		ProbeCacheBytes: 32 * 1024 * 1024,
		LogLevel:        "info",
		MetricsAddr:     ":6060",
		RequestTimeout:  10 * time.Second,
		MaxPeers:        3,
	}
}
