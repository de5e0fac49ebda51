// Package cli holds the wiring behind the espalier command: configuration
// loading, cache store selection and engine construction.
package cli

import (
	"time"
)

// Cache backends accepted by Options.Cache.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

// EncryptionKeyEnv names the variable holding the base64 cache encryption
// key. A comma separated list rotates keys: the first encrypts, all decrypt.
const EncryptionKeyEnv = "ESPALIER_CACHE_KEY"

// Options contains the configuration shared by all commands.
type Options struct {
	GraphPath   string
	ConfigFiles []string
	Sets        []string

	Cache       string
	CacheDir    string
	RedisURL    string
	CacheTTL    time.Duration
	MaxAttempts int
	Encrypt     string

	Enforce   bool
	LogLevel  string
	LogFormat string
}
