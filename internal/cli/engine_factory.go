package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/adapters/noop"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/cache"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/typecheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	backend "github.com/redis/go-redis/v9"
)

// Stack is what BuildStore produces: the store cached nodes use, plus the
// options they need to share it across processes.
type Stack struct {
	Store     ports.Store
	CacheOpts []cache.Option
	Close     func() error
}

// BuildStore selects the cache backend and wraps it with the metrics and,
// when a key is given, encryption middleware. reg may be nil.
func BuildStore(fs afero.Fs, opts Options, reg prometheus.Registerer, logger *slog.Logger) (*Stack, error) {
	stack := &Stack{Close: func() error { return nil }}

	switch opts.Cache {
	case "", CacheMemory:
		stack.Store = memory.NewStore()
		stack.CacheOpts = append(stack.CacheOpts, cache.WithSingleFlight())
	case CacheNone:
		stack.Store = noop.NewStore()
	case CacheFile:
		dir := opts.CacheDir
		if dir == "" {
			dir = ".espalier/cache"
		}
		stack.Store = file.New(dir, file.WithFs(fs))
		stack.CacheOpts = append(stack.CacheOpts, cache.WithSingleFlight())
	case CacheRedis:
		redisOpts, err := backend.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(redisOpts)
		var storeOpts []redis.Option
		if opts.CacheTTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(opts.CacheTTL))
		}
		store := redis.NewFromClient(client, storeOpts...)
		stack.Store = store
		stack.CacheOpts = append(stack.CacheOpts, cache.WithLocker(redis.NewLocker(client, "espalier:"), 0))
		stack.Close = store.Close
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want %s, %s, %s or %s)", opts.Cache, CacheMemory, CacheFile, CacheRedis, CacheNone)
	}

	mws := []middleware.Middleware{}
	if reg != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(middleware.NewMetrics(reg)))
	}
	if opts.Encrypt != "" {
		enc, err := encryptionConfig(opts.Encrypt)
		if err != nil {
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	stack.Store = middleware.Chain(stack.Store, mws...)

	stack.CacheOpts = append(stack.CacheOpts, cache.WithLogger(logger))
	if opts.MaxAttempts != 0 {
		stack.CacheOpts = append(stack.CacheOpts, cache.WithMaxAttempts(opts.MaxAttempts))
	}
	logger.Debug("cache store ready", "backend", opts.Cache, "encrypted", opts.Encrypt != "")
	return stack, nil
}

func encryptionConfig(keys string) (middleware.EncryptionConfig, error) {
	var cfg middleware.EncryptionConfig
	for i, encoded := range strings.Split(keys, ",") {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return cfg, fmt.Errorf("cache key %d is not base64: %w", i, err)
		}
		if len(key) != 32 {
			return cfg, fmt.Errorf("cache key %d must be 32 bytes, got %d", i, len(key))
		}
		if i == 0 {
			cfg.ActiveKey = key
		} else {
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
	}
	return cfg, nil
}

// NewEngine loads the graph and base configuration described by opts.
func NewEngine(fs afero.Fs, opts Options, stack *Stack, logger *slog.Logger) (*espalier.Engine, error) {
	cfg, err := LoadConfig(fs, opts.ConfigFiles, opts.Sets)
	if err != nil {
		return nil, err
	}

	engineOpts := []espalier.Option{
		espalier.WithFs(fs),
		espalier.WithLogger(logger),
		espalier.WithConfig(cfg),
		espalier.WithStore(stack.Store),
		espalier.WithCacheOptions(stack.CacheOpts...),
	}
	if opts.Enforce {
		engineOpts = append(engineOpts, espalier.WithHandlers(typecheck.Enforce()))
	}

	engine, err := espalier.New(opts.GraphPath, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
