package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/ports"
)

const (
	// DefaultMaxAttempts bounds how often an evaluation is retried after
	// invalidation.
	DefaultMaxAttempts = 3
	// Unlimited disables the retry bound.
	Unlimited = -1

	defaultLockTTL = 30 * time.Second
)

// CachedNode memoizes the wrapped node in a store.
type CachedNode struct {
	node        domain.Node
	store       ports.Store
	maxAttempts int
	namespace   string
	logger      *slog.Logger
	locks       *keyLocks
}

// Option configures a CachedNode.
type Option func(*CachedNode)

// WithMaxAttempts sets how many times the lookup-compute-store sequence is
// tried before failing with *domain.CacheExhaustedError. Values below 1 other
// than Unlimited are treated as 1.
func WithMaxAttempts(n int) Option {
	return func(c *CachedNode) {
		if n != Unlimited && n < 1 {
			n = 1
		}
		c.maxAttempts = n
	}
}

// WithNamespace salts fingerprints. Defaults to the wrapped node's String().
func WithNamespace(ns string) Option {
	return func(c *CachedNode) {
		c.namespace = ns
	}
}

// WithLogger configures a logger for retries and lock failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CachedNode) {
		c.logger = logger
	}
}

// WithSingleFlight serializes computations of the same fingerprint within the
// process, so concurrent misses compute the value once.
func WithSingleFlight() Option {
	return func(c *CachedNode) {
		if c.locks == nil {
			c.locks = newKeyLocks()
		}
	}
}

// WithLocker serializes computations of the same fingerprint across processes
// sharing the store. It implies WithSingleFlight. A ttl of zero uses 30s.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(c *CachedNode) {
		WithSingleFlight()(c)
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		c.locks.locker = locker
		c.locks.ttl = ttl
	}
}

// New wraps n so its value is looked up in store before being computed.
func New(n domain.Node, store ports.Store, opts ...Option) *CachedNode {
	c := &CachedNode{
		node:        n,
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		namespace:   n.String(),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.locks != nil {
		c.locks.logger = c.logger
	}
	return c
}

// Node returns the wrapped node.
func (c *CachedNode) Node() domain.Node { return c.node }

// Fingerprint returns the fingerprint the node is stored under for cfg.
func (c *CachedNode) Fingerprint(ctx context.Context, cfg config.Config) (ports.Fingerprint, error) {
	return Fingerprint(ctx, c.node, cfg, c.namespace)
}

func (c *CachedNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	fp, err := c.Fingerprint(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var last error
	for attempt := 1; c.maxAttempts == Unlimited || attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := c.attempt(ctx, fp, cfg)
		if err == nil {
			return v, nil
		}
		// A nested cache that gave up is final; only fresh invalidations retry.
		var exhausted *domain.CacheExhaustedError
		if errors.As(err, &exhausted) || !errors.Is(err, domain.ErrInvalidated) {
			return nil, err
		}
		last = err
		c.logger.Debug("cache entry invalidated, retrying", "node", c.namespace, "fingerprint", fp, "attempt", attempt)
	}

	c.logger.Warn("cache retries exhausted", "node", c.namespace, "fingerprint", fp, "attempts", c.maxAttempts)
	return nil, &domain.CacheExhaustedError{Attempts: c.maxAttempts, Source: c.String(), Err: last}
}

// attempt runs one lookup-compute-store sequence.
func (c *CachedNode) attempt(ctx context.Context, fp ports.Fingerprint, cfg config.Config) (any, error) {
	if v, ok, err := c.lookup(ctx, fp, cfg); err != nil || ok {
		return v, err
	}
	if c.locks == nil {
		return c.compute(ctx, fp, cfg)
	}

	var out any
	err := c.locks.withLock(ctx, fp, func(ctx context.Context) error {
		v, ok, err := c.lookup(ctx, fp, cfg)
		if err != nil || ok {
			out = v
			return err
		}
		out, err = c.compute(ctx, fp, cfg)
		return err
	})
	return out, err
}

// lookup returns the stored value if there is one. A miss between Exists and
// Get is reported as absent.
func (c *CachedNode) lookup(ctx context.Context, fp ports.Fingerprint, cfg config.Config) (any, bool, error) {
	ok, err := exists(ctx, ExistsRequest{Fingerprint: fp, Config: cfg, Store: c.store})
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := handleGet(ctx, GetRequest{Fingerprint: fp, Config: cfg, Store: c.store})
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *CachedNode) compute(ctx context.Context, fp ports.Fingerprint, cfg config.Config) (any, error) {
	v, err := eval.Evaluate(ctx, c.node, cfg)
	if err != nil {
		return nil, err
	}
	return handleSet(ctx, SetRequest{Fingerprint: fp, Config: cfg, Store: c.store, Value: v})
}

// Validate succeeds without validating the wrapped node when a value is
// already stored for cfg.
func (c *CachedNode) Validate(ctx context.Context, cfg config.Config) error {
	fp, err := c.Fingerprint(ctx, cfg)
	if err != nil {
		return domain.Invalid(err)
	}
	ok, err := exists(ctx, ExistsRequest{Fingerprint: fp, Config: cfg, Store: c.store})
	if err == nil && ok {
		return nil
	}
	return eval.Validate(ctx, c.node, cfg)
}

func (c *CachedNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return eval.Keys(ctx, c.node, cfg)
}

func (c *CachedNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return eval.Explain(ctx, c.node, cfg)
}

func (c *CachedNode) String() string {
	return fmt.Sprintf("Cached(%s)", c.node)
}
