/*
Package cache implements the caching layer: a node decorator that memoizes the
wrapped node's value per fingerprint of the configuration it depends on.

	cached := cache.New(expensive, memory.NewStore(), cache.WithMaxAttempts(5))

# Algorithm

Each evaluation computes a Fingerprint from the wrapped node's Keys under the
current configuration, so nodes that dispatch on the configuration get
different fingerprints for different branches. Then:

 1. If the store has an entry for the fingerprint, it is returned.
 2. Otherwise the wrapped node is evaluated, the result stored and read back,
    so stores that normalize values (e.g. through JSON) are respected.
 3. If any store access reports domain.ErrInvalidated the whole sequence is
    retried. After the configured number of attempts evaluation fails with a
    *domain.CacheExhaustedError wrapping the last cause.

Store accesses are issued as routed requests (ExistsRequest, GetRequest,
SetRequest), so they can be intercepted with pkg/runtime. Disabled returns the
overrides that bypass every store.
*/
package cache
