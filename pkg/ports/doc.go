/*
Package ports defines the driven ports (interfaces) of the evaluation engine.

These interfaces decouple the caching layer from storage backends, so a cached
node works the same whether its entries live in memory, on disk or in Redis.

# Key Interfaces

  - Store: exists/get/set of cached values by Fingerprint. Any operation may
    report domain.ErrInvalidated, which makes the caching layer retry.
  - Invalidator: optional, lets callers invalidate a single entry.
  - DistributedLocker: optional, serializes computation of one fingerprint
    across replicas sharing a store.
*/
package ports
