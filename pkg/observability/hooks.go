// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about map construction, batch processing, and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMappingHooks(&myMappingHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Mapping().OnSearchStart(ctx, len(order))
//	// ... grow the map ...
//	observability.Mapping().OnSearchComplete(ctx, len(order), logLik, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Mapping Hooks
// =============================================================================

// MappingHooks receives events from map construction.
type MappingHooks interface {
	// Phase search events
	OnSearchStart(ctx context.Context, markers int)
	OnSearchStep(ctx context.Context, step, candidates int)
	OnSearchComplete(ctx context.Context, markers int, logLik float64, duration time.Duration, err error)

	// Batch events
	OnBatchStart(ctx context.Context, batch, start, end int)
	OnBatchComplete(ctx context.Context, batch int, logLik float64, duration time.Duration, err error)
	OnMergeComplete(ctx context.Context, batches, markers int, err error)

	// OnConvergenceWarning records a non-fatal estimator warning.
	OnConvergenceWarning(ctx context.Context, step, marker int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMappingHooks is a no-op implementation of MappingHooks.
type NoopMappingHooks struct{}

func (NoopMappingHooks) OnSearchStart(context.Context, int)                                  {}
func (NoopMappingHooks) OnSearchStep(context.Context, int, int)                              {}
func (NoopMappingHooks) OnSearchComplete(context.Context, int, float64, time.Duration, error) {
}
func (NoopMappingHooks) OnBatchStart(context.Context, int, int, int)                         {}
func (NoopMappingHooks) OnBatchComplete(context.Context, int, float64, time.Duration, error) {}
func (NoopMappingHooks) OnMergeComplete(context.Context, int, int, error)                    {}
func (NoopMappingHooks) OnConvergenceWarning(context.Context, int, int)                      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	mappingHooks MappingHooks = NoopMappingHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetMappingHooks registers custom mapping hooks.
// This should be called once at application startup before any map construction.
func SetMappingHooks(h MappingHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mappingHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Mapping returns the registered mapping hooks.
func Mapping() MappingHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mappingHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	mappingHooks = NoopMappingHooks{}
	cacheHooks = NoopCacheHooks{}
}
