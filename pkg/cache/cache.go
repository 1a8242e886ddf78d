// Package cache stores rendered diagram previews.
//
// Rendering a document through Graphviz is the slowest thing the host does,
// and the output only depends on the document content and the render
// options. Entries are therefore keyed by the document checksum (see
// [Keyer]) and never need invalidation beyond their TTL.
//
// Backends:
//   - [FileCache] for a single host with a local disk
//   - [RedisCache] when several hosts share a Redis instance
//   - [MemoryCache] for tests and the in-memory store
//   - [NullCache] to disable caching
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PreviewKeyOpts are the render options that change a preview's bytes.
type PreviewKeyOpts struct {
	Format     string `json:"format"`
	Detailed   bool   `json:"detailed"`
	Positioned bool   `json:"positioned"`
}

// Keyer builds cache keys.
type Keyer interface {
	PreviewKey(docChecksum string, opts PreviewKeyOpts) string
}

// DefaultKeyer produces "preview:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PreviewKey hashes the checksum together with the options.
func (DefaultKeyer) PreviewKey(docChecksum string, opts PreviewKeyOpts) string {
	return hashKey("preview", docChecksum, opts)
}

// ScopedKeyer prefixes every key, so several hosts or tenants can share
// one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the default keyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// PreviewKey returns the prefixed key.
func (k *ScopedKeyer) PreviewKey(docChecksum string, opts PreviewKeyOpts) string {
	return k.prefix + k.inner.PreviewKey(docChecksum, opts)
}
