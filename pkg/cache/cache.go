// Package cache provides pluggable storage for rendered diagram artifacts.
//
// Rendering is deterministic: the same source, flags, class and output
// format always produce the same bytes. The render pipeline therefore keys
// artifacts by a hash of those inputs and stores them through the [Cache]
// interface, with three backends:
//   - [FileCache]: one file per entry under a local directory (CLI default)
//   - [RedisCache]: shared storage for multi-instance servers
//   - [NullCache]: stores nothing (--no-cache)
//
// Render errors are never cached; only successful artifacts are.
//
// # Keys
//
// Keys are produced by a [Keyer] so that the key layout lives in one place:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ArtifactKey(cache.Hash(src), cache.ArtifactKeyOpts{Format: "svg"})
//
// A [ScopedKeyer] prefixes every key, which isolates deployments sharing a
// single Redis instance.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Default TTLs for cached entries.
const (
	// TTLArtifact is how long rendered SVG, PNG and PDF artifacts are kept.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiration.
//
// Get reports a miss with ok == false and a nil error; errors are reserved
// for backend failures. A zero TTL means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
// It returns the number of entries removed.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Keyer generates cache keys for pipeline stages.
type Keyer interface {
	// ArtifactKey returns the key for an artifact rendered from the source
	// with the given hash.
	ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts holds every input besides the source that changes the
// rendered bytes.
type ArtifactKeyOpts struct {
	Format     string  `json:"format"`
	Class      string  `json:"class,omitempty"`
	Flags      uint32  `json:"flags"`
	Scale      float64 `json:"scale,omitempty"`
	Background string  `json:"background,omitempty"`
}

// DefaultKeyer produces keys of the form "artifact:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes the source hash together with the JSON-encoded options.
func (DefaultKeyer) ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	h := sha256.New()
	h.Write([]byte(sourceHash))
	h.Write([]byte{0})
	// ArtifactKeyOpts holds only strings and numbers; encoding cannot fail.
	_ = json.NewEncoder(h).Encode(opts)
	return "artifact:" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. Source text is keyed by this hash.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
