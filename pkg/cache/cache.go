// Package cache memoizes multipoint estimator evaluations.
//
// Multipoint fits dominate the runtime of map construction, and the
// search layers re-evaluate many identical (order, phases, tolerance)
// requests across ripple sweeps and repeated runs against the same
// dataset. The cache keys an evaluation by the dataset content hash plus
// the full request, so a hit is always safe to reuse.
//
// Three backends cover the deployment modes: NullCache (disabled),
// FileCache (CLI runs, persistent across invocations), and RedisCache
// (the API server, shared across instances).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mkruijt/linkmap/pkg/linkage"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value; the second result reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL; a zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys for estimator evaluations.
type Keyer interface {
	// EstimateKey returns the key for one evaluation against the dataset
	// identified by datasetHash.
	EstimateKey(datasetHash string, req linkage.EstimateRequest) string
}

// DefaultKeyer hashes the full request into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// EstimateKey implements Keyer. The key is "est:<sha256>" over the
// dataset hash, order, phases, recombination seed, and tolerance. The
// seed enters the key because estimator output depends on the starting
// fractions; an empty and an all-NaN seed both mean "the default" and
// hash identically.
func (DefaultKeyer) EstimateKey(datasetHash string, req linkage.EstimateRequest) string {
	h := sha256.New()
	h.Write([]byte(datasetHash))
	writeInts(h, req.Order)
	for _, p := range req.Phases {
		h.Write([]byte{byte(p)})
	}
	if seeded(req.RF) {
		var buf [8]byte
		for _, r := range req.RF {
			bits := math.Float64bits(math.NaN())
			if !math.IsNaN(r) {
				bits = math.Float64bits(r)
			}
			binary.LittleEndian.PutUint64(buf[:], bits)
			h.Write(buf[:])
		}
	}
	var tol [8]byte
	binary.LittleEndian.PutUint64(tol[:], uint64(req.Tol*1e12))
	h.Write(tol[:])
	return "est:" + hex.EncodeToString(h.Sum(nil))
}

// seeded reports whether rf carries any starting value at all.
func seeded(rf []float64) bool {
	for _, r := range rf {
		if !math.IsNaN(r) {
			return true
		}
	}
	return false
}

func writeInts(h interface{ Write([]byte) (int, error) }, vals []int) {
	var buf [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
}

// DatasetHash returns a content hash of the genotype data, the part of an
// evaluation that is not captured by the request itself.
func DatasetHash(d *linkage.Dataset) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(d.NIndividuals))
	h.Write(buf[:])
	for _, m := range d.Markers {
		h.Write([]byte(m.Name))
		h.Write([]byte{byte(m.Seg)})
		writeInts(h, m.Genos)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// entry is the serialized form of a cached estimator result. Only
// successful estimates are cached, so RF holds finite values and
// round-trips through JSON.
type entry struct {
	RF        []float64 `json:"rf"`
	LogLik    float64   `json:"log_lik"`
	Converged bool      `json:"converged"`
}

func encode(res linkage.EstimateResult) ([]byte, error) {
	return json.Marshal(entry{RF: res.RF, LogLik: res.LogLik, Converged: res.Converged})
}

func decode(data []byte) (linkage.EstimateResult, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return linkage.EstimateResult{}, fmt.Errorf("decode cached estimate: %w", err)
	}
	return linkage.EstimateResult{RF: e.RF, LogLik: e.LogLik, Converged: e.Converged}, nil
}
