package curve

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"

	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

// Cached memoizes Decompress of a provider. Subgroup checks dominate decoding
// cost, and the same public keys and signatures are decoded on every request.
type Cached struct {
	Provider
	cache *lru.Cache[[32]byte, Point]
}

// NewCached wraps p with an LRU of size entries. size <= 0 returns p unchanged.
func NewCached(p Provider, size int) (Provider, error) {
	if size <= 0 {
		return p, nil
	}
	c, err := lru.New[[32]byte, Point](size)
	if err != nil {
		return nil, err
	}
	return &Cached{Provider: p, cache: c}, nil
}

func cacheKey(id ID, g Group, b []byte) [32]byte {
	h := blake3.New(32, nil)
	_, _ = h.Write([]byte(id))
	_, _ = h.Write([]byte{byte(g)})
	_, _ = h.Write(b)
	var k [32]byte
	copy(k[:], h.Sum(nil))
	return k
}

// Decompress consults the cache before decoding. Failed decodes are not cached.
func (c *Cached) Decompress(g Group, b []byte) (Point, error) {
	k := cacheKey(c.Curve(), g, b)
	if p, ok := c.cache.Get(k); ok {
		metrics.Inc("curve_decode_cache_total", map[string]string{"result": "hit"})
		return p.Clone(), nil
	}
	metrics.Inc("curve_decode_cache_total", map[string]string{"result": "miss"})
	p, err := c.Provider.Decompress(g, b)
	if err != nil {
		return Point{}, err
	}
	c.cache.Add(k, p.Clone())
	return p, nil
}

// Len reports cached entries.
func (c *Cached) Len() int { return c.cache.Len() }
