// internal/raster/sampler.go
package raster

import (
	"github.com/stopbank/crestline/internal/cache"
	"github.com/stopbank/crestline/internal/util"
)

// keyDecimals controls memo key rounding. Three decimals keeps
// millimetre resolution, which is far below any sensible cell size.
const keyDecimals = 3

type pointKey struct {
	x, y float64
}

// Sampler memoizes elevation lookups against a Source. Transects
// re-ask the same coordinates constantly (station origins, ray steps
// near shared chainages), so resolved values are cached under their
// rounded coordinates. Failed lookups are never cached: absence near
// the terrain edge must stay re-askable when later features approach
// from a different direction.
type Sampler struct {
	src    Source
	memo   *cache.Memo[pointKey, float64]
	hits   cache.SafeCounter
	misses cache.SafeCounter
}

// SamplerStats is a point-in-time view of memo effectiveness.
type SamplerStats struct {
	Hits    int
	Misses  int
	Entries int
}

// NewSampler wraps src with a memo of at most cacheLimit entries.
func NewSampler(src Source, cacheLimit int) *Sampler {
	return &Sampler{
		src:  src,
		memo: cache.NewMemo[pointKey, float64](cacheLimit),
	}
}

var _ Source = (*Sampler)(nil)

// ElevationAt resolves the elevation at (x, y) through the memo.
func (s *Sampler) ElevationAt(x, y float64) (float64, bool) {
	key := pointKey{
		x: util.RoundTo(x, keyDecimals),
		y: util.RoundTo(y, keyDecimals),
	}

	if v, ok := s.memo.Get(key); ok {
		s.hits.Inc()
		return v, true
	}

	v, ok := s.src.ElevationAt(x, y)
	if !ok {
		return 0, false
	}

	s.misses.Inc()
	s.memo.Put(key, v)
	return v, true
}

// Extent passes through to the wrapped source.
func (s *Sampler) Extent() Extent { return s.src.Extent() }

// CellSize passes through to the wrapped source.
func (s *Sampler) CellSize() float64 { return s.src.CellSize() }

// Stats returns hit/miss counters and the current memo size.
func (s *Sampler) Stats() SamplerStats {
	return SamplerStats{
		Hits:    s.hits.Value(),
		Misses:  s.misses.Value(),
		Entries: s.memo.Len(),
	}
}

// Reset clears the memo between runs.
func (s *Sampler) Reset() {
	s.memo.Reset()
}
