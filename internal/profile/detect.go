// internal/profile/detect.go
package profile

import (
	"math"

	"github.com/stopbank/crestline/internal/util"
	"github.com/stopbank/crestline/pkg/core"
)

// minSamples is the shortest profile the detector will consider. With
// fewer samples the slope sequence is too short for the toe scan.
const minSamples = 5

// toeStride converts a toe ratio into a sample offset past the
// flattening index.
const toeStride = 3

// Detector locates crest and toe indices in a ground profile.
//
// FlattenThreshold and DropRatio are accepted for parity with the
// published tuning surface but do not currently participate in the
// scan condition; the flattening test is the two-step slope decay
// below.
type Detector struct {
	Window           int
	CrestThreshold   float64
	FlattenThreshold float64
	DropRatio        float64
	ToeRatios        []float64
}

// Detect scans a profile. The sequence is: smooth the elevations with
// a centered moving average, convert to percent slopes between
// consecutive samples, take the first slope steeper than the crest
// threshold as the crest, then for each ratio find the first
// two-step slope-magnitude decay after the crest and step toeStride
// samples (scaled by the ratio) beyond it.
func (d *Detector) Detect(p core.Profile) core.Detection {
	det := core.Detection{Crest: -1}
	if len(p) < minSamples {
		return det
	}

	det.Smoothed = movingAverage(p.Elevations(), d.Window)
	det.Slopes = slopePercent(p.Distances(), det.Smoothed)

	for i, s := range det.Slopes {
		if s < d.CrestThreshold {
			det.Crest = i
			break
		}
	}
	if det.Crest < 0 {
		return det
	}

	for _, ratio := range d.ToeRatios {
		if idx, ok := d.toeIndex(det.Slopes, det.Crest, ratio, len(p)); ok {
			det.Toes = append(det.Toes, core.Toe{Index: idx, Ratio: ratio})
		}
	}
	return det
}

// toeIndex finds the first index j past the crest where the slope
// magnitude strictly decays for two consecutive steps, then offsets it
// by round(ratio*toeStride). A result beyond the profile end is
// reported absent.
func (d *Detector) toeIndex(slopes []float64, crest int, ratio float64, n int) (int, bool) {
	for j := crest + 1; j+2 < len(slopes); j++ {
		if math.Abs(slopes[j+1]) < math.Abs(slopes[j]) &&
			math.Abs(slopes[j+2]) < math.Abs(slopes[j+1]) {
			idx := j + int(math.Round(ratio*toeStride))
			if idx >= n {
				return 0, false
			}
			return idx, true
		}
	}
	return 0, false
}

// movingAverage smooths vals with a centered window, truncated at the
// array boundaries so the output has the same length as the input.
// Even windows extend one step further forward than backward.
func movingAverage(vals []float64, window int) []float64 {
	if window <= 1 {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}

	out := make([]float64, len(vals))
	back := (window - 1) / 2
	fwd := window / 2
	for i := range vals {
		lo := i - back
		if lo < 0 {
			lo = 0
		}
		hi := i + fwd
		if hi > len(vals)-1 {
			hi = len(vals) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += vals[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// slopePercent returns the percent grade between consecutive samples,
// clamped to [-100, 100]. The result has one fewer element than the
// inputs; slope i describes the step from sample i to i+1.
func slopePercent(dist, elev []float64) []float64 {
	if len(elev) < 2 {
		return nil
	}
	out := make([]float64, len(elev)-1)
	for i := 0; i < len(elev)-1; i++ {
		run := dist[i+1] - dist[i]
		if run == 0 {
			out[i] = 0
			continue
		}
		out[i] = util.Clamp((elev[i+1]-elev[i])/run*100, -100, 100)
	}
	return out
}
