package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stopbank/crestline/pkg/core"
)

// embankmentProfile is a hand-built cross slope: flat crest platform,
// steep batter, flattening ground at the toe. Spacing 1 keeps the
// slope arithmetic exact.
func embankmentProfile() core.Profile {
	elev := []float64{10, 10, 10, 10, 9.5, 8.0, 6.5, 5.5, 5.0, 4.8, 4.7, 4.65, 4.6, 4.58, 4.55}
	p := make(core.Profile, len(elev))
	for i, z := range elev {
		p[i] = core.Sample{Distance: float64(i), Elevation: z}
	}
	return p
}

func flatProfile(n int) core.Profile {
	p := make(core.Profile, n)
	for i := range p {
		p[i] = core.Sample{Distance: float64(i), Elevation: 5}
	}
	return p
}

func TestDetect_TooFewSamples(t *testing.T) {
	d := &Detector{Window: 4, CrestThreshold: -3, ToeRatios: []float64{1}}

	det := d.Detect(embankmentProfile()[:4])

	assert.False(t, det.HasCrest())
	assert.Empty(t, det.Toes)
	assert.Nil(t, det.Smoothed)
	assert.Nil(t, det.Slopes)
}

func TestDetect_FlatGroundHasNoCrest(t *testing.T) {
	d := &Detector{Window: 4, CrestThreshold: -3, ToeRatios: []float64{1}}

	det := d.Detect(flatProfile(20))

	assert.False(t, det.HasCrest())
	assert.Empty(t, det.Toes)
}

func TestDetect_EmbankmentUnsmoothed(t *testing.T) {
	d := &Detector{Window: 1, CrestThreshold: -3, ToeRatios: []float64{1}}

	det := d.Detect(embankmentProfile())

	require.True(t, det.HasCrest())
	assert.Equal(t, 3, det.Crest, "crest should sit on the last flat sample before the batter")

	require.Len(t, det.Toes, 1)
	assert.Equal(t, 9, det.Toes[0].Index)
	assert.Equal(t, 1.0, det.Toes[0].Ratio)
}

func TestDetect_ToeRatioScalesOffset(t *testing.T) {
	d := &Detector{Window: 1, CrestThreshold: -3, ToeRatios: []float64{0.5, 1.0}}

	det := d.Detect(embankmentProfile())

	require.Len(t, det.Toes, 2)
	assert.Equal(t, 8, det.Toes[0].Index, "ratio 0.5 offsets by round(1.5)=2")
	assert.Equal(t, 9, det.Toes[1].Index)
}

func TestDetect_ToeBeyondProfileEndIsAbsent(t *testing.T) {
	d := &Detector{Window: 1, CrestThreshold: -3, ToeRatios: []float64{3.0}}

	det := d.Detect(embankmentProfile())

	require.True(t, det.HasCrest())
	assert.Empty(t, det.Toes, "offset past the last sample must not fabricate a toe")
}

func TestDetect_SmoothedWindowFour(t *testing.T) {
	d := &Detector{Window: 4, CrestThreshold: -3, ToeRatios: []float64{1}}

	det := d.Detect(embankmentProfile())

	require.True(t, det.HasCrest())
	// smoothing pulls the break earlier because the window reaches
	// forward into the batter
	assert.GreaterOrEqual(t, det.Crest, 1)
	assert.LessOrEqual(t, det.Crest, 4)

	require.Len(t, det.Toes, 1)
	assert.Greater(t, det.Toes[0].Index, det.Crest)
	assert.GreaterOrEqual(t, det.Toes[0].Index, 7)
	assert.LessOrEqual(t, det.Toes[0].Index, 10)
}

func TestDetect_Deterministic(t *testing.T) {
	d := &Detector{Window: 4, CrestThreshold: -3, ToeRatios: []float64{0.5, 1.0}}
	p := embankmentProfile()

	first := d.Detect(p)
	second := d.Detect(p)

	assert.Equal(t, first, second)
}

func TestMovingAverage_WindowOneIsIdentity(t *testing.T) {
	vals := []float64{1, 5, 2, 8}

	out := movingAverage(vals, 1)

	assert.Equal(t, vals, out)
}

func TestMovingAverage_WindowFourBoundaries(t *testing.T) {
	out := movingAverage([]float64{0, 3, 6, 9, 12}, 4)

	expected := []float64{3, 4.5, 7.5, 9, 10.5}
	require.Len(t, out, 5)
	for i := range expected {
		assert.InDelta(t, expected[i], out[i], 1e-12, "index %d", i)
	}
}

func TestSlopePercent_ClampsExtremes(t *testing.T) {
	dist := []float64{0, 1, 2, 3}
	elev := []float64{0, -0.05, -0.05, 2}

	out := slopePercent(dist, elev)

	require.Len(t, out, 3)
	assert.InDelta(t, -5, out[0], 1e-12)
	assert.InDelta(t, 0, out[1], 1e-12)
	assert.Equal(t, 100.0, out[2], "percent grade is clamped to +100")

	down := slopePercent([]float64{0, 1}, []float64{0, -7})
	assert.Equal(t, -100.0, down[0], "percent grade is clamped to -100")
}

func TestSlopePercent_ZeroRun(t *testing.T) {
	out := slopePercent([]float64{0, 0}, []float64{1, 2})

	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0])
}

func TestDetect_GentleGradeHasNoCrest(t *testing.T) {
	// constant -2% grade stays above the -3 threshold
	p := make(core.Profile, 10)
	for i := range p {
		p[i] = core.Sample{Distance: float64(i), Elevation: -0.02 * float64(i)}
	}

	d := &Detector{Window: 1, CrestThreshold: -3, ToeRatios: []float64{1}}
	det := d.Detect(p)

	assert.False(t, det.HasCrest())
	assert.Empty(t, det.Toes)
}

func TestDetect_NoToeWhenSlopeNeverDecays(t *testing.T) {
	// accelerating descent: slope magnitude grows monotonically
	elev := make([]float64, 12)
	for i := range elev {
		elev[i] = -0.01 * math.Pow(float64(i), 2)
	}
	p := make(core.Profile, len(elev))
	for i, z := range elev {
		p[i] = core.Sample{Distance: float64(i), Elevation: z}
	}

	d := &Detector{Window: 1, CrestThreshold: -3, ToeRatios: []float64{1}}
	det := d.Detect(p)

	require.True(t, det.HasCrest())
	assert.Empty(t, det.Toes)
}
