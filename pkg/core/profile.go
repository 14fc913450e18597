// pkg/core/profile.go
package core

// Sample is a single ground observation along a perpendicular ray.
// Distance is measured from the centerline outward.
type Sample struct {
	Distance  float64
	Elevation float64
}

// Profile is an ordered run of samples taken at a fixed spacing along
// one side of a station. Sampling stops at the first unresolvable cell,
// so a profile is always contiguous ground.
type Profile []Sample

// Distances returns the distance column of the profile.
func (p Profile) Distances() []float64 {
	out := make([]float64, len(p))
	for i, s := range p {
		out[i] = s.Distance
	}
	return out
}

// Elevations returns the elevation column of the profile.
func (p Profile) Elevations() []float64 {
	out := make([]float64, len(p))
	for i, s := range p {
		out[i] = s.Elevation
	}
	return out
}

// Toe is one detected toe candidate, tagged with the ratio variant
// that produced it.
type Toe struct {
	Index int
	Ratio float64
}

// Detection is the outcome of one profile scan. Crest is -1 when no
// crest was found; Toes holds one entry per configured ratio that
// resolved to a sample inside the profile. Smoothed and Slopes carry
// the intermediate series for inspection.
type Detection struct {
	Crest    int
	Toes     []Toe
	Smoothed []float64
	Slopes   []float64
}

// HasCrest reports whether a crest index was found.
func (d Detection) HasCrest() bool { return d.Crest >= 0 }
