package curve

import (
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stopbank/crestline/internal/geo"
)

func straightCurve(t *testing.T, length float64) *Curve {
	t.Helper()
	c, err := New("test", []geom.XY{{X: 0, Y: 0}, {X: length, Y: 0}}, nil)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsDegenerateInput(t *testing.T) {
	_, err := New("empty", nil, nil)
	require.ErrorIs(t, err, ErrTooShort)

	_, err = New("single", []geom.XY{{X: 1, Y: 1}}, nil)
	require.ErrorIs(t, err, ErrTooShort)

	// all vertices coincident
	_, err = New("dups", []geom.XY{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}, nil)
	require.ErrorIs(t, err, ErrTooShort)
}

func TestNew_DropsRepeatedVertices(t *testing.T) {
	c, err := New("dedupe", []geom.XY{
		{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5},
	}, nil)
	require.NoError(t, err)

	assert.Len(t, c.Vertices(), 3)
	assert.Equal(t, 10.0, c.Length())
}

func TestPointAt_Interpolates(t *testing.T) {
	c, err := New("bend", []geom.XY{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, nil)
	require.NoError(t, err)

	p := c.PointAt(5)
	assert.Equal(t, geom.XY{X: 5, Y: 0}, p)

	p = c.PointAt(15)
	assert.Equal(t, geom.XY{X: 10, Y: 5}, p)

	// on a vertex
	p = c.PointAt(10)
	assert.Equal(t, geom.XY{X: 10, Y: 0}, p)
}

func TestPointAt_ClampsToExtent(t *testing.T) {
	c := straightCurve(t, 10)

	assert.Equal(t, geom.XY{X: 0, Y: 0}, c.PointAt(-3))
	assert.Equal(t, geom.XY{X: 10, Y: 0}, c.PointAt(99))
}

func TestTangentAt_Directions(t *testing.T) {
	c := straightCurve(t, 10)

	for _, d := range []float64{0, 5, 10} {
		tan, ok := c.TangentAt(d)
		require.True(t, ok, "chainage %v", d)
		assert.InDelta(t, 1.0, tan.X, 1e-9)
		assert.InDelta(t, 0.0, tan.Y, 1e-9)
	}
}

func TestTangentAt_FollowsBend(t *testing.T) {
	c, err := New("bend", []geom.XY{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, nil)
	require.NoError(t, err)

	tan, ok := c.TangentAt(15)
	require.True(t, ok)
	assert.InDelta(t, 0.0, tan.X, 1e-9)
	assert.InDelta(t, 1.0, tan.Y, 1e-9)

	// at the corner the quotient spans both segments
	tan, ok = c.TangentAt(10)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(0.5), tan.X, 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), tan.Y, 1e-9)
}

func TestStations_IncludesExactEnd(t *testing.T) {
	c := straightCurve(t, 12)

	stations := c.Stations(5, 0)
	assert.Equal(t, []float64{0, 5, 10, 12}, stations)
}

func TestStations_NoDuplicateWhenEndOnInterval(t *testing.T) {
	c := straightCurve(t, 10)

	stations := c.Stations(5, 0)
	assert.Equal(t, []float64{0, 5, 10}, stations)
}

func TestStations_MaxChainageCapsWalk(t *testing.T) {
	c := straightCurve(t, 100)

	stations := c.Stations(5, 12)
	assert.Equal(t, []float64{0, 5, 10, 12}, stations)

	// cap beyond length has no effect
	stations = c.Stations(50, 500)
	assert.Equal(t, []float64{0, 50, 100}, stations)
}

func TestStations_ShortCurve(t *testing.T) {
	c := straightCurve(t, 3)

	stations := c.Stations(5, 0)
	assert.Equal(t, []float64{0, 3}, stations)
}

func TestFeature_CarriesAttributes(t *testing.T) {
	attrs := map[string]any{"code": "SB-001", "owner": "regional council"}
	c, err := New("SB-001", []geom.XY{{X: 0, Y: 0}, {X: 10, Y: 0}}, attrs)
	require.NoError(t, err)

	f := c.Feature()
	assert.Equal(t, "SB-001", f.ID)
	assert.Equal(t, 10.0, f.Length)
	assert.Len(t, f.Vertices, 2)
	assert.Equal(t, "regional council", f.Attributes["owner"])
}

func TestLoader_LoadFeatureCollection(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {"code": "SB-001", "ward": "north"},
				"geometry": {"type": "LineString", "coordinates": [[0,0],[100,0],[100,50]]}
			},
			{
				"type": "Feature",
				"properties": {"code": "SB-002"},
				"geometry": {"type": "Point", "coordinates": [5,5]}
			}
		]
	}`)

	l := &Loader{IDProperty: "code", Transform: geo.NewTransformer(2193, 2193)}
	curves, err := l.Load(data)
	require.NoError(t, err)

	require.Len(t, curves, 1)
	assert.Equal(t, "SB-001", curves[0].ID())
	assert.Equal(t, 150.0, curves[0].Length())
	assert.Equal(t, "north", curves[0].Attributes()["ward"])
}

func TestLoader_FilterSelectsSingleFeature(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"code": "A"}, "geometry": {"type": "LineString", "coordinates": [[0,0],[10,0]]}},
			{"type": "Feature", "properties": {"code": "B"}, "geometry": {"type": "LineString", "coordinates": [[0,0],[20,0]]}}
		]
	}`)

	l := &Loader{IDProperty: "code", Filter: "B", Transform: geo.NewTransformer(2193, 2193)}
	curves, err := l.Load(data)
	require.NoError(t, err)

	require.Len(t, curves, 1)
	assert.Equal(t, "B", curves[0].ID())
}

func TestLoader_MultiLineStringSplitsParts(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"code": "M"}, "geometry":
				{"type": "MultiLineString", "coordinates": [[[0,0],[10,0]],[[20,0],[40,0]]]}}
		]
	}`)

	l := &Loader{IDProperty: "code", Transform: geo.NewTransformer(2193, 2193)}
	curves, err := l.Load(data)
	require.NoError(t, err)

	require.Len(t, curves, 2)
	assert.Equal(t, "M#1", curves[0].ID())
	assert.Equal(t, "M#2", curves[1].ID())
	assert.Equal(t, 20.0, curves[1].Length())
}

func TestLoader_EmptyCollection(t *testing.T) {
	l := &Loader{IDProperty: "code", Transform: geo.NewTransformer(2193, 2193)}

	_, err := l.Load([]byte(`{"type": "FeatureCollection", "features": []}`))
	require.ErrorIs(t, err, ErrNoFeatures)
}

func TestLoader_MissingIDPropertyFallsBack(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[0,0],[10,0]]}}
		]
	}`)

	l := &Loader{IDProperty: "code", Transform: geo.NewTransformer(2193, 2193)}
	curves, err := l.Load(data)
	require.NoError(t, err)

	require.Len(t, curves, 1)
	assert.Equal(t, "feature_000", curves[0].ID())
}
