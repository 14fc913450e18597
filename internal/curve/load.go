// internal/curve/load.go
package curve

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/internal/geo"
)

// ErrNoFeatures is returned when a source file yields no usable curves.
var ErrNoFeatures = errors.New("no usable line features in source")

// Loader reads centerline features from a GeoJSON FeatureCollection and
// reprojects them into the working CRS.
type Loader struct {
	IDProperty string
	Filter     string // when set, only features whose id contains this value load
	Transform  *geo.Transformer
	Log        *slog.Logger
}

// LoadFile reads and parses the file at path.
func (l *Loader) LoadFile(path string) ([]*Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading curves file: %w", err)
	}
	return l.Load(data)
}

// Load parses raw GeoJSON bytes into curves. Non-line features are
// skipped with a warning; an empty result is an error because the run
// would have nothing to do.
func (l *Loader) Load(data []byte) ([]*Curve, error) {
	var fc geom.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing curves GeoJSON: %w", err)
	}

	log := l.Log
	if log == nil {
		log = slog.Default()
	}

	curves := make([]*Curve, 0, len(fc))
	for i, feature := range fc {
		id := l.featureID(feature, i)
		if l.Filter != "" && !strings.Contains(id, l.Filter) {
			continue
		}

		lines := lineParts(feature.Geometry)
		if len(lines) == 0 {
			log.Warn("skipping non-line feature", "id", id, "type", feature.Geometry.Type())
			continue
		}

		for part, ls := range lines {
			partID := id
			if len(lines) > 1 {
				partID = fmt.Sprintf("%s#%d", id, part+1)
			}

			c, err := New(partID, l.projectVertices(ls), feature.Properties)
			if err != nil {
				log.Warn("skipping degenerate feature", "id", partID, "error", err)
				continue
			}
			curves = append(curves, c)
		}
	}

	if len(curves) == 0 {
		return nil, ErrNoFeatures
	}
	return curves, nil
}

// featureID resolves the identifier for a feature: the configured id
// property first, the GeoJSON feature id second, the index as a last
// resort.
func (l *Loader) featureID(feature geom.GeoJSONFeature, idx int) string {
	if l.IDProperty != "" {
		if v, ok := feature.Properties[l.IDProperty]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	if feature.ID != nil {
		return fmt.Sprintf("%v", feature.ID)
	}
	return fmt.Sprintf("feature_%03d", idx)
}

// lineParts extracts the line strings of a geometry. MultiLineString
// features contribute one curve per part.
func lineParts(g geom.Geometry) []geom.LineString {
	if ls, ok := g.AsLineString(); ok {
		return []geom.LineString{ls}
	}
	if mls, ok := g.AsMultiLineString(); ok {
		out := make([]geom.LineString, 0, mls.NumLineStrings())
		for i := 0; i < mls.NumLineStrings(); i++ {
			out = append(out, mls.LineStringN(i))
		}
		return out
	}
	return nil
}

// projectVertices converts a line string's vertices into working-CRS
// XY points. Source Z values are dropped; elevations come from the
// raster at sampling time.
func (l *Loader) projectVertices(ls geom.LineString) []geom.XY {
	seq := ls.Coordinates()
	out := make([]geom.XY, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		x, y := l.Transform.Apply(xy.X, xy.Y)
		out[i] = geom.XY{X: x, Y: y}
	}
	return out
}
