// internal/storage/memory/memory.go
package memory

import (
	"sync"

	v1 "github.com/stopbank/crestline/internal/storage/memory/export/v1"
	"github.com/stopbank/crestline/pkg/core"
)

// Config holds output settings for the memory backend.
type Config struct {
	OutputDir      string
	CompressOutput bool // gzip the run bundle
}

// Backend stores run artifacts in memory and exports GeoJSON plus a
// run bundle when the run ends
type Backend struct {
	cfg Config
	run *core.Run

	features    []v1.FeatureRecord
	breakPoints []core.BreakPoint
	sections    []core.CrossSection
	boundaries  []core.ToeBoundary
	volumes     []core.VolumeResult

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// BeginRun starts accumulating a new run
func (b *Backend) BeginRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run

	// Reset all collections
	b.features = nil
	b.breakPoints = nil
	b.sections = nil
	b.boundaries = nil
	b.volumes = nil
	b.lastExportPath = ""

	return nil
}

// EndRun finalizes and exports the accumulated artifacts. The run
// carries the final counters, so it replaces the header from BeginRun.
func (b *Backend) EndRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	return b.export()
}

// WriteFeature records a processed centerline with its summary
func (b *Backend) WriteFeature(f *core.Feature, s *core.FeatureSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.features = append(b.features, v1.FeatureRecord{Feature: *f, Summary: *s})
	return nil
}

// WriteBreakPoint records a derived crest, toe or centerline point
func (b *Backend) WriteBreakPoint(bp *core.BreakPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.breakPoints = append(b.breakPoints, *bp)
	return nil
}

// WriteCrossSection records an assembled cross section
func (b *Backend) WriteCrossSection(cs *core.CrossSection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sections = append(b.sections, *cs)
	return nil
}

// WriteToeBoundary records a feature footprint ring
func (b *Backend) WriteToeBoundary(tb *core.ToeBoundary) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.boundaries = append(b.boundaries, *tb)
	return nil
}

// WriteVolume records a cut/fill balance
func (b *Backend) WriteVolume(v *core.VolumeResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volumes = append(b.volumes, *v)
	return nil
}
