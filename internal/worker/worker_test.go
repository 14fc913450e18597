package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/storage"
	"github.com/stopbank/crestline/internal/transect"
	"github.com/stopbank/crestline/pkg/core"
)

// recordingBackend captures writes in arrival order and can fail a
// given artifact kind on demand.
type recordingBackend struct {
	order       []string
	breakPoints []core.BreakPoint
	sections    []core.CrossSection
	boundaries  []core.ToeBoundary
	volumes     []core.VolumeResult

	failBreakPoints bool
	failBoundaries  bool
}

func (b *recordingBackend) Init() error  { return nil }
func (b *recordingBackend) Close() error { return nil }

func (b *recordingBackend) BeginRun(run *core.Run) error { return nil }
func (b *recordingBackend) EndRun(run *core.Run) error   { return nil }

func (b *recordingBackend) WriteFeature(f *core.Feature, s *core.FeatureSummary) error { return nil }

func (b *recordingBackend) WriteBreakPoint(bp *core.BreakPoint) error {
	if b.failBreakPoints {
		return errors.New("break point write refused")
	}
	b.order = append(b.order, "breakpoint")
	b.breakPoints = append(b.breakPoints, *bp)
	return nil
}

func (b *recordingBackend) WriteCrossSection(cs *core.CrossSection) error {
	b.order = append(b.order, "section")
	b.sections = append(b.sections, *cs)
	return nil
}

func (b *recordingBackend) WriteToeBoundary(tb *core.ToeBoundary) error {
	if b.failBoundaries {
		return errors.New("boundary write refused")
	}
	b.order = append(b.order, "boundary")
	b.boundaries = append(b.boundaries, *tb)
	return nil
}

func (b *recordingBackend) WriteVolume(v *core.VolumeResult) error {
	b.order = append(b.order, "volume")
	b.volumes = append(b.volumes, *v)
	return nil
}

var _ storage.Backend = (*recordingBackend)(nil)

// The manager is the transect builder's break point sink.
var _ transect.Sink = (*Manager)(nil)

func newTestManager(b storage.Backend) *Manager {
	return NewManager(Dependencies{LogManager: logging.NewSlogManager()}, b, time.Hour)
}

func TestManager_QueuesBeforeFlush(t *testing.T) {
	backend := &recordingBackend{}
	m := newTestManager(backend)

	m.WriteBreakPoint(core.BreakPoint{FeatureID: "sb-1", Role: core.RoleCrest})
	m.WriteBreakPoint(core.BreakPoint{FeatureID: "sb-1", Role: core.RoleToe})
	m.EnqueueCrossSection(core.CrossSection{FeatureID: "sb-1"})
	m.EnqueueToeBoundary(core.ToeBoundary{FeatureID: "sb-1"})
	m.EnqueueVolume(core.VolumeResult{FeatureID: "sb-1"})

	d := m.Depths()
	assert.Equal(t, 2, d.BreakPoints)
	assert.Equal(t, 1, d.CrossSections)
	assert.Equal(t, 1, d.Boundaries)
	assert.Equal(t, 1, d.Volumes)
	assert.Equal(t, 5, d.Total())

	// Nothing reaches the backend until a flush.
	assert.Empty(t, backend.order)
}

func TestManager_FlushDrainsInArtifactOrder(t *testing.T) {
	backend := &recordingBackend{}
	m := newTestManager(backend)

	// Enqueue out of artifact order.
	m.EnqueueVolume(core.VolumeResult{FeatureID: "sb-1", Net: -12.5})
	m.EnqueueToeBoundary(core.ToeBoundary{FeatureID: "sb-1"})
	m.EnqueueCrossSection(core.CrossSection{FeatureID: "sb-1", Chainage: 5})
	m.WriteBreakPoint(core.BreakPoint{FeatureID: "sb-1", Chainage: 0})
	m.WriteBreakPoint(core.BreakPoint{FeatureID: "sb-1", Chainage: 5})

	require.NoError(t, m.Flush())

	assert.Equal(t, []string{"breakpoint", "breakpoint", "section", "boundary", "volume"}, backend.order)
	assert.Equal(t, 0, m.Depths().Total())

	// FIFO within a kind.
	require.Len(t, backend.breakPoints, 2)
	assert.Equal(t, 0.0, backend.breakPoints[0].Chainage)
	assert.Equal(t, 5.0, backend.breakPoints[1].Chainage)
}

func TestManager_FlushErrorRequeuesRemainder(t *testing.T) {
	backend := &recordingBackend{failBreakPoints: true}
	m := newTestManager(backend)

	m.WriteBreakPoint(core.BreakPoint{Chainage: 0})
	m.WriteBreakPoint(core.BreakPoint{Chainage: 5})
	m.EnqueueCrossSection(core.CrossSection{Chainage: 0})

	err := m.Flush()
	require.Error(t, err)

	// Failed break points are back in front; the section queue was
	// never touched.
	d := m.Depths()
	assert.Equal(t, 2, d.BreakPoints)
	assert.Equal(t, 1, d.CrossSections)

	// Once the backend recovers, order is preserved.
	backend.failBreakPoints = false
	require.NoError(t, m.Flush())
	require.Len(t, backend.breakPoints, 2)
	assert.Equal(t, 0.0, backend.breakPoints[0].Chainage)
	assert.Equal(t, 5.0, backend.breakPoints[1].Chainage)
	assert.Len(t, backend.sections, 1)
}

func TestManager_BoundaryFailureHoldsVolumes(t *testing.T) {
	backend := &recordingBackend{failBoundaries: true}
	m := newTestManager(backend)

	m.EnqueueToeBoundary(core.ToeBoundary{FeatureID: "sb-1"})
	m.EnqueueVolume(core.VolumeResult{FeatureID: "sb-1"})

	require.Error(t, m.Flush())
	assert.Empty(t, backend.volumes, "volumes must not be written ahead of their boundary")

	backend.failBoundaries = false
	require.NoError(t, m.Flush())
	assert.Len(t, backend.boundaries, 1)
	assert.Len(t, backend.volumes, 1)
}

func TestManager_StartStopFlushes(t *testing.T) {
	backend := &recordingBackend{}
	m := newTestManager(backend)
	m.Start()

	m.WriteBreakPoint(core.BreakPoint{FeatureID: "sb-1"})
	require.NoError(t, m.Stop())

	assert.Len(t, backend.breakPoints, 1)
	assert.Equal(t, 0, m.Depths().Total())

	// Stop is idempotent.
	require.NoError(t, m.Stop())
}

func TestManager_StopWithoutStart(t *testing.T) {
	backend := &recordingBackend{}
	m := newTestManager(backend)

	m.EnqueueVolume(core.VolumeResult{FeatureID: "sb-1"})
	require.NoError(t, m.Stop())
	assert.Len(t, backend.volumes, 1)
}

func TestManager_TickerDrains(t *testing.T) {
	backend := &recordingBackend{}
	m := NewManager(Dependencies{LogManager: logging.NewSlogManager()}, backend, 10*time.Millisecond)
	m.Start()
	defer m.Stop()

	m.WriteBreakPoint(core.BreakPoint{FeatureID: "sb-1"})

	require.Eventually(t, func() bool {
		return m.Depths().BreakPoints == 0
	}, time.Second, 5*time.Millisecond)
}

func TestManager_LastWriteDuration(t *testing.T) {
	backend := &recordingBackend{}
	m := newTestManager(backend)

	m.WriteBreakPoint(core.BreakPoint{})
	require.NoError(t, m.Flush())

	assert.Greater(t, m.GetLastWriteDuration(), time.Duration(0))
	// The plain recording backend doesn't track its own timing.
	assert.Equal(t, time.Duration(0), m.GetLastDBWriteDuration())
}
