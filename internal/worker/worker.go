// Package worker buffers pipeline artifacts and drains them into the
// storage backend on a fixed tick. Break points arrive straight from
// the transect builder; cross-sections, boundaries and volumes are
// enqueued by the pipeline once assembled. A single drain goroutine
// keeps emission order within each artifact kind.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/queue"
	"github.com/stopbank/crestline/internal/storage"
	"github.com/stopbank/crestline/pkg/core"
)

// DefaultFlushInterval is used when the config leaves the drain tick
// unset or nonsensical.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the flush manager.
type Dependencies struct {
	LogManager *logging.SlogManager
}

// Queues holds the pending writes between flush ticks.
type Queues struct {
	BreakPoints   *queue.Queue[core.BreakPoint]
	CrossSections *queue.Queue[core.CrossSection]
	Boundaries    *queue.Queue[core.ToeBoundary]
	Volumes       *queue.Queue[core.VolumeResult]
}

func newQueues() *Queues {
	return &Queues{
		BreakPoints:   queue.New[core.BreakPoint](),
		CrossSections: queue.New[core.CrossSection](),
		Boundaries:    queue.New[core.ToeBoundary](),
		Volumes:       queue.New[core.VolumeResult](),
	}
}

// QueueDepths is a point-in-time snapshot of pending writes, used by
// the monitor for progress reporting.
type QueueDepths struct {
	BreakPoints   int
	CrossSections int
	Boundaries    int
	Volumes       int
}

// Total returns the number of pending writes across all queues.
func (d QueueDepths) Total() int {
	return d.BreakPoints + d.CrossSections + d.Boundaries + d.Volumes
}

// Manager owns the artifact queues and the drain goroutine.
type Manager struct {
	deps     Dependencies
	backend  storage.Backend
	queues   *Queues
	interval time.Duration

	flushMu   sync.Mutex
	lastFlush atomic.Int64 // nanoseconds of the last drain cycle

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewManager creates a flush manager writing to the given backend.
func NewManager(deps Dependencies, backend storage.Backend, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Manager{
		deps:     deps,
		backend:  backend,
		queues:   newQueues(),
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Queues exposes the pending-write queues, mainly for tests.
func (m *Manager) Queues() *Queues {
	return m.queues
}

// WriteBreakPoint queues a break point for the next drain. This is the
// transect builder's sink method.
func (m *Manager) WriteBreakPoint(bp core.BreakPoint) {
	m.queues.BreakPoints.Push(bp)
}

// EnqueueCrossSection queues an assembled cross-section.
func (m *Manager) EnqueueCrossSection(cs core.CrossSection) {
	m.queues.CrossSections.Push(cs)
}

// EnqueueToeBoundary queues a feature footprint.
func (m *Manager) EnqueueToeBoundary(tb core.ToeBoundary) {
	m.queues.Boundaries.Push(tb)
}

// EnqueueVolume queues a cut/fill result.
func (m *Manager) EnqueueVolume(v core.VolumeResult) {
	m.queues.Volumes.Push(v)
}

// Depths reports the pending writes per queue.
func (m *Manager) Depths() QueueDepths {
	return QueueDepths{
		BreakPoints:   m.queues.BreakPoints.Len(),
		CrossSections: m.queues.CrossSections.Len(),
		Boundaries:    m.queues.Boundaries.Len(),
		Volumes:       m.queues.Volumes.Len(),
	}
}

// Start launches the drain goroutine. Safe to call once; later calls
// are no-ops.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.started.Store(true)
		go m.drainLoop()
	})
}

// Stop flushes whatever is queued and stops the drain goroutine.
func (m *Manager) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		if m.started.Load() {
			close(m.stopChan)
			<-m.doneChan
		}
		err = m.Flush()
	})
	return err
}

// GetLastWriteDuration returns how long the last drain cycle took.
func (m *Manager) GetLastWriteDuration() time.Duration {
	return time.Duration(m.lastFlush.Load())
}

// DBWriteDurationProvider is an optional interface backends implement
// to expose their own write timing for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the backend's last write duration, or
// 0 if the backend doesn't track one.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
