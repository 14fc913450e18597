package worker

import (
	"fmt"
	"time"

	"github.com/stopbank/crestline/internal/queue"
	"github.com/stopbank/crestline/pkg/core"
)

// Flush drains all queues into the backend in artifact order: break
// points, cross-sections, boundaries, volumes. Boundaries must land
// before volumes because a volume write updates its boundary row. On
// the first write error the unwritten remainder goes back to the front
// of its queue and the later queues are left untouched for the next
// tick.
func (m *Manager) Flush() error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	start := time.Now()
	defer func() {
		m.lastFlush.Store(int64(time.Since(start)))
	}()

	if err := flushQueue(m.queues.BreakPoints, func(bp *core.BreakPoint) error {
		return m.backend.WriteBreakPoint(bp)
	}); err != nil {
		return m.logFlushErr("break points", err)
	}
	if err := flushQueue(m.queues.CrossSections, func(cs *core.CrossSection) error {
		return m.backend.WriteCrossSection(cs)
	}); err != nil {
		return m.logFlushErr("cross-sections", err)
	}
	if err := flushQueue(m.queues.Boundaries, func(tb *core.ToeBoundary) error {
		return m.backend.WriteToeBoundary(tb)
	}); err != nil {
		return m.logFlushErr("boundaries", err)
	}
	if err := flushQueue(m.queues.Volumes, func(v *core.VolumeResult) error {
		return m.backend.WriteVolume(v)
	}); err != nil {
		return m.logFlushErr("volumes", err)
	}
	return nil
}

// flushQueue writes every queued item in order. On error the failed
// item and everything behind it return to the front of the queue.
func flushQueue[T any](q *queue.Queue[T], write func(*T) error) error {
	if q.Empty() {
		return nil
	}
	items := q.GetAndEmpty()
	for i := range items {
		if err := write(&items[i]); err != nil {
			q.Requeue(items[i:]...)
			return err
		}
	}
	return nil
}

func (m *Manager) logFlushErr(kind string, err error) error {
	if m.deps.LogManager != nil {
		m.deps.LogManager.WriteLog("worker:flush", fmt.Sprintf("Error writing %s: %v", kind, err), "ERROR")
	}
	return fmt.Errorf("writing %s: %w", kind, err)
}

// drainLoop runs Flush on the tick until Stop closes the channel.
func (m *Manager) drainLoop() {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			// Errors are already logged; queue contents survive
			// for the next tick.
			_ = m.Flush()
		}
	}
}
