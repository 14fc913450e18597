// Package dispatcher routes pipeline events to registered handlers and
// carries the otel instruments that count extraction progress.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/stopbank/crestline/pkg/core"
)

// Pipeline event names. Feature and run completion carry their core
// payloads in Event.Data; handlers type-assert what they need.
const (
	EventFeatureComplete = "feature:complete" // Data: *core.FeatureSummary
	EventRunComplete     = "run:complete"     // Data: *core.Run
	EventVolumeFailed    = "volume:failed"    // Data: feature id string
)

// Event is one pipeline occurrence routed through the dispatcher.
type Event struct {
	Command   string
	Data      any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	queueSize      metric.Int64ObservableGauge
	pipelineDepth  metric.Int64ObservableGauge
	samplerCache   metric.Int64ObservableGauge
	processed      metric.Int64Counter
	dropped        metric.Int64Counter
	features       metric.Int64Counter
	stations       metric.Int64Counter
	breakPoints    metric.Int64Counter
	volumeFailures metric.Int64Counter

	// Track buffers and gauge providers for the observe callback
	mu           sync.RWMutex
	buffers      map[string]chan Event
	queueDepthFn func() int64
	cacheSizeFn  func() int64
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	d.pipelineDepth, err = m.Int64ObservableGauge(
		"pipeline.queue.depth",
		metric.WithDescription("Artifacts waiting in the flush worker queues"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline depth gauge: %w", err)
	}

	d.samplerCache, err = m.Int64ObservableGauge(
		"sampler.cache.size",
		metric.WithDescription("Entries held by the elevation sampler cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sampler cache gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			if d.queueDepthFn != nil {
				o.ObserveInt64(d.pipelineDepth, d.queueDepthFn())
			}
			if d.cacheSizeFn != nil {
				o.ObserveInt64(d.samplerCache, d.cacheSizeFn())
			}
			return nil
		},
		d.queueSize, d.pipelineDepth, d.samplerCache,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.features, err = m.Int64Counter(
		"pipeline.features.completed",
		metric.WithDescription("Centerline features fully processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating features counter: %w", err)
	}

	d.stations, err = m.Int64Counter(
		"pipeline.stations.processed",
		metric.WithDescription("Stations sampled along all centerlines"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stations counter: %w", err)
	}

	d.breakPoints, err = m.Int64Counter(
		"pipeline.breakpoints.extracted",
		metric.WithDescription("Break points derived from transects"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating break points counter: %w", err)
	}

	d.volumeFailures, err = m.Int64Counter(
		"pipeline.volume.failures",
		metric.WithDescription("Features whose volume computation failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating volume failures counter: %w", err)
	}

	return d, nil
}

// SetQueueDepthProvider wires the flush worker's queue depth into the
// pipeline.queue.depth gauge.
func (d *Dispatcher) SetQueueDepthProvider(fn func() int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queueDepthFn = fn
}

// SetCacheSizeProvider wires the elevation sampler's cache size into
// the sampler.cache.size gauge.
func (d *Dispatcher) SetCacheSizeProvider(fn func() int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cacheSizeFn = fn
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler. Counters for the
// known pipeline events update whether or not a handler is registered,
// so metrics survive a partially wired service.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.count(e)

	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) count(e Event) {
	ctx := context.Background()
	switch e.Command {
	case EventFeatureComplete:
		d.features.Add(ctx, 1)
		if s, ok := e.Data.(*core.FeatureSummary); ok {
			d.stations.Add(ctx, int64(s.Stations))
			d.breakPoints.Add(ctx, int64(s.BreakPoints))
		}
	case EventVolumeFailed:
		d.volumeFailures.Add(ctx, 1)
	}
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	go func() {
		for e := range buffer {
			h(e)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
