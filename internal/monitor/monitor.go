// Package monitor reports extraction progress at a fixed interval: one
// structured log line plus a JSON snapshot file that external tooling
// can poll while a long run is in flight.
package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/raster"
	"github.com/stopbank/crestline/internal/runctx"
	"github.com/stopbank/crestline/internal/worker"
)

// DefaultInterval is used when no monitor interval is configured.
const DefaultInterval = 30 * time.Second

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	LogManager    *logging.SlogManager
	RunContext    *runctx.Context
	WorkerManager *worker.Manager
	Sampler       *raster.Sampler
	OutputDir     string
}

// Status is one progress snapshot, serialized to the status file.
type Status struct {
	Time            time.Time           `json:"time"`
	RunID           string              `json:"runId"`
	Feature         string              `json:"feature,omitempty"`
	Features        int                 `json:"features"`
	BreakPoints     int                 `json:"breakPoints"`
	Sections        int                 `json:"sections"`
	Boundaries      int                 `json:"boundaries"`
	Volumes         int                 `json:"volumes"`
	SkippedStations int                 `json:"skippedStations"`
	PendingWrites   worker.QueueDepths  `json:"pendingWrites"`
	SamplerCache    raster.SamplerStats `json:"samplerCache"`
	LastFlushMs     float32             `json:"lastFlushMs"`
}

// Service runs the progress reporter goroutine.
type Service struct {
	deps      Dependencies
	interval  time.Duration
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a monitor ticking at the given interval.
func NewService(deps Dependencies, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		deps:     deps,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor goroutine is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot assembles the current progress counters.
func (s *Service) Snapshot() Status {
	status := Status{Time: time.Now()}

	if s.deps.RunContext != nil {
		run := s.deps.RunContext.GetRun()
		status.RunID = run.ID
		status.Feature = s.deps.RunContext.Feature()
		status.Features = run.Features
		status.BreakPoints = run.BreakPoints
		status.Sections = run.Sections
		status.Boundaries = run.Boundaries
		status.Volumes = run.Volumes
		status.SkippedStations = run.SkippedStations
	}
	if s.deps.WorkerManager != nil {
		status.PendingWrites = s.deps.WorkerManager.Depths()
		status.LastFlushMs = float32(s.deps.WorkerManager.GetLastWriteDuration().Milliseconds())
	}
	if s.deps.Sampler != nil {
		status.SamplerCache = s.deps.Sampler.Stats()
	}

	return status
}

// StatusFilePath returns where the JSON snapshot is written.
func (s *Service) StatusFilePath() string {
	return filepath.Join(s.deps.OutputDir, "status.json")
}

// Start launches the reporter goroutine. Starting an already running
// monitor is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	logger := s.deps.LogManager.Logger()

	statusFile, err := os.Create(s.StatusFilePath())
	if err != nil {
		logger.Error("Error creating status file", "error", err, "path", s.StatusFilePath())
		statusFile = nil
	}

	go func() {
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		logger.Debug("Starting progress monitor", "interval", s.interval)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if s.deps.RunContext != nil && !s.deps.RunContext.Active() {
					continue
				}
				s.report(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) report(statusFile *os.File) {
	status := s.Snapshot()

	s.deps.LogManager.Logger().Info("Extraction progress",
		"run", status.RunID,
		"features", status.Features,
		"breakPoints", status.BreakPoints,
		"sections", status.Sections,
		"boundaries", status.Boundaries,
		"volumes", status.Volumes,
		"pendingWrites", status.PendingWrites.Total(),
		"cacheEntries", status.SamplerCache.Entries,
	)

	if statusFile == nil {
		return
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		s.deps.LogManager.Logger().Error("Error serializing status", "error", err)
		return
	}
	statusFile.Truncate(0)
	statusFile.Seek(0, 0)
	statusFile.Write(append(data, '\n'))
}

// Stop halts the reporter. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
		s.isRunning = false
	}
}
