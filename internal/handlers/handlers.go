// Package handlers subscribes to pipeline events and forwards run and
// feature telemetry to the log stream and InfluxDB.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stopbank/crestline/internal/dispatcher"
	"github.com/stopbank/crestline/internal/influx"
	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/runctx"
	"github.com/stopbank/crestline/pkg/core"
)

// Dependencies holds everything the event handlers need.
type Dependencies struct {
	LogManager *logging.SlogManager
	Influx     *influx.Manager // nil disables metric forwarding
	RunContext *runctx.Context
}

// Service turns pipeline events into log lines and Influx points.
type Service struct {
	deps         Dependencies
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	s := &Service{deps: deps}
	// Default writeLog function uses the logging manager
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// RegisterHandlers subscribes the service to the pipeline events.
// Feature telemetry is buffered so a slow Influx write never stalls
// extraction. Run completion stays synchronous: the process is about
// to exit and must not lose the summary.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(dispatcher.EventFeatureComplete, s.handleFeatureComplete,
		dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(dispatcher.EventRunComplete, s.handleRunComplete, dispatcher.Logged())
	d.Register(dispatcher.EventVolumeFailed, s.handleVolumeFailed, dispatcher.Logged())
}

func (s *Service) handleFeatureComplete(e dispatcher.Event) (any, error) {
	summary, ok := e.Data.(*core.FeatureSummary)
	if !ok {
		return nil, fmt.Errorf("%s carried %T, want *core.FeatureSummary", e.Command, e.Data)
	}
	return nil, s.FeatureComplete(summary)
}

func (s *Service) handleRunComplete(e dispatcher.Event) (any, error) {
	run, ok := e.Data.(*core.Run)
	if !ok {
		return nil, fmt.Errorf("%s carried %T, want *core.Run", e.Command, e.Data)
	}
	return nil, s.RunComplete(run)
}

func (s *Service) handleVolumeFailed(e dispatcher.Event) (any, error) {
	featureID, ok := e.Data.(string)
	if !ok {
		return nil, fmt.Errorf("%s carried %T, want feature id string", e.Command, e.Data)
	}
	return nil, s.VolumeFailed(featureID)
}

// FeatureComplete records one finished feature: a progress line on the
// log stream and a feature_extraction point in Influx.
func (s *Service) FeatureComplete(summary *core.FeatureSummary) error {
	if summary == nil {
		return errors.New("nil feature summary")
	}

	// The feature is done; stop stamping its id onto log records.
	if s.deps.RunContext != nil {
		s.deps.RunContext.SetFeature("")
	}

	volume := "skipped"
	if summary.HasVolume {
		volume = fmt.Sprintf("cut=%.1f fill=%.1f net=%.1f",
			summary.CutVolume, summary.FillVolume, summary.NetVolume)
	}
	s.writeLog(dispatcher.EventFeatureComplete, fmt.Sprintf(
		"feature %s: %d stations (%d skipped), %d break points, %d sections, volume %s in %s",
		summary.FeatureID, summary.Stations, summary.SkippedStations,
		summary.BreakPoints, summary.Sections, volume,
		summary.Duration.Round(time.Millisecond)), "info")

	if s.deps.Influx != nil {
		point := influx.FeaturePoint(summary.RunID, summary)
		if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketFeatures, point); err != nil {
			return fmt.Errorf("failed to record feature point: %w", err)
		}
	}

	return nil
}

// RunComplete closes out the run context and writes the run_summary
// point.
func (s *Service) RunComplete(run *core.Run) error {
	if run == nil {
		return errors.New("nil run")
	}

	if s.deps.RunContext != nil {
		s.deps.RunContext.EndRun()
	}

	s.writeLog(dispatcher.EventRunComplete, fmt.Sprintf(
		"run %s: %d features, %d break points, %d sections, %d boundaries, %d volumes, %d stations skipped",
		run.ID, run.Features, run.BreakPoints, run.Sections,
		run.Boundaries, run.Volumes, run.SkippedStations), "info")

	if s.deps.Influx != nil {
		point := influx.RunPoint(run)
		if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketRuns, point); err != nil {
			return fmt.Errorf("failed to record run point: %w", err)
		}
	}

	return nil
}

// VolumeFailed notes a feature whose cut/fill computation produced no
// result. The feature's break points and sections are still stored, so
// this is a warning rather than an error.
func (s *Service) VolumeFailed(featureID string) error {
	s.writeLog(dispatcher.EventVolumeFailed, fmt.Sprintf(
		"feature %s: volume skipped, surfaces could not be built", featureID), "warn")
	return nil
}
