package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/stopbank/crestline/internal/api"
	"github.com/stopbank/crestline/internal/config"
	"github.com/stopbank/crestline/internal/curve"
	"github.com/stopbank/crestline/internal/dispatcher"
	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/internal/handlers"
	"github.com/stopbank/crestline/internal/influx"
	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/monitor"
	"github.com/stopbank/crestline/internal/profile"
	"github.com/stopbank/crestline/internal/raster"
	"github.com/stopbank/crestline/internal/section"
	"github.com/stopbank/crestline/internal/storage"
	"github.com/stopbank/crestline/internal/transect"
	"github.com/stopbank/crestline/internal/volume"
	"github.com/stopbank/crestline/internal/worker"
	"github.com/stopbank/crestline/pkg/core"
)

// runExtraction is the run subcommand: load the terrain and the
// centerlines, bring up storage and metrics, then process each feature
// in file order. An interrupt stops the run between features.
func runExtraction() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// terrain
	rasterPath := config.GetString("raster.path")
	grid, err := raster.OpenASCIIGrid(rasterPath)
	if err != nil {
		fatal("Failed to open terrain raster", err)
	}
	sampler := raster.NewSampler(grid, config.GetInt("sampler.cacheLimit"))
	ncols, nrows := grid.Size()
	Logger.Info("Terrain loaded", "path", rasterPath, "cols", ncols, "rows", nrows, "cellSize", grid.CellSize())

	// centerlines
	sourceEPSG := config.GetInt("projection.sourceEpsg")
	targetEPSG := config.GetInt("projection.targetEpsg")
	var transform *geo.Transformer
	if targetEPSG != 0 && sourceEPSG != targetEPSG {
		transform = geo.NewTransformer(sourceEPSG, targetEPSG)
	}
	curvesPath := config.GetString("curves.path")
	loader := &curve.Loader{
		IDProperty: config.GetString("curves.idProperty"),
		Filter:     config.GetString("curves.filter"),
		Transform:  transform,
		Log:        Logger,
	}
	curves, err := loader.LoadFile(curvesPath)
	if err != nil {
		fatal("Failed to load centerline curves", err)
	}
	Logger.Info("Centerlines loaded", "path", curvesPath, "features", len(curves))

	// storage + flush worker
	outputs := config.GetOutputsConfig()
	storageCfg := config.GetStorageConfig()
	storageBackend, err = initStorage(storageCfg, outputs.Dir)
	if err != nil {
		fatal("Failed to initialize storage backend", err)
	}
	workerManager = worker.NewManager(worker.Dependencies{
		LogManager: SlogManager,
	}, storageBackend, storageCfg.FlushInterval())

	if config.GetBool("influx.enabled") {
		influxManager = initInflux()
	}
	if config.GetBool("api.enabled") {
		checkServerStatus()
	}

	// event routing: handlers turn pipeline events into log lines and
	// influx points, the dispatcher carries the otel counters
	handlerService = handlers.NewService(handlers.Dependencies{
		LogManager: SlogManager,
		Influx:     influxManager,
		RunContext: runContext,
	})
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(subsystemLog))
	if err != nil {
		fatal("Failed to create event dispatcher", err)
	}
	handlerService.RegisterHandlers(eventDispatcher)
	eventDispatcher.SetQueueDepthProvider(func() int64 { return int64(workerManager.Depths().Total()) })
	eventDispatcher.SetCacheSizeProvider(func() int64 { return int64(sampler.Stats().Entries) })

	run := &core.Run{
		ID:         uuid.New().String(),
		StartedAt:  time.Now(),
		CurvesPath: curvesPath,
		RasterPath: rasterPath,
		SourceEPSG: sourceEPSG,
		TargetEPSG: targetEPSG,
		Version:    Version,
	}
	runContext.SetRun(run)
	if err := storageBackend.BeginRun(run); err != nil {
		fatal("Failed to begin run", err)
	}
	workerManager.Start()

	monitorService = monitor.NewService(monitor.Dependencies{
		LogManager:    SlogManager,
		RunContext:    runContext,
		WorkerManager: workerManager,
		Sampler:       sampler,
		OutputDir:     outputs.Dir,
	}, time.Duration(config.GetInt("monitor.intervalSec"))*time.Second)
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Progress monitor unavailable", "error", err)
	}

	builder := &transect.Builder{
		Interval:    config.GetFloat("stations.interval"),
		MaxChainage: config.GetFloat("stations.maxChainage"),
		Extractor: &profile.Extractor{
			Source:      sampler,
			Spacing:     config.GetFloat("profile.spacing"),
			MaxDistance: config.GetFloat("profile.maxDistance"),
		},
		Detector:   newDetector(config.GetDetectorConfig()),
		Elevations: sampler,
		Outputs: transect.Outputs{
			CenterlinePoints: outputs.CenterlinePoints,
			CrestPoints:      outputs.CrestPoints,
			ToePoints:        outputs.ToePoints,
			CrossSections:    outputs.CrossSections,
		},
		Sink: workerManager,
		Log:  Logger,
	}
	engine := &volume.Engine{Terrain: sampler, Log: Logger}

	Logger.Info("Run started", "run", run.ID, "features", len(curves))
	for _, c := range curves {
		if ctx.Err() != nil {
			Logger.Warn("Run interrupted, stopping before the next feature",
				"completed", run.Features, "remaining", len(curves)-run.Features)
			break
		}
		processFeature(run, c, builder, engine, outputs)
	}

	finishRun(run)
}

// processFeature runs the transect pipeline over one centerline and
// publishes its completion event. Stage failures skip the stage, never
// the run.
func processFeature(run *core.Run, c *curve.Curve, builder *transect.Builder, engine *volume.Engine, outputs config.OutputsConfig) {
	start := time.Now()
	runContext.SetFeature(c.ID())

	res := builder.Run(c)
	for _, cs := range res.Sections {
		workerManager.EnqueueCrossSection(cs)
	}

	var boundary core.ToeBoundary
	hasBoundary := false
	if outputs.ToeBoundary {
		boundary, hasBoundary = section.BuildBoundary(c.ID(), res.LeftToes, res.RightToes)
		if hasBoundary {
			workerManager.EnqueueToeBoundary(boundary)
		} else {
			Logger.Debug("No toe boundary",
				"feature", c.ID(), "leftToes", len(res.LeftToes), "rightToes", len(res.RightToes))
		}
	}

	var vol core.VolumeResult
	hasVolume := false
	if outputs.Volumes && outputs.Surfaces {
		switch {
		case !hasBoundary:
			Logger.Debug("Volume skipped, no toe boundary", "feature", c.ID())
		case len(res.Sections) == 0:
			Logger.Debug("Volume skipped, no cross sections", "feature", c.ID())
		default:
			v, err := engine.Compute(res.Sections, boundary)
			if err != nil {
				Logger.Error("Volume computation failed", "feature", c.ID(), "error", err)
				dispatchEvent(dispatcher.EventVolumeFailed, c.ID())
			} else {
				workerManager.EnqueueVolume(v)
				vol = v
				hasVolume = true
			}
		}
	}

	summary := &core.FeatureSummary{
		RunID:           run.ID,
		FeatureID:       c.ID(),
		Length:          c.Length(),
		Stations:        res.Stations,
		SkippedStations: res.SkippedStations,
		BreakPoints:     res.BreakPoints,
		Sections:        len(res.Sections),
		CutVolume:       vol.Cut,
		FillVolume:      vol.Fill,
		NetVolume:       vol.Net,
		HasVolume:       hasVolume,
		Duration:        time.Since(start),
	}
	if hasBoundary {
		summary.BoundaryPoints = len(boundary.Ring)
	}

	feature := c.Feature()
	if err := storageBackend.WriteFeature(&feature, summary); err != nil {
		Logger.Error("Failed to record feature", "feature", c.ID(), "error", err)
	}

	run.Features++
	run.BreakPoints += res.BreakPoints
	run.Sections += len(res.Sections)
	run.SkippedStations += res.SkippedStations
	if hasBoundary {
		run.Boundaries++
	}
	if hasVolume {
		run.Volumes++
	}

	dispatchEvent(dispatcher.EventFeatureComplete, summary)
}

// finishRun drains the write queues, finalizes storage, publishes
// run:complete and uploads the exported bundle when a frontend is
// configured.
func finishRun(run *core.Run) {
	run.FinishedAt = time.Now()
	runContext.SetFeature("")

	monitorService.Stop()
	if err := workerManager.Stop(); err != nil {
		Logger.Error("Final artifact flush failed", "error", err)
	}
	if err := storageBackend.EndRun(run); err != nil {
		Logger.Error("Failed to finalize run in storage", "error", err)
	}

	dispatchEvent(dispatcher.EventRunComplete, run)

	if config.GetBool("api.enabled") {
		uploadBundle()
	}

	if err := storageBackend.Close(); err != nil {
		Logger.Error("Failed to close storage backend", "error", err)
	}
	if influxManager != nil {
		influxManager.Close()
	}

	Logger.Info("Run complete",
		"run", run.ID,
		"features", run.Features,
		"breakPoints", run.BreakPoints,
		"sections", run.Sections,
		"boundaries", run.Boundaries,
		"volumes", run.Volumes,
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)
}

// dispatchEvent routes one pipeline event. A missing handler is a
// wiring bug, so it is logged rather than silently dropped.
func dispatchEvent(command string, data any) {
	if _, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Data:      data,
		Timestamp: time.Now(),
	}); err != nil {
		Logger.Warn("Event dispatch failed", "command", command, "error", err)
	}
}

// uploadBundle sends the memory backend's exported run bundle to the
// web frontend. Backends without exports skip the upload.
func uploadBundle() {
	up, ok := storageBackend.(storage.Uploadable)
	if !ok {
		Logger.Debug("Storage backend produces no uploadable bundle",
			"type", config.GetString("storage.type"))
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		Logger.Warn("No exported bundle to upload")
		return
	}

	client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	if err := client.Upload(path, up.GetExportMetadata()); err != nil {
		Logger.Error("Bundle upload failed", "file", path, "error", err)
		return
	}
	Logger.Info("Run bundle uploaded", "file", filepath.Base(path))
}

// initInflux connects the metrics manager. An unreachable server falls
// back to the gzip backup writer inside the manager, so only setup
// errors disable forwarding entirely.
func initInflux() *influx.Manager {
	backupDir := config.GetString("influx.backupDir")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		Logger.Warn("Influx backup directory unavailable, metrics disabled", "dir", backupDir, "error", err)
		return nil
	}
	backupPath := filepath.Join(backupDir,
		fmt.Sprintf("%s_%s.gz", AppName, SessionStartTime.Format("20060102_150405")))

	m := influx.NewManager(subsystemLog, backupPath)
	if err := m.Connect(); err != nil {
		Logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
		return nil
	}
	return m
}

func newDetector(cfg config.DetectorConfig) *profile.Detector {
	return &profile.Detector{
		Window:           cfg.Window,
		CrestThreshold:   cfg.CrestThreshold,
		FlattenThreshold: cfg.FlattenThreshold,
		DropRatio:        cfg.DropRatio,
		ToeRatios:        cfg.ToeRatios,
	}
}
