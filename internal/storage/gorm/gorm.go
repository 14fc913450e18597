// Package gormstorage implements the storage.Backend interface on a
// GORM database with internal queues and a background DB writer
// goroutine. It is connection-agnostic: the sqlite and postgres
// backends wrap it and own how the *gorm.DB is made.
package gormstorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/model"
	"github.com/stopbank/crestline/internal/model/convert"
	"github.com/stopbank/crestline/internal/queue"
	"github.com/stopbank/crestline/pkg/core"
)

// writeInterval is the pause between DB writer drain cycles.
const writeInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
// The hooks are nil-safe; a nil DB puts the backend in queue-only mode
// (rows accumulate but nothing is written), which unit tests use.
type Dependencies struct {
	DB              *gorm.DB
	LogManager      *logging.SlogManager
	ConfigSnapshot  func() map[string]any
	IsDatabaseValid func() bool
	DBInsertsPaused func() bool
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	BreakPoints   *queue.Queue[model.BreakPointRecord]
	CrossSections *queue.Queue[model.CrossSectionRecord]
	ToeBoundaries *queue.Queue[model.ToeBoundaryRecord]
	Volumes       *queue.Queue[model.VolumeRecord]
}

func newQueues() *queues {
	return &queues{
		BreakPoints:   queue.New[model.BreakPointRecord](),
		CrossSections: queue.New[model.CrossSectionRecord](),
		ToeBoundaries: queue.New[model.ToeBoundaryRecord](),
		Volumes:       queue.New[model.VolumeRecord](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	runID     atomic.Uint64
	stopChan  chan struct{}
	closeOnce sync.Once
	dbReady   bool
	writeMu   sync.Mutex
	lastWrite atomic.Int64 // nanoseconds of the last drain cycle
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the
// DB writer goroutine. Without a DB the backend stays in queue-only
// mode and neither migrates nor writes.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriters()
	return nil
}

// setupDB migrates the run, feature and artifact tables. Postgres
// additionally gets PostGIS for the geometry columns.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close drains the queues one last time and stops the writer goroutine.
func (b *Backend) Close() error {
	if b.dbReady {
		b.writeCycle()
	}
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
		}
	})
	return nil
}

// BeginRun inserts the run row and remembers its DB id for the writer
// goroutine. The core run keeps its public UUID; only the row id stays
// internal.
func (b *Backend) BeginRun(run *core.Run) error {
	if b.deps.DB == nil {
		return nil
	}

	snapshot := map[string]any{}
	if b.deps.ConfigSnapshot != nil {
		snapshot = b.deps.ConfigSnapshot()
	}

	row := convert.CoreToRun(*run, snapshot)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	b.runID.Store(uint64(row.ID))
	return nil
}

// SetRunID points the writer goroutine at an existing run row, used by
// tooling that appends to a prior run instead of beginning one.
func (b *Backend) SetRunID(id uint) {
	b.runID.Store(uint64(id))
}

// EndRun drains the queues synchronously, then stamps the final
// counters and finish time onto the run row.
func (b *Backend) EndRun(run *core.Run) error {
	if b.deps.DB == nil {
		return nil
	}

	b.writeCycle()

	row := model.Run{UUID: run.ID}
	if err := row.Get(b.deps.DB); err != nil {
		return fmt.Errorf("failed to load run row: %w", err)
	}
	convert.ApplyRunTotals(&row, *run)
	if err := b.deps.DB.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	return nil
}

// WriteFeature inserts the feature row synchronously (not queued)
// because features are low-volume and the volume writer looks the row
// up by (run_id, feature_id) soon after.
func (b *Backend) WriteFeature(f *core.Feature, s *core.FeatureSummary) error {
	if b.deps.DB == nil {
		return nil
	}

	row := convert.CoreToFeature(uint(b.runID.Load()), *f, *s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert feature %s: %w", f.ID, err)
	}
	return nil
}

// WriteBreakPoint converts a break point and pushes it to the write
// queue. The run id is stamped by the writer at drain time.
func (b *Backend) WriteBreakPoint(bp *core.BreakPoint) error {
	b.queues.BreakPoints.Push(convert.CoreToBreakPoint(0, time.Now(), *bp))
	return nil
}

// WriteCrossSection converts and queues a cross-section.
func (b *Backend) WriteCrossSection(cs *core.CrossSection) error {
	b.queues.CrossSections.Push(convert.CoreToCrossSection(0, *cs))
	return nil
}

// WriteToeBoundary converts and queues a toe boundary. A ring that
// cannot form a polygon shell is a caller bug and fails immediately.
func (b *Backend) WriteToeBoundary(tb *core.ToeBoundary) error {
	row, err := convert.CoreToToeBoundary(0, *tb)
	if err != nil {
		return fmt.Errorf("failed to convert toe boundary for %s: %w", tb.FeatureID, err)
	}
	b.queues.ToeBoundaries.Push(row)
	return nil
}

// WriteVolume converts and queues a volume result. After insertion the
// writer copies the balance onto the feature and boundary rows.
func (b *Backend) WriteVolume(v *core.VolumeResult) error {
	b.queues.Volumes.Push(convert.CoreToVolume(0, time.Now(), *v))
	return nil
}

// GetLastDBWriteDuration returns the duration of the last drain cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// writeQueue writes all items from a queue to the database in a
// transaction. On failure the batch returns to the front of the queue
// for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T), onSuccess func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items...)
		return
	}

	tx.Commit()
	if onSuccess != nil {
		onSuccess(items)
	}
}

// writeCycle drains all queues once, in artifact order: break points,
// cross-sections, boundaries, volumes. Boundaries land before volumes
// because the volume writer updates the boundary row afterwards.
func (b *Backend) writeCycle() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	defer func() {
		b.lastWrite.Store(int64(time.Since(start)))
	}()

	log := b.deps.LogManager.WriteLog
	db := b.deps.DB
	runID := uint(b.runID.Load())

	stampBreakPoints := func(items []model.BreakPointRecord) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampCrossSections := func(items []model.CrossSectionRecord) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampToeBoundaries := func(items []model.ToeBoundaryRecord) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampVolumes := func(items []model.VolumeRecord) {
		for i := range items {
			items[i].RunID = runID
		}
	}

	writeQueue(db, b.queues.BreakPoints, "break points", log, stampBreakPoints, nil)
	writeQueue(db, b.queues.CrossSections, "cross sections", log, stampCrossSections, nil)
	writeQueue(db, b.queues.ToeBoundaries, "toe boundaries", log, stampToeBoundaries, nil)
	writeQueue(db, b.queues.Volumes, "volumes", log, stampVolumes, func(items []model.VolumeRecord) {
		for _, v := range items {
			b.applyVolumeRow(runID, v)
		}
	})
}

// applyVolumeRow copies an inserted volume onto the denormalized
// carriers: the feature row and the toe-boundary row. Missing rows are
// logged, not fatal; the volumes table still holds the result.
func (b *Backend) applyVolumeRow(runID uint, v model.VolumeRecord) {
	db := b.deps.DB
	log := b.deps.LogManager.WriteLog

	res := core.VolumeResult{
		FeatureID: v.FeatureID,
		Cut:       v.Cut,
		Fill:      v.Fill,
		Net:       v.Net,
		Cells:     v.Cells,
		CellArea:  v.CellArea,
	}

	feature := model.Feature{RunID: runID, FeatureID: v.FeatureID}
	if err := feature.Get(db); err == nil {
		convert.ApplyVolume(&feature, nil, res)
		if err := db.Save(&feature).Error; err != nil {
			log(":DB:WRITER:", fmt.Sprintf("Error updating feature %s with volume: %v", v.FeatureID, err), "ERROR")
		}
	} else {
		log(":DB:WRITER:", fmt.Sprintf("No feature row for volume %s: %v", v.FeatureID, err), "WARN")
	}

	var boundary model.ToeBoundaryRecord
	err := db.Where("run_id = ? AND feature_id = ?", runID, v.FeatureID).First(&boundary).Error
	if err == nil {
		convert.ApplyVolume(nil, &boundary, res)
		if err := db.Save(&boundary).Error; err != nil {
			log(":DB:WRITER:", fmt.Sprintf("Error updating boundary %s with volume: %v", v.FeatureID, err), "ERROR")
		}
	}
}

// startDBWriters starts the background goroutine that periodically
// drains queues into the DB.
func (b *Backend) startDBWriters() {
	stop := b.stopChan
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}

			if !b.dbReady ||
				(b.deps.IsDatabaseValid != nil && !b.deps.IsDatabaseValid()) ||
				(b.deps.DBInsertsPaused != nil && b.deps.DBInsertsPaused()) {
				time.Sleep(1 * time.Second)
				continue
			}

			b.writeCycle()

			time.Sleep(writeInterval)
		}
	}()
}
