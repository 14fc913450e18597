package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/model"
	"github.com/stopbank/crestline/pkg/core"
)

// TestBackend_EndToEnd runs a full artifact cycle against the real
// in-memory database: begin, feature, queued artifacts, end, dump.
func TestBackend_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "crestline.db")

	b, err := New(
		Config{DumpInterval: time.Hour, DumpPath: dumpPath},
		logging.NewSlogManager(),
		func() map[string]any { return map[string]any{"stations": map[string]any{"interval": 5.0}} },
	)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	started := time.Now()
	run := &core.Run{
		ID:        "11111111-2222-3333-4444-555555555555",
		StartedAt: started,
		Version:   "test",
	}
	require.NoError(t, b.BeginRun(run))

	f := &core.Feature{
		ID:       "stopbank-1",
		Length:   100,
		Vertices: core.Polyline{{X: 0, Y: 0}, {X: 100, Y: 0}},
		Attributes: map[string]any{
			"name": "River Rd stopbank",
		},
	}
	s := &core.FeatureSummary{
		FeatureID:   "stopbank-1",
		Length:      100,
		Stations:    21,
		BreakPoints: 2,
		Sections:    1,
	}
	require.NoError(t, b.WriteFeature(f, s))

	require.NoError(t, b.WriteBreakPoint(&core.BreakPoint{
		FeatureID: "stopbank-1", Chainage: 0, Side: core.SideLeft, Role: core.RoleCrest,
		Position: core.Position3D{X: 0, Y: -3, Z: 10},
	}))
	require.NoError(t, b.WriteBreakPoint(&core.BreakPoint{
		FeatureID: "stopbank-1", Chainage: 0, Side: core.SideLeft, Role: core.RoleToe, Ratio: 1.0,
		Position: core.Position3D{X: 0, Y: -8, Z: 4},
	}))
	require.NoError(t, b.WriteCrossSection(&core.CrossSection{
		FeatureID: "stopbank-1", Chainage: 0,
		Points: []core.Position3D{
			{X: 0, Y: -8, Z: 4}, {X: 0, Y: -3, Z: 10}, {X: 0, Y: 0, Z: 10.2},
			{X: 0, Y: 3, Z: 10}, {X: 0, Y: 8, Z: 4},
		},
	}))
	require.NoError(t, b.WriteToeBoundary(&core.ToeBoundary{
		FeatureID: "stopbank-1",
		Ring: []core.Position3D{
			{X: 0, Y: -8, Z: 4}, {X: 100, Y: -8, Z: 4},
			{X: 100, Y: 8, Z: 4}, {X: 0, Y: 8, Z: 4},
		},
		Closed: true,
	}))
	require.NoError(t, b.WriteVolume(&core.VolumeResult{
		FeatureID: "stopbank-1", Cut: 25, Fill: 250, Net: 225, Cells: 1600, CellArea: 1,
	}))

	run.FinishedAt = started.Add(3 * time.Second)
	run.Features = 1
	run.BreakPoints = 2
	run.Sections = 1
	run.Boundaries = 1
	run.Volumes = 1
	require.NoError(t, b.EndRun(run))

	// EndRun drains synchronously, so the rows are queryable now.
	var runRow model.Run
	runRow.UUID = run.ID
	require.NoError(t, runRow.Get(b.db))
	assert.Equal(t, 2, runRow.BreakPoints)
	assert.Equal(t, 1, runRow.Volumes)
	assert.False(t, runRow.FinishedAt.IsZero())

	var count int64
	require.NoError(t, b.db.Model(&model.BreakPointRecord{}).Where("run_id = ?", runRow.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	require.NoError(t, b.db.Model(&model.CrossSectionRecord{}).Where("run_id = ?", runRow.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Volume was copied onto the feature and boundary rows.
	feature := model.Feature{RunID: runRow.ID, FeatureID: "stopbank-1"}
	require.NoError(t, feature.Get(b.db))
	assert.True(t, feature.HasVolume)
	assert.Equal(t, 225.0, feature.NetVolume)

	var boundary model.ToeBoundaryRecord
	require.NoError(t, b.db.Where("run_id = ? AND feature_id = ?", runRow.ID, "stopbank-1").First(&boundary).Error)
	assert.True(t, boundary.HasVolume)
	assert.Equal(t, 25.0, boundary.CutVolume)

	// Close performs a final dump.
	require.NoError(t, b.Close())
	_, err = os.Stat(dumpPath)
	require.NoError(t, err, "expected dump file after Close")
}

func TestNew_NoDumpConfigured(t *testing.T) {
	b, err := New(Config{}, logging.NewSlogManager(), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}
