package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stopbank/crestline/pkg/core"
)

func TestRunPoint(t *testing.T) {
	run := &core.Run{
		ID:              "run-9",
		Version:         "1.0.0",
		StartedAt:       time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 1, 15, 10, 31, 30, 0, time.UTC),
		Features:        4,
		BreakPoints:     160,
		Sections:        84,
		Boundaries:      4,
		Volumes:         3,
		SkippedStations: 2,
	}

	line := influxdb2_write.PointToLineProtocol(RunPoint(run), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "run_summary,"), "got %s", line)
	assert.Contains(t, line, "run_id=run-9")
	assert.Contains(t, line, "features=4i")
	assert.Contains(t, line, "break_points=160i")
	assert.Contains(t, line, "skipped_stations=2i")
	assert.Contains(t, line, "duration_sec=90")
}

func TestFeaturePoint(t *testing.T) {
	s := &core.FeatureSummary{
		FeatureID:   "SB-001",
		Length:      120.5,
		Stations:    25,
		BreakPoints: 100,
		Sections:    25,
		CutVolume:   25,
		FillVolume:  250,
		NetVolume:   225,
		HasVolume:   true,
		Duration:    1500 * time.Millisecond,
	}

	line := influxdb2_write.PointToLineProtocol(FeaturePoint("run-9", s), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "feature_extraction,"), "got %s", line)
	assert.Contains(t, line, "feature_id=SB-001")
	assert.Contains(t, line, "run_id=run-9")
	assert.Contains(t, line, "stations=25i")
	assert.Contains(t, line, "net_volume=225")
	assert.Contains(t, line, "duration_ms=1500i")
}

func TestWritePointFallsBackToBackupFile(t *testing.T) {
	dir := t.TempDir()
	backupPath := filepath.Join(dir, "influx_backup.gz")

	file, err := os.OpenFile(backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)

	m := NewManager(zerolog.Nop(), backupPath)
	m.BackupWriter = gzip.NewWriter(file)

	run := &core.Run{ID: "run-backup", Features: 1}
	require.NoError(t, m.WritePoint(context.Background(), BucketRuns, RunPoint(run)))

	require.NoError(t, m.BackupWriter.Close())
	require.NoError(t, file.Close())

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.Contains(t, string(raw), "run_summary")
	assert.Contains(t, string(raw), "run_id=run-backup")
}

func TestCloseFlushesBackupWriter(t *testing.T) {
	dir := t.TempDir()
	backupPath := filepath.Join(dir, "influx_backup.gz")

	file, err := os.OpenFile(backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer file.Close()

	m := NewManager(zerolog.Nop(), backupPath)
	m.BackupWriter = gzip.NewWriter(file)

	require.NoError(t, m.WritePoint(context.Background(), BucketRuns, RunPoint(&core.Run{ID: "run-close"})))

	m.Close()
	assert.Nil(t, m.BackupWriter)
	m.Close() // second close is a no-op

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "run_id=run-close")
}

func TestWritePointUnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	m.IsValid = true // no writer registered for any bucket

	err := m.WritePoint(context.Background(), "nope", RunPoint(&core.Run{ID: "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestWritePointNoClientNoBackup(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")

	err := m.WritePoint(context.Background(), BucketRuns, RunPoint(&core.Run{ID: "x"}))
	require.Error(t, err)
}

func TestConnectDisabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), "")
	require.Error(t, m.Connect())
}
