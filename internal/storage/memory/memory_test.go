// internal/storage/memory/memory_test.go
package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stopbank/crestline/pkg/core"
)

func sampleRun() *core.Run {
	return &core.Run{
		ID:         "3f2a1c9e-run",
		StartedAt:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		CurvesPath: "stopbanks.geojson",
		RasterPath: "lidar_dem.asc",
		SourceEPSG: 4326,
		TargetEPSG: 2193,
		Version:    "1.0.0",
	}
}

func TestNew(t *testing.T) {
	cfg := Config{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if !b.cfg.CompressOutput {
		t.Error("expected CompressOutput=true")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(Config{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestWritesAccumulate(t *testing.T) {
	b := New(Config{})
	if err := b.BeginRun(sampleRun()); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	f := &core.Feature{ID: "SB-001", Length: 120, Vertices: core.Polyline{{X: 0, Y: 0}, {X: 120, Y: 0}}}
	s := &core.FeatureSummary{FeatureID: "SB-001", Stations: 25, BreakPoints: 100}
	if err := b.WriteFeature(f, s); err != nil {
		t.Fatalf("WriteFeature failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		bp := &core.BreakPoint{FeatureID: "SB-001", Chainage: float64(i * 5), Role: core.RoleCrest, Side: core.SideLeft}
		if err := b.WriteBreakPoint(bp); err != nil {
			t.Fatalf("WriteBreakPoint failed: %v", err)
		}
	}
	if err := b.WriteCrossSection(&core.CrossSection{FeatureID: "SB-001", Chainage: 0}); err != nil {
		t.Fatalf("WriteCrossSection failed: %v", err)
	}
	if err := b.WriteToeBoundary(&core.ToeBoundary{FeatureID: "SB-001", Closed: true}); err != nil {
		t.Fatalf("WriteToeBoundary failed: %v", err)
	}
	if err := b.WriteVolume(&core.VolumeResult{FeatureID: "SB-001", Cut: 1, Fill: 10, Net: 9}); err != nil {
		t.Fatalf("WriteVolume failed: %v", err)
	}

	if len(b.features) != 1 {
		t.Errorf("expected 1 feature, got %d", len(b.features))
	}
	if len(b.breakPoints) != 3 {
		t.Errorf("expected 3 break points, got %d", len(b.breakPoints))
	}
	if len(b.sections) != 1 {
		t.Errorf("expected 1 section, got %d", len(b.sections))
	}
	if len(b.boundaries) != 1 {
		t.Errorf("expected 1 boundary, got %d", len(b.boundaries))
	}
	if len(b.volumes) != 1 {
		t.Errorf("expected 1 volume, got %d", len(b.volumes))
	}
}

func TestBeginRunResetsCollections(t *testing.T) {
	b := New(Config{OutputDir: t.TempDir()})

	// Populate from a first run.
	if err := b.BeginRun(sampleRun()); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	_ = b.WriteBreakPoint(&core.BreakPoint{FeatureID: "SB-001", Role: core.RoleToe})
	_ = b.WriteVolume(&core.VolumeResult{FeatureID: "SB-001", Net: 5})
	if err := b.EndRun(sampleRun()); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}
	if b.lastExportPath == "" {
		t.Fatal("expected an export path after EndRun")
	}

	// A new run must start from a clean slate.
	second := sampleRun()
	second.ID = "second-run"
	if err := b.BeginRun(second); err != nil {
		t.Fatalf("second BeginRun failed: %v", err)
	}

	if len(b.breakPoints) != 0 || len(b.volumes) != 0 || len(b.features) != 0 {
		t.Error("expected collections to be reset by BeginRun")
	}
	if b.lastExportPath != "" {
		t.Error("expected export path to be reset by BeginRun")
	}
	if b.run.ID != "second-run" {
		t.Errorf("expected run header to be replaced, got %s", b.run.ID)
	}
}

func TestEndRunWithoutRun(t *testing.T) {
	b := New(Config{OutputDir: t.TempDir()})

	if err := b.EndRun(nil); err == nil {
		t.Error("expected EndRun without a run to fail")
	}
}

func TestConcurrentWrites(t *testing.T) {
	b := New(Config{})
	if err := b.BeginRun(sampleRun()); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				bp := &core.BreakPoint{FeatureID: "SB-001", Chainage: float64(i), Role: core.RoleCrest}
				_ = b.WriteBreakPoint(bp)
			}
		}(w)
	}
	wg.Wait()

	if len(b.breakPoints) != writers*perWriter {
		t.Errorf("expected %d break points, got %d", writers*perWriter, len(b.breakPoints))
	}
}
