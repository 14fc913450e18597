// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	v1 "github.com/stopbank/crestline/internal/storage/memory/export/v1"
	"github.com/stopbank/crestline/pkg/core"
)

// export writes the GeoJSON artifacts and the run bundle. Empty
// collections produce no file. The caller must hold the write lock.
func (b *Backend) export() error {
	if b.run == nil {
		return fmt.Errorf("no run to export")
	}

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	base := "crestline_" + b.run.StartedAt.Format("20060102_150405")

	files := make([]string, 0, 4)
	if len(b.breakPoints) > 0 {
		name := base + "_points.geojson"
		if err := writeJSON(filepath.Join(b.cfg.OutputDir, name), v1.PointsCollection(b.breakPoints)); err != nil {
			return err
		}
		files = append(files, name)
	}
	if len(b.sections) > 0 {
		name := base + "_sections.geojson"
		if err := writeJSON(filepath.Join(b.cfg.OutputDir, name), v1.SectionsCollection(b.sections)); err != nil {
			return err
		}
		files = append(files, name)
	}
	if len(b.boundaries) > 0 {
		name := base + "_boundaries.geojson"
		if err := writeJSON(filepath.Join(b.cfg.OutputDir, name), v1.BoundariesCollection(b.boundaries)); err != nil {
			return err
		}
		files = append(files, name)
	}
	if len(b.volumes) > 0 {
		name := base + "_volumes.json"
		if err := writeJSON(filepath.Join(b.cfg.OutputDir, name), v1.VolumeList(b.volumes)); err != nil {
			return err
		}
		files = append(files, name)
	}

	bundle := v1.Build(&v1.RunData{
		Run:         b.run,
		Features:    b.features,
		BreakPoints: b.breakPoints,
		Sections:    b.sections,
		Boundaries:  b.boundaries,
		Volumes:     b.volumes,
	})
	bundle.Files = files

	filename := base + ".json"
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, bundle); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, bundle); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

// GetExportedFilePath returns the bundle written by the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for the upload API
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta := core.UploadMetadata{}
	if b.lastExportPath != "" {
		meta.Filename = filepath.Base(b.lastExportPath)
	}
	if b.run != nil {
		meta.RunID = b.run.ID
		meta.Features = b.run.Features
		meta.BreakPoints = b.run.BreakPoints
		meta.StartedAt = b.run.StartedAt
		meta.FinishedAt = b.run.FinishedAt
	}
	for _, v := range b.volumes {
		meta.NetVolume += v.Net
	}
	return meta
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
