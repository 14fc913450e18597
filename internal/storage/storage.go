// internal/storage/storage.go
package storage

import "github.com/stopbank/crestline/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	BeginRun(run *core.Run) error
	EndRun(run *core.Run) error

	// Feature registration with its extraction summary
	WriteFeature(f *core.Feature, s *core.FeatureSummary) error

	// Artifact recording
	WriteBreakPoint(bp *core.BreakPoint) error
	WriteCrossSection(cs *core.CrossSection) error
	WriteToeBoundary(tb *core.ToeBoundary) error
	WriteVolume(v *core.VolumeResult) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the crestline web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
