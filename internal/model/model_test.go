package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Run", &Run{}, "runs"},
		{"Feature", &Feature{}, "features"},
		{"BreakPointRecord", &BreakPointRecord{}, "break_points"},
		{"CrossSectionRecord", &CrossSectionRecord{}, "cross_sections"},
		{"ToeBoundaryRecord", &ToeBoundaryRecord{}, "toe_boundaries"},
		{"VolumeRecord", &VolumeRecord{}, "volumes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsCoverEveryTable(t *testing.T) {
	assert.Len(t, DatabaseModels, 6)

	seen := map[string]bool{}
	for _, m := range DatabaseModels {
		named, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T must override TableName", m)
		seen[named.TableName()] = true
	}
	assert.Len(t, seen, 6, "table names must be distinct")
}

func TestVolumeDefaultsOff(t *testing.T) {
	assert.False(t, Feature{}.HasVolume)
	assert.False(t, ToeBoundaryRecord{}.HasVolume)
}
