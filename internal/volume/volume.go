// internal/volume/volume.go

// Package volume computes cut/fill earthwork balances by differencing
// a lofted embankment surface against the stripped toe surface over
// the terrain raster's own cell lattice.
package volume

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/stopbank/crestline/internal/raster"
	"github.com/stopbank/crestline/internal/surface"
	"github.com/stopbank/crestline/pkg/core"
)

var (
	// ErrNoSections means the feature produced no complete cross
	// sections, so there is nothing to loft.
	ErrNoSections = errors.New("no cross sections to loft")
	// ErrNoOverlap means the toe boundary lies outside the terrain.
	ErrNoOverlap = errors.New("toe boundary does not overlap the terrain")
	// ErrNoCells means no cell center resolved on both surfaces.
	ErrNoCells = errors.New("no grid cells resolved on both surfaces")
)

// Engine integrates the depth difference between two TIN surfaces.
// The cells are the terrain grid's cells clipped to the toe-boundary
// envelope; a cell contributes only where both surfaces resolve at
// its center, so the effective footprint is the overlap of the two
// triangulation hulls.
type Engine struct {
	Terrain raster.Source
	Log     *slog.Logger
}

// Compute lofts the cross-section vertices and the toe-boundary ring
// into TIN surfaces and integrates their difference cell by cell.
// Fill collects the cells where the loft sits above the toe surface,
// Cut the opposite; Net is Fill minus Cut.
func (e *Engine) Compute(sections []core.CrossSection, boundary core.ToeBoundary) (core.VolumeResult, error) {
	if len(sections) == 0 {
		return core.VolumeResult{}, ErrNoSections
	}

	loftPoints := make([]core.Position3D, 0, len(sections)*5)
	for _, s := range sections {
		loftPoints = append(loftPoints, s.Points...)
	}
	loft, err := surface.Build(loftPoints)
	if err != nil {
		return core.VolumeResult{}, fmt.Errorf("lofting cross sections: %w", err)
	}
	toe, err := surface.Build(boundary.Ring)
	if err != nil {
		return core.VolumeResult{}, fmt.Errorf("lofting toe boundary: %w", err)
	}

	return e.difference(boundary.FeatureID, loft, toe, envelope(boundary.Ring))
}

// difference walks the terrain cell centers inside the clip extent
// and accumulates d = loftZ - toeZ per resolvable cell.
func (e *Engine) difference(featureID string, loft, toe *surface.Tin, clip raster.Extent) (core.VolumeResult, error) {
	ext := e.Terrain.Extent()
	cell := e.Terrain.CellSize()

	clip = clip.Intersect(ext)
	if !clip.Valid() {
		return core.VolumeResult{}, ErrNoOverlap
	}

	res := core.VolumeResult{
		FeatureID: featureID,
		CellArea:  cell * cell,
	}

	minCol := int(math.Floor((clip.MinX - ext.MinX) / cell))
	maxCol := int(math.Ceil((clip.MaxX-ext.MinX)/cell)) - 1
	minRow := int(math.Floor((clip.MinY - ext.MinY) / cell))
	maxRow := int(math.Ceil((clip.MaxY-ext.MinY)/cell)) - 1

	for row := minRow; row <= maxRow; row++ {
		cy := ext.MinY + (float64(row)+0.5)*cell
		if cy < clip.MinY || cy > clip.MaxY {
			continue
		}
		for col := minCol; col <= maxCol; col++ {
			cx := ext.MinX + (float64(col)+0.5)*cell
			if cx < clip.MinX || cx > clip.MaxX {
				continue
			}

			loftZ, ok := loft.ElevationAt(cx, cy)
			if !ok {
				continue
			}
			toeZ, ok := toe.ElevationAt(cx, cy)
			if !ok {
				continue
			}

			d := loftZ - toeZ
			switch {
			case d > 0:
				res.Fill += d * res.CellArea
			case d < 0:
				res.Cut += -d * res.CellArea
			}
			res.Cells++
		}
	}

	if res.Cells == 0 {
		return core.VolumeResult{}, ErrNoCells
	}
	res.Net = res.Fill - res.Cut

	e.log().Debug("volumes differenced",
		"feature", featureID, "cells", res.Cells,
		"cut", res.Cut, "fill", res.Fill, "net", res.Net)
	return res, nil
}

// envelope returns the axis-aligned bounds of a point ring.
func envelope(ring []core.Position3D) raster.Extent {
	if len(ring) == 0 {
		return raster.Extent{}
	}
	ext := raster.Extent{
		MinX: ring[0].X, MaxX: ring[0].X,
		MinY: ring[0].Y, MaxY: ring[0].Y,
	}
	for _, p := range ring[1:] {
		ext.MinX = math.Min(ext.MinX, p.X)
		ext.MaxX = math.Max(ext.MaxX, p.X)
		ext.MinY = math.Min(ext.MinY, p.Y)
		ext.MaxY = math.Max(ext.MaxY, p.Y)
	}
	return ext
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
