// Package mapgen implements the Map Layout Engine (spec §4.12): a
// differential-evolution constraint solver seeded by a force-directed spring
// simulation, sunflower-seed overflow placement for locations beyond the
// solver cap, and Whittaker-biome terrain generation with Lloyd-relaxed
// Voronoi cells and gradient-descent rivers.
package mapgen

import (
	"math"
	"math/rand"

	"github.com/inkforge/atlasforge/internal/model"
)

// Point is a 2D position on the map canvas.
type Point struct{ X, Y float64 }

// Relationship is the solver's view of one spatial constraint between two
// named locations, collapsed from model.SpatialRelationship plus the
// containment edges derived from model.LocationHierarchy.
type Relationship struct {
	Source, Target string
	Type           model.RelationType
	Weight         float64 // evidence strength, derived from model.Confidence
}

// Config bundles the tunables spec §4.12 names explicitly.
type Config struct {
	MaxSolverLocations int // spec default 40
	CanvasWidth        float64
	CanvasHeight       float64
	SeedIterations     int // spring-force seeding iterations, spec default 80
	DEPopulationSize   int
	DEGenerations      int
}

// DefaultConfig returns spec §4.12's named defaults.
func DefaultConfig() Config {
	return Config{
		MaxSolverLocations: 40,
		CanvasWidth:        model.DefaultCanvasWidth,
		CanvasHeight:       model.DefaultCanvasHeight,
		SeedIterations:     80,
		DEPopulationSize:   40,
		DEGenerations:      120,
	}
}

// Generate produces a full MapLayout for the given world and relationship
// set, honoring any already-locked entries in existing (existing may be nil
// for a first-time generation). Locations beyond cfg.MaxSolverLocations are
// placed by sunflower-seed overflow rather than run through the solver.
func Generate(world *model.WorldStructure, rels []Relationship, existing *model.MapLayout, cfg Config, rng *rand.Rand) *model.MapLayout {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	layout := existing
	if layout == nil {
		layout = model.NewMapLayout(world.NovelID)
	}
	layout.CanvasWidth, layout.CanvasHeight = cfg.CanvasWidth, cfg.CanvasHeight

	names := allLocationNames(world)
	locked := lockedPositions(layout)

	solved := names
	var overflow []string
	if len(names) > cfg.MaxSolverLocations {
		solved = names[:cfg.MaxSolverLocations]
		overflow = names[cfg.MaxSolverLocations:]
	}

	centroid := Point{cfg.CanvasWidth / 2, cfg.CanvasHeight / 2}
	circular := hierarchicalCircularLayout(solved, centroid, math.Min(cfg.CanvasWidth, cfg.CanvasHeight)*0.35)
	seeded := SpringSeed(solved, circular, rels, locked, cfg.SeedIterations)

	solverResult := RunDE(solved, seeded, rels, locked, cfg, rng)
	for _, name := range solved {
		applyPlacement(layout, name, solverResult[name], model.ConstraintDerived)
	}

	overflowPositions := SunflowerOverflow(overflow, centroid, math.Min(cfg.CanvasWidth, cfg.CanvasHeight)*0.45)
	for name, pos := range overflowPositions {
		applyPlacement(layout, name, pos, model.ConstraintDerived)
	}

	return layout
}

func applyPlacement(layout *model.MapLayout, name string, p Point, ct model.ConstraintType) {
	if e, ok := layout.Entries[name]; ok && e.Locked {
		return // user-locked positions are pinned, never overwritten by a regen pass
	}
	layout.Entries[name] = &model.LayoutEntry{Name: name, X: p.X, Y: p.Y, ConstraintType: ct}
}

func allLocationNames(world *model.WorldStructure) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for child, parent := range world.Hierarchy {
		add(child)
		if parent != "" {
			add(parent)
		}
	}
	for name := range world.LocationTiers {
		add(name)
	}
	return out
}

func lockedPositions(layout *model.MapLayout) map[string]Point {
	out := make(map[string]Point)
	if layout == nil {
		return out
	}
	for name, e := range layout.Entries {
		if e.Locked {
			out[name] = Point{e.X, e.Y}
		}
	}
	return out
}
