package mapgen

import (
	"math"
	"math/rand"
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func TestSunflowerOverflow_PlacesAllNamesWithinRadius(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	centroid := Point{500, 500}
	baseRadius := 200.0

	positions := SunflowerOverflow(names, centroid, baseRadius)
	if len(positions) != len(names) {
		t.Fatalf("expected %d positions, got %d", len(names), len(positions))
	}
	for _, name := range names {
		p, ok := positions[name]
		if !ok {
			t.Fatalf("missing position for %q", name)
		}
		dist := math.Hypot(p.X-centroid.X, p.Y-centroid.Y)
		if dist > baseRadius+1e-9 {
			t.Errorf("%q placed at radius %.2f, want <= %.2f", name, dist, baseRadius)
		}
	}
}

func TestSunflowerOverflow_Empty(t *testing.T) {
	positions := SunflowerOverflow(nil, Point{0, 0}, 100)
	if len(positions) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(positions))
	}
}

func TestSpringSeed_RespectsLockedPositions(t *testing.T) {
	names := []string{"capital", "village"}
	initial := map[string]Point{
		"capital": {100, 100},
		"village": {110, 100},
	}
	locked := map[string]Point{"capital": {100, 100}}

	result := SpringSeed(names, initial, nil, locked, 50)
	if result["capital"] != (Point{100, 100}) {
		t.Errorf("locked position moved: got %+v", result["capital"])
	}
}

func TestSpringSeed_RepulsionSeparatesOverlappingPoints(t *testing.T) {
	names := []string{"a", "b"}
	initial := map[string]Point{
		"a": {500, 500},
		"b": {500.1, 500},
	}
	result := SpringSeed(names, initial, nil, nil, 40)
	dist := math.Hypot(result["a"].X-result["b"].X, result["a"].Y-result["b"].Y)
	if dist < 1 {
		t.Errorf("expected repulsion to separate overlapping points, got distance %.4f", dist)
	}
}

func TestEnergy_SeparatedByPenalizesCloseness(t *testing.T) {
	names := []string{"a", "b"}
	rels := []Relationship{{Source: "a", Target: "b", Type: model.RelationSeparatedBy, Weight: 1}}

	close := candidate{0, 0, 10, 0}
	far := candidate{0, 0, 300, 0}

	if energy(close, names, rels) <= energy(far, names, rels) {
		t.Errorf("expected closer placement to have higher separated_by penalty")
	}
}

func TestEnergy_NorthOfSatisfiedHasLowerEnergyThanViolated(t *testing.T) {
	names := []string{"a", "b"}
	rels := []Relationship{{Source: "a", Target: "b", Type: model.RelationNorthOf, Weight: 1}}

	// a north_of b means a.Y should be less than b.Y (smaller Y = further north).
	satisfied := candidate{0, 0, 0, 100}
	violated := candidate{0, 200, 0, 100}

	if energy(satisfied, names, rels) >= energy(violated, names, rels) {
		t.Errorf("expected satisfied directional constraint to have lower energy")
	}
}

func TestRunDE_ImprovesOnRandomSeed(t *testing.T) {
	names := []string{"a", "b", "c"}
	rels := []Relationship{
		{Source: "a", Target: "b", Type: model.RelationAdjacent, Weight: 1},
		{Source: "b", Target: "c", Type: model.RelationSeparatedBy, Weight: 1},
	}
	cfg := Config{CanvasWidth: 1600, CanvasHeight: 900, DEPopulationSize: 20, DEGenerations: 60}
	rng := rand.New(rand.NewSource(42))

	seed := map[string]Point{"a": {0, 0}, "b": {0, 0}, "c": {0, 0}}
	seedCandidate := candidate{0, 0, 0, 0, 0, 0}
	seedE := energy(seedCandidate, names, rels)

	result := RunDE(names, seed, rels, nil, cfg, rng)
	resultCandidate := candidate{
		result["a"].X, result["a"].Y,
		result["b"].X, result["b"].Y,
		result["c"].X, result["c"].Y,
	}
	resultE := energy(resultCandidate, names, rels)

	if resultE > seedE {
		t.Errorf("expected DE to not worsen energy: seed=%.2f result=%.2f", seedE, resultE)
	}
}

func TestRunDE_LockedPositionsAreFixed(t *testing.T) {
	names := []string{"a", "b"}
	locked := map[string]Point{"a": {42, 42}}
	cfg := Config{CanvasWidth: 1600, CanvasHeight: 900, DEPopulationSize: 8, DEGenerations: 10}
	rng := rand.New(rand.NewSource(1))

	seed := map[string]Point{"a": {42, 42}, "b": {0, 0}}
	result := RunDE(names, seed, nil, locked, cfg, rng)
	if result["a"] != (Point{42, 42}) {
		t.Errorf("locked position was moved by DE: got %+v", result["a"])
	}
}

func TestWhittakerBiome_BoundaryValues(t *testing.T) {
	cases := []struct {
		elevation, moisture float64
		want                string
	}{
		{0, 0, "desert"},
		{1, 1, "snow"},
		{1, 0, "mountains"},
		{0, 1, "wetland"},
	}
	for _, c := range cases {
		got := WhittakerBiome(c.elevation, c.moisture)
		if got != c.want {
			t.Errorf("WhittakerBiome(%.1f, %.1f) = %q, want %q", c.elevation, c.moisture, got, c.want)
		}
	}
}

func TestGenerateTerrain_ProducesFullGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	grid := GenerateTerrain(16, rng)
	if len(grid) != 16 {
		t.Fatalf("expected 16 rows, got %d", len(grid))
	}
	for _, row := range grid {
		if len(row) != 16 {
			t.Fatalf("expected 16 columns, got %d", len(row))
		}
		for _, cell := range row {
			if cell.Elevation < 0 || cell.Elevation > 1 {
				t.Errorf("elevation out of range: %.4f", cell.Elevation)
			}
			if cell.Biome == "" {
				t.Errorf("expected non-empty biome classification")
			}
		}
	}
}

func TestLloydRelax_KeepsSitesWithinCanvas(t *testing.T) {
	sites := map[string]Point{
		"a": {100, 100},
		"b": {1500, 100},
		"c": {800, 800},
	}
	result := LloydRelax(sites, 1600, 900, 5, 30)
	for name, p := range result {
		if p.X < -30 || p.X > 1630 || p.Y < -30 || p.Y > 930 {
			t.Errorf("%q drifted out of bounds: %+v", name, p)
		}
	}
}

func TestLloydRelax_EmptySites(t *testing.T) {
	result := LloydRelax(map[string]Point{}, 1600, 900, 5, 30)
	if len(result) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(result))
	}
}

func TestGenerateRivers_TerminatesWithinStepBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	grid := GenerateTerrain(20, rng)
	sources := []Point{{100, 100}, {800, 450}}

	rivers := GenerateRivers(sources, grid, 1600, 900, rng)
	if len(rivers) != len(sources) {
		t.Fatalf("expected %d rivers, got %d", len(sources), len(rivers))
	}
	for i, r := range rivers {
		if len(r.Points) < 1 {
			t.Errorf("river %d has no points", i)
		}
		if len(r.Widths) != len(r.Points) {
			t.Errorf("river %d width/point length mismatch: %d vs %d", i, len(r.Widths), len(r.Points))
		}
		if r.Widths[0] < r.Widths[len(r.Widths)-1] {
			t.Errorf("river %d should taper from wide to narrow, got %.2f -> %.2f", i, r.Widths[0], r.Widths[len(r.Widths)-1])
		}
	}
}

func TestGenerate_EndToEndProducesLayoutForAllLocations(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.Hierarchy["capital"] = "kingdom"
	world.Hierarchy["village"] = "kingdom"
	world.Hierarchy["kingdom"] = ""
	world.LocationTiers["capital"] = "city"

	rels := []Relationship{
		{Source: "capital", Target: "village", Type: model.RelationNear, Weight: 1},
	}
	cfg := DefaultConfig()
	cfg.DEGenerations = 20
	cfg.DEPopulationSize = 10
	rng := rand.New(rand.NewSource(5))

	layout := Generate(world, rels, nil, cfg, rng)
	for _, name := range []string{"capital", "village", "kingdom"} {
		if _, ok := layout.Entries[name]; !ok {
			t.Errorf("expected layout entry for %q", name)
		}
	}
}

func TestGenerate_PreservesLockedEntryAcrossRegeneration(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.Hierarchy["capital"] = ""
	world.Hierarchy["village"] = ""

	existing := model.NewMapLayout("novel-1")
	existing.Entries["capital"] = &model.LayoutEntry{Name: "capital", X: 999, Y: 999, Locked: true}

	cfg := DefaultConfig()
	cfg.DEGenerations = 10
	cfg.DEPopulationSize = 8
	rng := rand.New(rand.NewSource(9))

	layout := Generate(world, nil, existing, cfg, rng)
	if layout.Entries["capital"].X != 999 || layout.Entries["capital"].Y != 999 {
		t.Errorf("expected locked entry to survive regeneration, got %+v", layout.Entries["capital"])
	}
}
