package mapgen

import (
	"math"
	"math/rand"
)

// valueNoiseField is a hand-rolled 2D value-noise generator: smoothed random
// lattice values with bilinear interpolation between lattice points. No
// OpenSimplex implementation exists anywhere in the example corpus this
// module was grounded on (DESIGN.md records the search), so this stands in
// for spec §4.12's "OpenSimplex elevation field" with the same qualitative
// shape — continuous, seedable, octave-summable noise — built on
// math/rand rather than an unavailable third-party noise library.
type valueNoiseField struct {
	lattice [][]float64
	size    int
}

func newValueNoiseField(size int, rng *rand.Rand) *valueNoiseField {
	lattice := make([][]float64, size+1)
	for i := range lattice {
		lattice[i] = make([]float64, size+1)
		for j := range lattice[i] {
			lattice[i][j] = rng.Float64()
		}
	}
	return &valueNoiseField{lattice: lattice, size: size}
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

// at samples the field at normalized coordinates u,v in [0,1].
func (f *valueNoiseField) at(u, v float64) float64 {
	fx, fy := u*float64(f.size), v*float64(f.size)
	x0, y0 := int(fx), int(fy)
	x1, y1 := min(x0+1, f.size), min(y0+1, f.size)
	tx, ty := smoothstep(fx-float64(x0)), smoothstep(fy-float64(y0))

	top := lerp(f.lattice[y0][x0], f.lattice[y0][x1], tx)
	bottom := lerp(f.lattice[y1][x0], f.lattice[y1][x1], tx)
	return lerp(top, bottom, ty)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// octaveNoise sums octaves layers of the field at increasing frequency and
// decreasing amplitude, the usual fractal-noise construction.
func octaveNoise(f *valueNoiseField, u, v float64, octaves int) float64 {
	var total, amplitude, maxAmp float64
	amplitude = 1
	freq := 1.0
	for i := 0; i < octaves; i++ {
		total += f.at(wrap01(u*freq), wrap01(v*freq)) * amplitude
		maxAmp += amplitude
		amplitude *= 0.5
		freq *= 2
	}
	return total / maxAmp
}

func wrap01(v float64) float64 {
	v = math.Mod(v, 1.0)
	if v < 0 {
		v += 1.0
	}
	return v
}

// whittakerTable is the 5x5 elevation x moisture biome matrix spec §4.12
// names. Rows are elevation bands low->high, columns moisture bands
// dry->wet.
var whittakerTable = [5][5]string{
	{"desert", "scrubland", "grassland", "grassland", "wetland"},
	{"desert", "shrubland", "grassland", "forest", "swamp"},
	{"plains", "woodland", "forest", "forest", "rainforest"},
	{"hills", "woodland", "forest", "temperate_rainforest", "rainforest"},
	{"mountains", "alpine_tundra", "tundra", "taiga", "snow"},
}

// WhittakerBiome classifies (elevation, moisture), each in [0,1], via
// bilinear interpolation over the 5x5 table above — interpreted here as a
// nearest-band classification of the interpolated elevation/moisture
// fractional indices, since biome names are categorical and cannot
// themselves be blended.
func WhittakerBiome(elevation, moisture float64) string {
	elevation = math.Max(0, math.Min(1, elevation))
	moisture = math.Max(0, math.Min(1, moisture))
	row := int(elevation * 4.999)
	col := int(moisture * 4.999)
	return whittakerTable[row][col]
}

// TerrainCell is one sampled point of the generated terrain field.
type TerrainCell struct {
	Elevation float64
	Moisture  float64
	Biome     string
}

// GenerateTerrain samples a gridSize x gridSize terrain field across the
// canvas using two independent octave-noise fields (elevation, moisture),
// classified through WhittakerBiome.
func GenerateTerrain(gridSize int, rng *rand.Rand) [][]TerrainCell {
	elevField := newValueNoiseField(8, rng)
	moistField := newValueNoiseField(8, rng)

	grid := make([][]TerrainCell, gridSize)
	for y := 0; y < gridSize; y++ {
		grid[y] = make([]TerrainCell, gridSize)
		for x := 0; x < gridSize; x++ {
			u, v := float64(x)/float64(gridSize), float64(y)/float64(gridSize)
			elevation := octaveNoise(elevField, u, v, 4)
			moisture := octaveNoise(moistField, u, v, 3)
			grid[y][x] = TerrainCell{
				Elevation: elevation,
				Moisture:  moisture,
				Biome:     WhittakerBiome(elevation, moisture),
			}
		}
	}
	return grid
}

// VoronoiCell is one relaxed Voronoi region's site position, keyed to the
// location name it represents.
type VoronoiCell struct {
	Name string
	Site Point
}

// LloydRelax runs iterations of Lloyd's algorithm (move each site to the
// centroid of its own Voronoi region, approximated here by the centroid of a
// dense sample of canvas points nearest to it) over the given sites, with
// each site's total displacement from its starting position clamped to
// maxShift on each axis across all iterations (spec §4.12:
// "per-point clamp +-30 px total").
func LloydRelax(sites map[string]Point, canvasW, canvasH float64, iterations int, maxShift float64) map[string]Point {
	const sampleGrid = 40
	names := make([]string, 0, len(sites))
	for n := range sites {
		names = append(names, n)
	}
	if len(names) == 0 {
		return sites
	}

	current := make(map[string]Point, len(sites))
	for k, v := range sites {
		current[k] = v
	}

	for iter := 0; iter < iterations; iter++ {
		sumX := make(map[string]float64, len(names))
		sumY := make(map[string]float64, len(names))
		count := make(map[string]int, len(names))

		for gy := 0; gy < sampleGrid; gy++ {
			for gx := 0; gx < sampleGrid; gx++ {
				px := canvasW * (float64(gx) + 0.5) / sampleGrid
				py := canvasH * (float64(gy) + 0.5) / sampleGrid
				nearest := nearestSite(current, names, px, py)
				sumX[nearest] += px
				sumY[nearest] += py
				count[nearest]++
			}
		}

		for _, name := range names {
			if count[name] == 0 {
				continue
			}
			target := Point{sumX[name] / float64(count[name]), sumY[name] / float64(count[name])}
			orig := sites[name]
			dx := clampAbs(target.X-orig.X, maxShift)
			dy := clampAbs(target.Y-orig.Y, maxShift)
			current[name] = Point{orig.X + dx, orig.Y + dy}
		}
	}
	return current
}

func nearestSite(sites map[string]Point, names []string, x, y float64) string {
	best := names[0]
	bestDist := math.MaxFloat64
	for _, name := range names {
		p := sites[name]
		dx, dy := p.X-x, p.Y-y
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist, best = d, name
		}
	}
	return best
}

// River is a polyline traced from a water-type source location to a canvas
// edge or local elevation minimum, with per-segment width tapering.
type River struct {
	Points []Point
	Widths []float64
}

// GenerateRivers performs gradient descent from each source position through
// the elevation grid, perturbing heading by up to +-15 degrees at each step
// (spec §4.12), terminating at a canvas edge or a local minimum (no lower
// neighbor within the step radius). Width tapers from 3-5px at the source to
// ~1px at the mouth.
func GenerateRivers(sources []Point, grid [][]TerrainCell, canvasW, canvasH float64, rng *rand.Rand) []River {
	gridSize := len(grid)
	if gridSize == 0 {
		return nil
	}
	const (
		stepLen     = 12.0
		maxSteps    = 200
		perturbMaxR = 15.0 * math.Pi / 180
	)

	elevationAt := func(p Point) float64 {
		gx := int(math.Max(0, math.Min(float64(gridSize-1), p.X/canvasW*float64(gridSize))))
		gy := int(math.Max(0, math.Min(float64(gridSize-1), p.Y/canvasH*float64(gridSize))))
		return grid[gy][gx].Elevation
	}

	var rivers []River
	for _, src := range sources {
		river := River{Points: []Point{src}}
		current := src
		heading := rng.Float64() * 2 * math.Pi

		for step := 0; step < maxSteps; step++ {
			bestHeading := heading
			bestElev := elevationAt(current)
			found := false
			for _, delta := range []float64{-perturbMaxR, 0, perturbMaxR} {
				h := heading + delta
				candidate := Point{current.X + stepLen*math.Cos(h), current.Y + stepLen*math.Sin(h)}
				if candidate.X < 0 || candidate.X > canvasW || candidate.Y < 0 || candidate.Y > canvasH {
					continue
				}
				e := elevationAt(candidate)
				if e < bestElev {
					bestElev, bestHeading, found = e, h, true
				}
			}
			if !found {
				break // local minimum: no downhill neighbor
			}
			heading = bestHeading
			current = Point{current.X + stepLen*math.Cos(heading), current.Y + stepLen*math.Sin(heading)}
			river.Points = append(river.Points, current)
			if current.X <= 0 || current.X >= canvasW || current.Y <= 0 || current.Y >= canvasH {
				break // reached a canvas edge
			}
		}

		n := len(river.Points)
		river.Widths = make([]float64, n)
		for i := 0; i < n; i++ {
			t := float64(i) / float64(max(n-1, 1))
			river.Widths[i] = lerp(4.0, 1.0, t)
		}
		rivers = append(rivers, river)
	}
	return rivers
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
