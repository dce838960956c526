package mapgen

import (
	"math"
	"math/rand"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// candidate is one DE population member: a flat [x0,y0,x1,y1,...] vector
// over names, in the same order every time so energy() and the mutation
// operators stay aligned.
type candidate []float64

func (c candidate) point(i int) Point { return Point{c[2*i], c[2*i+1]} }

// energy is the weighted penalty function spec §4.12 names: directional
// violation, pairwise distance error, containment violation, separation
// violation, and overlap repulsion, summed over every relationship.
func energy(c candidate, names []string, rels []Relationship) float64 {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}

	var total float64
	for _, r := range rels {
		si, sok := idx[r.Source]
		ti, tok := idx[r.Target]
		if !sok || !tok {
			continue
		}
		a, b := c.point(si), c.point(ti)
		dx, dy := b.X-a.X, b.Y-a.Y
		dist := math.Hypot(dx, dy)
		w := r.Weight
		if w <= 0 {
			w = 1
		}

		switch r.Type {
		case model.RelationNorthOf:
			// source north_of target means source.Y < target.Y (canvas Y grows
			// downward), i.e. dy = target.Y-source.Y > 0; violated otherwise.
			total += w * directionalPenalty(dy < 0, dy)
		case model.RelationSouthOf:
			total += w * directionalPenalty(dy > 0, dy)
		case model.RelationEastOf:
			// source east_of target means source.X > target.X, i.e. dx < 0.
			total += w * directionalPenalty(dx > 0, dx)
		case model.RelationWestOf:
			total += w * directionalPenalty(dx < 0, dx)
		case model.RelationNear:
			total += w * math.Max(0, dist-120) * math.Max(0, dist-120)
		case model.RelationFar:
			total += w * math.Max(0, 400-dist) * math.Max(0, 400-dist)
		case model.RelationAdjacent:
			total += w * math.Abs(dist-100)
		case model.RelationContains:
			total += w * math.Max(0, dist-150) * math.Max(0, dist-150) * 0.5 // containment violation
		case model.RelationSeparatedBy:
			total += w * math.Max(0, 250-dist)
		}

		// overlap repulsion: any two locations placed on top of each other
		// are penalized regardless of relation type.
		if dist < 24 {
			total += (24 - dist) * (24 - dist) * 2
		}
	}
	return total
}

// directionalPenalty returns 0 when the constraint is satisfied (violated is
// false), otherwise a penalty proportional to how far the wrong-signed delta
// is from zero.
func directionalPenalty(violated bool, delta float64) float64 {
	if !violated {
		return 0
	}
	return delta * delta
}

// RunDE runs a differential-evolution search minimizing energy() over names'
// positions, seeded so row 0 of the population is exactly the spring-force
// result and the rest are randomized (spec §4.12). Locked names are fixed in
// every candidate and never mutated.
func RunDE(names []string, seed map[string]Point, rels []Relationship, locked map[string]Point, cfg Config, rng *rand.Rand) map[string]Point {
	n := len(names)
	if n == 0 {
		return map[string]Point{}
	}
	dim := 2 * n
	lockedIdx := make(map[int]bool)
	for i, name := range names {
		if _, ok := locked[name]; ok {
			lockedIdx[2*i] = true
			lockedIdx[2*i+1] = true
		}
	}

	popSize := cfg.DEPopulationSize
	if popSize < 4 {
		popSize = 4
	}
	pop := make([]candidate, popSize)

	row0 := make(candidate, dim)
	for i, name := range names {
		p := seed[name]
		row0[2*i], row0[2*i+1] = p.X, p.Y
	}
	pop[0] = row0

	seedEnergy := energy(row0, names, rels)

	for i := 1; i < popSize; i++ {
		c := make(candidate, dim)
		for j := 0; j < n; j++ {
			c[2*j] = rng.Float64() * cfg.CanvasWidth
			c[2*j+1] = rng.Float64() * cfg.CanvasHeight
		}
		applyLocked(c, names, locked)
		pop[i] = c
	}
	randomSampleEnergy := energy(pop[1], names, rels)
	logging.MapDebug("DE seed energy=%.2f random-sample energy=%.2f (n=%d)", seedEnergy, randomSampleEnergy, n)

	const (
		mutationF  = 0.5
		crossoverP = 0.7
	)

	fitness := make([]float64, popSize)
	for i, c := range pop {
		fitness[i] = energy(c, names, rels)
	}

	for gen := 0; gen < cfg.DEGenerations; gen++ {
		for i := 0; i < popSize; i++ {
			a, b, c := distinctTriple(rng, popSize, i)
			trial := make(candidate, dim)
			copy(trial, pop[i])
			jrand := rng.Intn(dim)
			for j := 0; j < dim; j++ {
				if lockedIdx[j] {
					continue
				}
				if rng.Float64() < crossoverP || j == jrand {
					trial[j] = pop[a][j] + mutationF*(pop[b][j]-pop[c][j])
				}
			}
			clampToCanvas(trial, cfg.CanvasWidth, cfg.CanvasHeight)

			trialFitness := energy(trial, names, rels)
			if trialFitness < fitness[i] {
				pop[i] = trial
				fitness[i] = trialFitness
			}
		}
	}

	best := 0
	for i, f := range fitness {
		if f < fitness[best] {
			best = i
		}
	}

	out := make(map[string]Point, n)
	for i, name := range names {
		if p, ok := locked[name]; ok {
			out[name] = p
			continue
		}
		out[name] = pop[best].point(i)
	}
	return out
}

func applyLocked(c candidate, names []string, locked map[string]Point) {
	for i, name := range names {
		if p, ok := locked[name]; ok {
			c[2*i], c[2*i+1] = p.X, p.Y
		}
	}
}

func clampToCanvas(c candidate, w, h float64) {
	for i := 0; i < len(c); i += 2 {
		c[i] = math.Max(0, math.Min(w, c[i]))
		c[i+1] = math.Max(0, math.Min(h, c[i+1]))
	}
}

func distinctTriple(rng *rand.Rand, n, exclude int) (int, int, int) {
	pick := func() int {
		for {
			v := rng.Intn(n)
			if v != exclude {
				return v
			}
		}
	}
	a := pick()
	b := pick()
	for b == a {
		b = pick()
	}
	c := pick()
	for c == a || c == b {
		c = pick()
	}
	return a, b, c
}
