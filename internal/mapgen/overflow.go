package mapgen

import "math"

// goldenAngle is phi, the golden angle in radians (spec §4.12: "angle_i = i
// x phi where phi ~ 137.5 degrees").
const goldenAngle = 137.50776405003785 * math.Pi / 180

// SunflowerOverflow places names (every location beyond the solver's
// MAX_SOLVER_LOCATIONS cap) using a sunflower-seed distribution around
// centroid, giving even area fill without the visible concentric rings a
// naive polar grid would produce (spec §4.12).
func SunflowerOverflow(names []string, centroid Point, baseRadius float64) map[string]Point {
	out := make(map[string]Point, len(names))
	n := len(names)
	if n == 0 {
		return out
	}
	for i, name := range names {
		angle := float64(i) * goldenAngle
		r := baseRadius * (0.3 + 0.7*math.Sqrt(float64(i)/float64(n)))
		out[name] = Point{
			X: centroid.X + r*math.Cos(angle),
			Y: centroid.Y + r*math.Sin(angle),
		}
	}
	return out
}
