package geo

import (
	"math"
	"strings"
)

// cnAdminSuffixes is a representative subset of real-world Chinese
// administrative/geographic suffixes (spec §6: "城/府/州/县/镇/村/山/河/湖/…")
// to strip before retrying a gazetteer lookup, following the same
// documented-partial convention as suffixtier's table.
var cnAdminSuffixes = []string{
	"城", "府", "州", "县", "镇", "村", "山", "河", "湖", "江", "关", "峰", "岭", "港",
}

// Resolver implements spec §6's four-tiered name resolution: a curated
// supplement checked first, then a zh-alias index, then an exact gazetteer
// match, then Chinese suffix stripping with population/admin-code
// disambiguation and parent-proximity validation.
type Resolver struct {
	// Supplement is the curated override table: names known to resolve
	// incorrectly (or not at all) through the gazetteer alone.
	Supplement map[string]Place
	// ZhAliasIndex maps a Chinese alias to the gazetteer's canonical
	// (usually romanized) name, for world-dataset lookups.
	ZhAliasIndex map[string]string
	Gazetteer    Gazetteer
}

// NewResolver builds a Resolver with no supplement or alias entries yet;
// callers populate Supplement/ZhAliasIndex from their configured dataset
// paths (config.GeoConfig) before calling Resolve.
func NewResolver(gz Gazetteer) *Resolver {
	return &Resolver{
		Supplement:   make(map[string]Place),
		ZhAliasIndex: make(map[string]string),
		Gazetteer:    gz,
	}
}

// Resolve returns the best-matching Place for name, or false if no tier
// produces a match. parentLat/parentLng/haveParent gate the suffix-stripped
// tier's two-pass proximity validation: a match found only after stripping a
// suffix is discarded if it falls further than 1000km from the known parent
// location (spec §6).
func (r *Resolver) Resolve(name string, parentLat, parentLng float64, haveParent bool) (Place, bool) {
	if p, ok := r.Supplement[name]; ok {
		return p, true
	}

	if canonical, ok := r.ZhAliasIndex[name]; ok {
		if places, err := r.Gazetteer.Lookup(canonical); err == nil && len(places) > 0 {
			return bestPlace(places), true
		}
	}

	if places, err := r.Gazetteer.Lookup(name); err == nil && len(places) > 0 {
		return bestPlace(places), true
	}

	for _, suffix := range cnAdminSuffixes {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		stripped := strings.TrimSuffix(name, suffix)
		if stripped == "" {
			continue
		}
		places, err := r.Gazetteer.Lookup(stripped)
		if err != nil || len(places) == 0 {
			continue
		}
		candidate := bestPlace(places)
		if haveParent && haversineKM(candidate.Lat, candidate.Lng, parentLat, parentLng) > 1000 {
			continue
		}
		return candidate, true
	}

	return Place{}, false
}

// bestPlace disambiguates multiple gazetteer hits by preferring the one with
// the larger population. On equal population the earlier hit is kept;
// admin codes are not compared.
func bestPlace(places []Place) Place {
	best := places[0]
	for _, p := range places[1:] {
		if p.Population > best.Population {
			best = p
		}
	}
	return best
}

const earthRadiusKM = 6371.0

// haversineKM returns the great-circle distance between two lat/lng points.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
