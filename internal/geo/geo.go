// Package geo implements the Geo Gazetteer collaborator and the novel-level
// geographic-scope/type detection spec §6 names: detect_geo_scope and
// detect_geo_type, plus the four-tiered name resolution used to place real
// locations on the map for non-fictional novels.
package geo

import (
	"strings"

	"github.com/inkforge/atlasforge/internal/model"
)

// Place is one gazetteer hit: a candidate real-world location for a name.
type Place struct {
	Name        string
	Lat         float64
	Lng         float64
	AdminCode   string // e.g. "ADM1".."ADM3", "PPLA".."PPLA3", "PPLC"
	Population  int
	Sources     []string
}

// Gazetteer is the external collaborator spec §6 calls GeoGazetteer: "exposes
// lookup(name) -> list of (lat, lng, admin_code, population, sources) over a
// supplied dataset". A concrete implementation wraps a GeoNames-format
// dataset file; callers needing none (fictional novels) never construct one.
type Gazetteer interface {
	Lookup(name string) ([]Place, error)
}

// notableAdminCodes are the feature codes spec §6 names as "notable":
// administrative divisions ADM1-ADM3 and populated-place capitals/admin
// seats PPLA-PPLA3, PPLC.
var notableAdminCodes = map[string]bool{
	"ADM1": true, "ADM2": true, "ADM3": true,
	"PPLA": true, "PPLA2": true, "PPLA3": true, "PPLC": true,
}

const notablePopulationFloor = 5000

func isNotable(p Place) bool {
	return p.Population >= notablePopulationFloor || notableAdminCodes[p.AdminCode]
}

// GeoScope is the coarse classification detect_geo_scope returns: which
// gazetteer dataset family (if any) a novel's locations should be checked
// against before the finer detect_geo_type pass runs.
type GeoScope string

const (
	ScopeCN    GeoScope = "cn"
	ScopeWorld GeoScope = "world"
	ScopeNone  GeoScope = "none"
)

// cjkRuneRatio returns the fraction of runes across names that fall in the
// CJK Unified Ideographs block.
func cjkRuneRatio(names []string) float64 {
	var total, cjk int
	for _, n := range names {
		for _, r := range n {
			total++
			if r >= 0x4E00 && r <= 0x9FFF {
				cjk++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

// DetectGeoScope picks which gazetteer dataset family to check location
// names against, based on the novel's genre hint and the CJK character
// ratio across its location names (spec §6).
func DetectGeoScope(genreHint string, locationNames []string) GeoScope {
	switch strings.ToLower(genreHint) {
	case "fantasy", "xianxia":
		return ScopeNone
	}
	if cjkRuneRatio(locationNames) >= 0.5 {
		return ScopeCN
	}
	return ScopeWorld
}

// DetectGeoType classifies a novel's world as fictional or
// historically/geographically real, by checking what fraction of its
// location names resolve to a "notable" real-world place (spec §6):
// genres {fantasy, xianxia} short-circuit to fictional; >=20% notable
// matches -> GeoTypeHistoricalCN when ctx.IsHistorical, else
// GeoTypeModernCN; >=5% -> GeoTypeModernCN; <5% -> fictional. There is no
// separate "mixed" result: a 5-20% ratio returns GeoTypeModernCN. Only
// ctx.Gazetteer is consulted; a CN dataset yielding <5% notable matches is
// not retried against the world dataset here.
func DetectGeoType(ctx DetectContext) model.GeoType {
	switch strings.ToLower(ctx.GenreHint) {
	case "fantasy", "xianxia":
		return model.GeoTypeFictional
	}
	if len(ctx.LocationNames) == 0 {
		return model.GeoTypeFictional
	}

	notable := 0
	for _, name := range ctx.LocationNames {
		places, err := ctx.Gazetteer.Lookup(name)
		if err != nil || len(places) == 0 {
			continue
		}
		for _, p := range places {
			if isNotable(p) {
				notable++
				break
			}
		}
	}
	ratio := float64(notable) / float64(len(ctx.LocationNames))

	switch {
	case ratio >= 0.20:
		if ctx.IsHistorical {
			return model.GeoTypeHistoricalCN
		}
		return model.GeoTypeModernCN
	case ratio >= 0.05:
		return model.GeoTypeModernCN
	default:
		return model.GeoTypeFictional
	}
}

// DetectContext bundles DetectGeoType's inputs: the gazetteer to check
// against, the genre hint, the location names harvested from the novel, and
// whether the caller already knows this is a historical-setting work (so a
// real match resolves to GeoTypeHistoricalCN rather than GeoTypeModernCN).
type DetectContext struct {
	Gazetteer     Gazetteer
	GenreHint     string
	LocationNames []string
	IsHistorical  bool
}
