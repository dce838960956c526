// Package aggregate implements the Entity Aggregator (spec §4.9): on-demand
// aggregation of chapter facts into entity profiles using the AliasMap and a
// fixed relation-normalization/classification vocabulary. Profiles are
// computed views, never persisted as first-class rows, so their types live
// here rather than in internal/model.
package aggregate

import (
	"sort"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// RelationStage is one recorded relation_type within a RelationChain, with
// the chapters it was observed in and deduplicated evidence strings.
type RelationStage struct {
	RelationType string
	Chapters     []int
	Evidences    []string
	// Evidence is a derived field equal to Evidences[0], kept for
	// backwards compatibility (spec §4.9).
	Evidence string
}

// RelationChain is the full relation history between two canonical
// characters within one relation category.
type RelationChain struct {
	Source   string
	Target   string
	Category string
	Stages   []RelationStage
}

// PersonProfile is aggregate_person's return value.
type PersonProfile struct {
	CanonicalName string
	Aliases       []string
	Appearances   []model.Appearance
	Abilities     []string
	Locations     []string
	Relations     []RelationChain
}

// LocationProfile is aggregate_location's return value.
type LocationProfile struct {
	CanonicalName string
	Parent        string
	Children      []string
	Type          string
	Visitors      []string
	Descriptions  []string
}

// ItemProfile and OrgProfile are aggregate_item/aggregate_org's return
// values: both are simple event-history rollups, no relation machinery.
type ItemProfile struct {
	CanonicalName string
	Events        []model.NamedEvent
}

type OrgProfile struct {
	CanonicalName string
	Events        []model.NamedEvent
}

// GraphEdge is one aggregated person-to-person edge for graph visualization.
type GraphEdge struct {
	Source       string
	Target       string
	RelationType string   // argmax over observed relation types
	AllTypes     []string // sorted by frequency, descending
	Color        string
}

// relationVocabulary implements normalize_relation_type's exact-match table
// (spec §4.9: "e.g., 师生→师徒"). Substring matching against these same keys
// is the fallback when no exact match is found.
var relationVocabulary = map[string]string{
	"师生": "师徒", "师徒": "师徒", "徒弟": "师徒", "弟子": "师徒",
	"主仆": "主仆", "仆人": "主仆", "侍从": "主仆",
	"君臣": "君臣", "臣子": "君臣",
	"夫妻": "夫妻", "夫妇": "夫妻", "结发": "夫妻",
	"恋人": "情侣", "爱人": "情侣", "情侣": "情侣",
	"朋友": "朋友", "好友": "朋友", "挚友": "朋友",
	"敌人": "敌对", "仇人": "敌对", "敌对": "敌对", "死敌": "敌对",
	"兄弟": "兄弟", "姐妹": "姐妹", "父子": "父子", "母女": "母女",
}

// hierarchicalTypes receive the distinct "purple" color channel (spec §4.9).
var hierarchicalTypes = map[string]bool{"师徒": true, "主仆": true, "君臣": true}

var colorMap = map[string]string{
	"朋友": "green", "敌对": "red", "夫妻": "pink", "情侣": "pink",
	"兄弟": "blue", "姐妹": "blue", "父子": "blue", "母女": "blue",
}

// NormalizeRelationType implements normalize_relation_type: exact match
// first, then substring match over the same vocabulary, else the raw type
// is returned unchanged (and classifies as "other" downstream).
func NormalizeRelationType(raw string) string {
	if norm, ok := relationVocabulary[raw]; ok {
		return norm
	}
	for key, norm := range relationVocabulary {
		if containsRune(raw, key) {
			return norm
		}
	}
	return raw
}

func containsRune(s, substr string) bool {
	sr, subr := []rune(s), []rune(substr)
	if len(subr) > len(sr) {
		return false
	}
	for i := 0; i+len(subr) <= len(sr); i++ {
		match := true
		for j := range subr {
			if sr[i+j] != subr[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// ClassifyRelationCategory implements classify_relation_category (spec §4.9).
func ClassifyRelationCategory(normalized string) string {
	switch normalized {
	case "父子", "母女", "兄弟", "姐妹":
		return "family"
	case "夫妻", "情侣":
		return "intimate"
	case "师徒", "主仆", "君臣":
		return "hierarchical"
	case "朋友":
		return "social"
	case "敌对":
		return "hostile"
	default:
		return "other"
	}
}

// colorFor implements the edge color channel: hierarchical types get purple
// unconditionally; otherwise exact-match the color map, falling back to a
// keyword-based (category) default.
func colorFor(normalizedType, category string) string {
	if hierarchicalTypes[normalizedType] {
		return "purple"
	}
	if c, ok := colorMap[normalizedType]; ok {
		return c
	}
	switch category {
	case "family":
		return "blue"
	case "intimate":
		return "pink"
	case "social":
		return "green"
	case "hostile":
		return "red"
	case "hierarchical":
		return "purple"
	default:
		return "gray"
	}
}

// Aggregator runs the Entity Aggregator over an accumulated set of chapter
// facts and a resolved AliasMap.
type Aggregator struct {
	facts    []*model.ChapterFact
	aliasMap model.AliasMap
	world    *model.WorldStructure
}

// New builds an Aggregator over the given chapter-fact range, alias map, and
// (optionally nil) world structure.
func New(facts []*model.ChapterFact, aliasMap model.AliasMap, world *model.WorldStructure) *Aggregator {
	return &Aggregator{facts: facts, aliasMap: aliasMap, world: world}
}

func (a *Aggregator) canonical(name string) string {
	if a.aliasMap == nil {
		return name
	}
	return a.aliasMap.Canonical(name)
}

// AggregatePerson implements aggregate_person(canonical_name) -> PersonProfile.
func (a *Aggregator) AggregatePerson(canonicalName string) *PersonProfile {
	profile := &PersonProfile{CanonicalName: canonicalName}
	aliasSet := make(map[string]bool)
	locSet := make(map[string]bool)
	abilitySet := make(map[string]bool)

	// pairChains[other][category] -> chain being built.
	pairChains := make(map[string]map[string]*RelationChain)

	for _, fact := range a.facts {
		if fact == nil {
			continue
		}
		for _, c := range fact.Characters {
			if a.canonical(c.Name) != canonicalName {
				continue
			}
			aliasSet[c.Name] = true
			for _, al := range append(append([]string{}, c.Aliases...), c.NewAliases...) {
				aliasSet[al] = true
			}
			for _, l := range c.LocationsInChapter {
				locSet[l] = true
			}
			for _, ab := range c.Abilities {
				abilitySet[ab] = true
			}
			profile.Appearances = append(profile.Appearances, c.Appearances...)
		}

		for _, rel := range fact.CharacterRelationships {
			src, tgt := a.canonical(rel.Source), a.canonical(rel.Target)
			var other string
			switch canonicalName {
			case src:
				other = tgt
			case tgt:
				other = src
			default:
				continue
			}
			if other == canonicalName {
				continue
			}
			normalized := NormalizeRelationType(rel.RelationType)
			category := ClassifyRelationCategory(normalized)

			byCategory, ok := pairChains[other]
			if !ok {
				byCategory = make(map[string]*RelationChain)
				pairChains[other] = byCategory
			}
			chain, ok := byCategory[category]
			if !ok {
				chain = &RelationChain{Source: canonicalName, Target: other, Category: category}
				byCategory[category] = chain
			}
			addStage(chain, normalized, rel.Chapter, rel.Evidence)
		}
	}

	profile.Locations = sortedKeys(locSet)
	profile.Abilities = sortedKeys(abilitySet)
	delete(aliasSet, canonicalName)
	profile.Aliases = sortedKeys(aliasSet)

	var others []string
	for other := range pairChains {
		others = append(others, other)
	}
	sort.Strings(others)
	for _, other := range others {
		var categories []string
		for cat := range pairChains[other] {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
		for _, cat := range categories {
			profile.Relations = append(profile.Relations, *pairChains[other][cat])
		}
	}

	logging.AggregateDebug("aggregated person %s: %d relation chains, %d locations", canonicalName, len(profile.Relations), len(profile.Locations))
	return profile
}

func addStage(chain *RelationChain, relationType string, chapter int, evidence string) {
	for i := range chain.Stages {
		if chain.Stages[i].RelationType == relationType {
			stage := &chain.Stages[i]
			if !containsInt(stage.Chapters, chapter) {
				stage.Chapters = append(stage.Chapters, chapter)
			}
			if evidence != "" && !containsString(stage.Evidences, evidence) {
				stage.Evidences = append(stage.Evidences, evidence)
			}
			return
		}
	}
	stage := RelationStage{RelationType: relationType, Chapters: []int{chapter}}
	if evidence != "" {
		stage.Evidences = []string{evidence}
		stage.Evidence = evidence
	}
	chain.Stages = append(chain.Stages, stage)
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AggregateLocation implements aggregate_location. parent comes from
// WorldStructure.Hierarchy (spec's "location_parents"), overriding on-the-fly
// whatever parent appears in any chapter fact; children is the map's
// inverse.
func (a *Aggregator) AggregateLocation(canonicalName string) *LocationProfile {
	profile := &LocationProfile{CanonicalName: canonicalName}
	visitorSet := make(map[string]bool)

	for _, fact := range a.facts {
		if fact == nil {
			continue
		}
		if loc, ok := fact.LocationByName(canonicalName); ok {
			if profile.Type == "" {
				profile.Type = loc.Type
			}
			if loc.Description != "" {
				profile.Descriptions = append(profile.Descriptions, loc.Description)
			}
		}
		for _, c := range fact.Characters {
			for _, l := range c.LocationsInChapter {
				if l == canonicalName {
					visitorSet[a.canonical(c.Name)] = true
				}
			}
		}
	}

	if a.world != nil {
		if parent, ok := a.world.Hierarchy[canonicalName]; ok {
			profile.Parent = parent
		}
		profile.Children = a.world.Hierarchy.Children()[canonicalName]
		sort.Strings(profile.Children)
	}
	profile.Visitors = sortedKeys(visitorSet)
	return profile
}

// AggregateItem and AggregateOrg are simple event rollups keyed by name.
func (a *Aggregator) AggregateItem(canonicalName string) *ItemProfile {
	profile := &ItemProfile{CanonicalName: canonicalName}
	for _, fact := range a.facts {
		if fact == nil {
			continue
		}
		for _, ev := range fact.ItemEvents {
			if ev.Name == canonicalName {
				profile.Events = append(profile.Events, ev)
			}
		}
	}
	return profile
}

func (a *Aggregator) AggregateOrg(canonicalName string) *OrgProfile {
	profile := &OrgProfile{CanonicalName: canonicalName}
	for _, fact := range a.facts {
		if fact == nil {
			continue
		}
		for _, ev := range fact.OrgEvents {
			if ev.Name == canonicalName {
				profile.Events = append(profile.Events, ev)
			}
		}
	}
	return profile
}

// GraphEdges implements "Graph edge aggregation" (spec §4.9): counts
// relation types per (source, target) edge and reports the argmax type plus
// all observed types sorted by frequency.
func (a *Aggregator) GraphEdges() []GraphEdge {
	type edgeKey struct{ source, target string }
	counts := make(map[edgeKey]map[string]int)

	for _, fact := range a.facts {
		if fact == nil {
			continue
		}
		for _, rel := range fact.CharacterRelationships {
			src, tgt := a.canonical(rel.Source), a.canonical(rel.Target)
			if src == tgt {
				continue
			}
			if src > tgt {
				src, tgt = tgt, src
			}
			key := edgeKey{src, tgt}
			typeCounts, ok := counts[key]
			if !ok {
				typeCounts = make(map[string]int)
				counts[key] = typeCounts
			}
			typeCounts[NormalizeRelationType(rel.RelationType)]++
		}
	}

	var edges []GraphEdge
	for key, typeCounts := range counts {
		type typeCount struct {
			t string
			n int
		}
		var list []typeCount
		for t, n := range typeCounts {
			list = append(list, typeCount{t, n})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].n != list[j].n {
				return list[i].n > list[j].n
			}
			return list[i].t < list[j].t
		})
		argmax := list[0].t
		var allTypes []string
		for _, tc := range list {
			allTypes = append(allTypes, tc.t)
		}
		edges = append(edges, GraphEdge{
			Source:       key.source,
			Target:       key.target,
			RelationType: argmax,
			AllTypes:     allTypes,
			Color:        colorFor(argmax, ClassifyRelationCategory(argmax)),
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}
