// Package alias implements the Alias Resolver (spec §4.8): builds an
// AliasMap from the entity dictionary and the full run of chapter facts via
// a safety-tiered, hand-rolled Union-Find. No third-party union-find library
// fits this use case — google/mangle/unionfind (already a transitive
// dependency via internal/mangle) is Mangle's own query-evaluation variable
// substitution environment, not a general disjoint-set structure over
// arbitrary strings, so reusing it here would be a semantic mismatch rather
// than a fit. Spec §4.8 itself frames this as bespoke registration/union
// logic, not a generic graph algorithm.
package alias

import (
	"sort"
	"strings"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// SafetyLevel is _alias_safety_level's {0, 1, 2} result (spec §4.8).
type SafetyLevel int

const (
	SafetyHardBlock SafetyLevel = 0
	SafetySoftBlock SafetyLevel = 1
	SafetySafe      SafetyLevel = 2
)

// kinshipTerms is the hard-block set (spec §4.8 tier 0).
var kinshipTerms = map[string]bool{
	"大哥": true, "妈妈": true, "爹": true, "娘": true, "父亲": true, "母亲": true,
	"哥哥": true, "姐姐": true, "弟弟": true, "妹妹": true, "爷爷": true, "奶奶": true,
}

// kinshipSuffixes hard-blocks any name ending in a kinship term suffix.
var kinshipSuffixes = []string{"大哥", "大姐", "叔", "婶", "伯", "姑"}

// genericPersonRefs is the soft-block set (spec §4.8 tier 1).
var genericPersonRefs = map[string]bool{
	"老人": true, "少年": true, "妖精": true, "那怪": true, "少女": true, "老者": true, "书生": true,
}

// pureTitles is the soft-block titles set.
var pureTitles = map[string]bool{
	"堂主": true, "长老": true, "掌门": true, "真人": true, "宗主": true, "教主": true,
}

// collectiveMarkers soft-blocks any name containing a collective marker rune.
var collectiveMarkers = []string{"众", "群", "们"}

// SafetyLevelOf implements _alias_safety_level(name) (spec §4.8).
func SafetyLevelOf(name string) SafetyLevel {
	if kinshipTerms[name] || strings.Contains(name, "的") {
		return SafetyHardBlock
	}
	for _, suffix := range kinshipSuffixes {
		if strings.HasSuffix(name, suffix) {
			return SafetyHardBlock
		}
	}
	if genericPersonRefs[name] || pureTitles[name] {
		return SafetySoftBlock
	}
	if len([]rune(name)) > 8 {
		return SafetySoftBlock
	}
	for _, marker := range collectiveMarkers {
		if strings.Contains(name, marker) {
			return SafetySoftBlock
		}
	}
	return SafetySafe
}

// unionFind is a standard path-compressed, union-by-rank disjoint-set
// structure over entity names.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string), rank: make(map[string]int)}
}

func (u *unionFind) register(name string) {
	if _, ok := u.parent[name]; !ok {
		u.parent[name] = name
		u.rank[name] = 0
	}
}

func (u *unionFind) find(name string) string {
	u.register(name)
	if u.parent[name] != name {
		u.parent[name] = u.find(u.parent[name])
	}
	return u.parent[name]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

func (u *unionFind) groups() map[string][]string {
	out := make(map[string][]string)
	for name := range u.parent {
		root := u.find(name)
		out[root] = append(out[root], name)
	}
	return out
}

// entityObservation is one name+aliases+appearance-frequency record, sourced
// from either a dictionary entry or a chapter-fact character.
type entityObservation struct {
	primary   string
	aliases   []string
	frequency int
}

// Build implements the Alias Resolver contract (spec §4.8):
// build(dictionary, all_chapter_facts) -> AliasMap.
func Build(dictionary *model.EntityDictionary, allChapterFacts []*model.ChapterFact) model.AliasMap {
	observations := collectObservations(dictionary, allChapterFacts)

	uf := newUnionFind()
	knownLevel2 := make(map[string]bool)

	for _, obs := range observations {
		level := SafetyLevelOf(obs.primary)
		var safeAliases []string
		for _, a := range obs.aliases {
			if SafetyLevelOf(a) == SafetySafe {
				safeAliases = append(safeAliases, a)
			}
		}

		if level == SafetySafe {
			uf.register(obs.primary)
			knownLevel2[obs.primary] = true
			for _, a := range safeAliases {
				if bridgesMultipleKnownNames(uf, obs.primary, a, knownLevel2) {
					continue
				}
				uf.union(obs.primary, a)
			}
		} else {
			// Passthrough: the primary itself is never registered as a node,
			// but its safe aliases are still unioned with each other (spec
			// §4.8: "preserves legitimate alias groups without letting
			// generic terms bridge unrelated characters").
			for i := 1; i < len(safeAliases); i++ {
				if bridgesMultipleKnownNames(uf, safeAliases[0], safeAliases[i], knownLevel2) {
					continue
				}
				uf.union(safeAliases[0], safeAliases[i])
			}
		}
	}

	freq := make(map[string]int, len(observations))
	for _, obs := range observations {
		freq[obs.primary] += obs.frequency
		for _, a := range obs.aliases {
			freq[a] += obs.frequency
		}
	}

	aliasMap := make(model.AliasMap)
	for _, members := range uf.groups() {
		canonical := pickCanonical(members, freq)
		for _, m := range members {
			aliasMap[m] = canonical
		}
	}
	logging.AliasDebug("alias resolver built %d groups from %d observations", len(uf.groups()), len(observations))
	return aliasMap
}

// bridgesMultipleKnownNames implements spec §4.8's "skip any union that
// would merge groups containing more than one distinct level-2 name that
// already stands in a known character list" — it checks whether a and b
// already belong to two different groups that each contain a distinct
// known (level-2) name.
func bridgesMultipleKnownNames(uf *unionFind, a, b string, knownLevel2 map[string]bool) bool {
	rootA, rootB := uf.find(a), uf.find(b)
	if rootA == rootB {
		return false
	}
	groups := uf.groups()
	return groupHasKnownName(groups[rootA], knownLevel2) && groupHasKnownName(groups[rootB], knownLevel2)
}

func groupHasKnownName(members []string, knownLevel2 map[string]bool) bool {
	for _, m := range members {
		if knownLevel2[m] {
			return true
		}
	}
	return false
}

// pickCanonical implements _pick_canonical (spec §4.8): keep members with
// frequency >= 50% of the group max, then choose the shortest, ties broken
// lexicographically.
func pickCanonical(members []string, freq map[string]int) string {
	maxFreq := 0
	for _, m := range members {
		if freq[m] > maxFreq {
			maxFreq = freq[m]
		}
	}
	threshold := float64(maxFreq) * 0.5

	var eligible []string
	for _, m := range members {
		if float64(freq[m]) >= threshold {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		eligible = members
	}

	sort.Slice(eligible, func(i, j int) bool {
		li, lj := len([]rune(eligible[i])), len([]rune(eligible[j]))
		if li != lj {
			return li < lj
		}
		return eligible[i] < eligible[j]
	})
	return eligible[0]
}

// collectObservations gathers one entityObservation per distinct primary
// name across the dictionary and every chapter fact's character list.
func collectObservations(dictionary *model.EntityDictionary, allChapterFacts []*model.ChapterFact) []entityObservation {
	byName := make(map[string]*entityObservation)
	order := []string{}

	upsert := func(name string, aliases []string, freqDelta int) {
		obs, ok := byName[name]
		if !ok {
			obs = &entityObservation{primary: name}
			byName[name] = obs
			order = append(order, name)
		}
		obs.frequency += freqDelta
		obs.aliases = append(obs.aliases, aliases...)
	}

	if dictionary != nil {
		for _, entry := range dictionary.Entries {
			if entry.Type != model.EntityPerson {
				continue
			}
			var aliases []string
			for a := range entry.Aliases {
				aliases = append(aliases, a)
			}
			upsert(entry.Name, aliases, entry.Frequency)
		}
	}
	for _, fact := range allChapterFacts {
		if fact == nil {
			continue
		}
		for _, c := range fact.Characters {
			aliases := append(append([]string{}, c.Aliases...), c.NewAliases...)
			upsert(c.Name, aliases, 1)
		}
	}

	out := make([]entityObservation, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}
