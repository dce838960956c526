// Package contextbuild implements the Context Summary Builder (spec §4.6):
// assembles the prior-context string injected into every Fact Extractor
// call, in six ordered, independently budget-capped sections.
package contextbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/suffixtier"
)

// worldSummaryFraction is the share of Budget.ContextMaxChars section 6 (the
// world-structure summary) may use. Budget has no dedicated
// world_summary_chars field (spec §4.6 names one without pinning its
// relationship to the other budget fields), so this is an Open Question
// resolution rather than a grounded constant: capping it as a fraction of
// the overall context budget keeps it proportional across local/cloud
// calibration instead of hard-coding an absolute character count.
const worldSummaryFraction = 0.15

// Builder assembles context strings from accumulated chapter facts.
type Builder struct{}

// New builds a Builder. The Context Summary Builder is pure string assembly
// over its inputs and carries no state of its own.
func New() *Builder {
	return &Builder{}
}

// Build implements the Context Summary Builder contract (spec §4.6):
// build(chapter_num, preceding_facts, dictionary, world_structure, budget).
// precedingFacts must be ordered oldest-first; the most recent entry drives
// scene focus (section 2).
func (b *Builder) Build(chapterNum int, precedingFacts []*model.ChapterFact, dictionary *model.EntityDictionary, world *model.WorldStructure, budget llm.Budget) string {
	var sections []string

	sections = append(sections, capSection(b.dictionarySection(dictionary, budget), budget.ContextMaxChars))
	sections = append(sections, capSection(b.sceneFocusSection(precedingFacts), budget.ContextMaxChars))
	sections = append(sections, capSection(b.macroHubSection(world, budget), budget.ContextMaxChars))
	sections = append(sections, capSection(b.hierarchyChainsSection(precedingFacts, world, budget), budget.ContextMaxChars))
	sections = append(sections, capSection(b.knownLocationsSection(dictionary, budget), budget.ContextMaxChars))
	sections = append(sections, capSection(b.worldSummarySection(world, int(float64(budget.ContextMaxChars)*worldSummaryFraction)), 0))

	var nonEmpty []string
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

// dictionarySection is section 1: naming-source entries first (visually
// emphasized), then frequency-sorted entries up to the injection caps.
// Always injected, even for chapter 1 with no preceding facts (spec §4.6:
// "early-exit-on-empty-preceding is not permitted").
func (b *Builder) dictionarySection(dictionary *model.EntityDictionary, budget llm.Budget) string {
	if dictionary == nil || len(dictionary.Entries) == 0 {
		return ""
	}

	var naming, rest []*model.DictEntry
	for _, e := range dictionary.Entries {
		if e.Source == model.SourceNamingPattern {
			naming = append(naming, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.Slice(naming, func(i, j int) bool { return naming[i].Name < naming[j].Name })
	sort.Slice(rest, func(i, j int) bool { return rest[i].Frequency > rest[j].Frequency })

	cap := entryCapFor(budget)
	if len(rest) > cap {
		rest = rest[:cap]
	}

	var out strings.Builder
	out.WriteString("### Known Entities\n")
	if len(naming) > 0 {
		out.WriteString("** Named entities (explicitly introduced by name) **\n")
		for _, e := range naming {
			fmt.Fprintf(&out, "- %s (%s)\n", e.Name, e.Type)
		}
	}
	for _, e := range rest {
		fmt.Fprintf(&out, "- %s (%s)\n", e.Name, e.Type)
	}
	return out.String()
}

func entryCapFor(budget llm.Budget) int {
	return budget.CharacterInjectionCap + budget.LocationInjectionCap + budget.ItemInjectionCap
}

// sceneFocusSection is section 2: the primary setting and co-occurring
// locations of the most recently processed chapter.
func (b *Builder) sceneFocusSection(precedingFacts []*model.ChapterFact) string {
	if len(precedingFacts) == 0 {
		return ""
	}
	last := precedingFacts[len(precedingFacts)-1]
	rank := func(name string) (int, bool) {
		r, ok := suffixtier.RankOf(name)
		return int(r), ok
	}
	setting, ok := last.PrimarySetting(rank)
	if !ok {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "### Scene Focus\nPrimary setting: %s\n", setting.Name)
	var coOccurring []string
	for _, loc := range last.Locations {
		if loc.Name != setting.Name {
			coOccurring = append(coOccurring, loc.Name)
		}
	}
	if len(coOccurring) > 0 {
		fmt.Fprintf(&out, "Also present: %s\n", strings.Join(coOccurring, ", "))
	}
	return out.String()
}

// macroHubSection is section 3: the uber-root's direct children with >= 3
// descendants, top MacroHubTopK by descendant count, each with up to 5
// sub-children (spec §4.6: "Required to let the LLM assign correct
// intermediate parents").
func (b *Builder) macroHubSection(world *model.WorldStructure, budget llm.Budget) string {
	if world == nil || world.UberRoot == "" {
		return ""
	}
	children := world.Hierarchy.Children()
	descendantCount := make(map[string]int)
	var countDescendants func(name string) int
	countDescendants = func(name string) int {
		if c, ok := descendantCount[name]; ok {
			return c
		}
		total := 0
		for _, child := range children[name] {
			total += 1 + countDescendants(child)
		}
		descendantCount[name] = total
		return total
	}

	type hub struct {
		name  string
		count int
	}
	var hubs []hub
	for _, child := range children[world.UberRoot] {
		if n := countDescendants(child); n >= 3 {
			hubs = append(hubs, hub{child, n})
		}
	}
	sort.Slice(hubs, func(i, j int) bool { return hubs[i].count > hubs[j].count })
	if len(hubs) > budget.MacroHubTopK {
		hubs = hubs[:budget.MacroHubTopK]
	}
	if len(hubs) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString("### Macro Hubs\n")
	for _, h := range hubs {
		fmt.Fprintf(&out, "- %s (%d known sub-locations)\n", h.name, h.count)
		sub := children[h.name]
		if len(sub) > 5 {
			sub = sub[:5]
		}
		for _, s := range sub {
			fmt.Fprintf(&out, "    - %s\n", s)
		}
	}
	return out.String()
}

// hierarchyChainsSection is section 4: up to HierarchyChainDepth chains of
// child -> parent -> grandparent for locations active in preceding facts.
func (b *Builder) hierarchyChainsSection(precedingFacts []*model.ChapterFact, world *model.WorldStructure, budget llm.Budget) string {
	if world == nil || len(world.Hierarchy) == 0 || len(precedingFacts) == 0 {
		return ""
	}
	last := precedingFacts[len(precedingFacts)-1]
	var out strings.Builder
	out.WriteString("### Hierarchy Chains\n")
	written := false
	for _, loc := range last.Locations {
		chain := world.Hierarchy.Chain(loc.Name, budget.HierarchyChainDepth)
		if len(chain) < 2 {
			continue
		}
		fmt.Fprintf(&out, "- %s\n", strings.Join(chain, " -> "))
		written = true
	}
	if !written {
		return ""
	}
	return out.String()
}

// knownLocationsSection is section 5: every known location sorted by
// mention frequency (not recency), with an explicit coreference
// instruction for anaphoric references like "小城".
func (b *Builder) knownLocationsSection(dictionary *model.EntityDictionary, budget llm.Budget) string {
	if dictionary == nil {
		return ""
	}
	var locs []*model.DictEntry
	for _, e := range dictionary.Entries {
		if e.Type == model.EntityLoc {
			locs = append(locs, e)
		}
	}
	if len(locs) == 0 {
		return ""
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Frequency > locs[j].Frequency })
	if len(locs) > budget.LocationInjectionCap {
		locs = locs[:budget.LocationInjectionCap]
	}

	var out strings.Builder
	out.WriteString("### Known Locations\n")
	out.WriteString("(If the text uses a generic or anaphoric reference such as \"小城\" or \"那座山\", map it to its canonical name below rather than treating it as new.)\n")
	for _, l := range locs {
		fmt.Fprintf(&out, "- %s\n", l.Name)
	}
	return out.String()
}

// worldSummarySection is section 6: region names and layer names, capped at
// maxChars.
func (b *Builder) worldSummarySection(world *model.WorldStructure, maxChars int) string {
	if world == nil {
		return ""
	}
	regionSet := make(map[string]bool)
	for _, region := range world.LocationRegionMap {
		regionSet[region] = true
	}
	var regions []string
	for r := range regionSet {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	var layers []string
	for _, l := range world.Layers {
		layers = append(layers, l.Name)
	}

	if len(regions) == 0 && len(layers) == 0 {
		return ""
	}
	var out strings.Builder
	out.WriteString("### World Structure\n")
	if len(regions) > 0 {
		fmt.Fprintf(&out, "Regions: %s\n", strings.Join(regions, ", "))
	}
	if len(layers) > 0 {
		fmt.Fprintf(&out, "Layers: %s\n", strings.Join(layers, ", "))
	}
	return capSection(out.String(), maxChars)
}

// capSection truncates s from the tail when it exceeds maxChars, preserving
// the leading structural marker line (spec §4.6: "truncated from the tail,
// preserving structural markers"). maxChars <= 0 disables the cap.
func capSection(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	marker := ""
	rest := s
	if idx := strings.Index(s, "\n"); idx >= 0 && strings.HasPrefix(s, "###") {
		marker = s[:idx+1]
		rest = s[idx+1:]
	}
	restRunes := []rune(rest)
	remaining := maxChars - len([]rune(marker))
	if remaining < 0 {
		remaining = 0
	}
	if remaining > len(restRunes) {
		remaining = len(restRunes)
	}
	return marker + string(restRunes[:remaining])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
