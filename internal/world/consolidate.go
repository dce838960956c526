package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/suffixtier"
)

// tierByRank is the consolidator's own suffix-tier-to-label mapping (spec
// §4.11 "_classify_tier, layers: suffix table -> regex patterns -> LLM hint
// -> default site"). Distinct in purpose from validate.rankToType (which
// labels a single auto-created parent's "type" field): this one buckets
// every location into one of the wide consolidator tiers used for
// catch-all placement decisions.
var tierByRank = map[suffixtier.Rank]string{
	1: "region", 2: "region",
	3: "city", 4: "city",
	5: "building", 6: "building",
	7: "settlement", 8: "settlement",
	suffixtier.MicroRank: "landmark",
}

// descriptiveRegionTails is the regex-pattern fallback layer: names with no
// suffix-table match that nonetheless read as region-scale ("...之地",
// "...地域").
var descriptiveRegionTails = []string{"之地", "地域", "之境"}

// ClassifyTier implements _classify_tier (spec §4.11): suffix table first,
// then regex patterns, then an optional LLM-provided hint, defaulting to
// "site".
func ClassifyTier(name string, llmHint string) string {
	if rank, ok := suffixtier.RankOf(name); ok {
		if tier, ok := tierByRank[rank]; ok {
			return tier
		}
	}
	for _, tail := range descriptiveRegionTails {
		if strings.HasSuffix(name, tail) {
			return "region"
		}
	}
	if llmHint != "" {
		return llmHint
	}
	return "site"
}

// tierRank orders tiers from largest to smallest scale for the
// tier-inversion check (2b).
var tierRank = map[string]int{"region": 1, "city": 2, "building": 3, "settlement": 4, "landmark": 5, "site": 6}

// Consolidator runs the Hierarchy Consolidator & Reviewer (spec §4.11).
type Consolidator struct {
	gateway llm.Gateway
	isCloud bool
}

// New builds a Consolidator. gateway may be nil, in which case the
// macro-skeleton and subtree-review LLM steps are skipped gracefully.
func New(gateway llm.Gateway, isCloud bool) *Consolidator {
	return &Consolidator{gateway: gateway, isCloud: isCloud}
}

// Consolidate runs steps 0 through 3 (spec §4.11): cycle breaking, synonym
// merges, tier classification, resolution, tier-inversion fix, noise-root
// rescue, and the tiered catch-all for orphans.
func (c *Consolidator) Consolidate(world *model.WorldStructure, synonyms map[string]string, llmHints map[string]string) {
	// Step 0: break pre-existing cycles (the second of the three cycle
	// defense layers; ResolveParents is the first, the store's final pass
	// is the third).
	BreakCycles(world)

	// Step 0.5: synonym merges — one location is an alias of another:
	// transfer children, delete the alias.
	applySynonymMerges(world, synonyms)

	// Step 1: tier classification.
	for name := range allKnownLocations(world) {
		hint := llmHints[name]
		world.LocationTiers[name] = ClassifyTier(name, hint)
	}

	// Step 2a: normal resolution.
	ResolveParents(world)

	// Step 2b: tier inversion fix.
	fixTierInversions(world)

	// Step 2c: noise-root rescue.
	rescueNoiseRoots(world)

	// Step 3: tiered catch-all for orphans.
	c.tieredCatchAll(world)
}

func applySynonymMerges(world *model.WorldStructure, synonyms map[string]string) {
	for alias, canonical := range synonyms {
		if alias == canonical {
			continue
		}
		for child, parent := range world.Hierarchy {
			if parent == alias {
				world.Hierarchy[child] = canonical
			}
		}
		delete(world.Hierarchy, alias)

		// Merge the alias's own outgoing votes (it as a child) into canonical's.
		if aliasVotes, ok := world.ParentVotes[alias]; ok {
			canonicalVotes, ok := world.ParentVotes[canonical]
			if !ok {
				canonicalVotes = make(map[string]int)
				world.ParentVotes[canonical] = canonicalVotes
			}
			for parent, weight := range aliasVotes {
				if parent == canonical {
					continue
				}
				canonicalVotes[parent] += weight
			}
			delete(world.ParentVotes, alias)
		}

		// Redirect any other location's vote that named alias as a parent
		// candidate toward canonical instead.
		for _, votes := range world.ParentVotes {
			if w, ok := votes[alias]; ok {
				votes[canonical] += w
				delete(votes, alias)
			}
		}
		logging.Hierarchy("merged synonym %s -> %s", alias, canonical)
	}
}

func allKnownLocations(world *model.WorldStructure) map[string]bool {
	out := make(map[string]bool)
	for child, parent := range world.Hierarchy {
		out[child] = true
		out[parent] = true
	}
	for child, votes := range world.ParentVotes {
		out[child] = true
		for parent := range votes {
			out[parent] = true
		}
	}
	return out
}

// fixTierInversions is step 2b: if a child has a lower rank (larger scale)
// than its parent, the edge is inverted — find a better parent among the
// child's other vote candidates, or else drop the edge (making the child a
// root) rather than persist the inversion.
func fixTierInversions(world *model.WorldStructure) {
	for child, parent := range world.Hierarchy {
		childTier, childOK := tierRank[world.LocationTiers[child]]
		parentTier, parentOK := tierRank[world.LocationTiers[parent]]
		if !childOK || !parentOK || childTier >= parentTier {
			continue
		}
		replaced := false
		votes := world.ParentVotes[child]
		var candidates []string
		for c := range votes {
			candidates = append(candidates, c)
		}
		sort.Slice(candidates, func(i, j int) bool { return votes[candidates[i]] > votes[candidates[j]] })
		for _, candidate := range candidates {
			if candidate == parent {
				continue
			}
			if t, ok := tierRank[world.LocationTiers[candidate]]; ok && t <= childTier {
				world.Hierarchy[child] = candidate
				replaced = true
				break
			}
		}
		if !replaced {
			delete(world.Hierarchy, child)
			logging.Hierarchy("dropped tier-inverted edge %s -> %s with no better candidate", child, parent)
		}
	}
}

// rescueNoiseRoots is step 2c: a root with only one or two direct children and
// no votes of its own is likely extraction noise rather than a real
// top-level region; fold it under the uber-root directly rather than
// leaving it as a spurious independent root.
func rescueNoiseRoots(world *model.WorldStructure) {
	if world.UberRoot == "" {
		return
	}
	children := world.Hierarchy.Children()
	for _, root := range world.Hierarchy.Roots() {
		if root == world.UberRoot {
			continue
		}
		if len(children[root]) <= 2 && totalVotes(world, root) == 0 {
			world.Hierarchy[root] = world.UberRoot
		}
	}
}

// tieredCatchAll is step 3: place remaining orphans via (a) prefix match,
// (b) dominant-intermediate match, (c) tier-gated uber-root fallback.
func (c *Consolidator) tieredCatchAll(world *model.WorldStructure) {
	if world.UberRoot == "" {
		return
	}
	known := allKnownLocations(world)
	children := world.Hierarchy.Children()

	var dominantIntermediate string
	bestCount := -1
	for _, child := range children[world.UberRoot] {
		if n := len(descendantsOf(children, child)); n > bestCount {
			dominantIntermediate, bestCount = child, n
		}
	}

	for name := range known {
		if name == world.UberRoot {
			continue
		}
		if _, hasParent := world.Hierarchy[name]; hasParent {
			continue
		}

		// (a) prefix match against a known node's name.
		placed := false
		for other := range known {
			if other != name && other != world.UberRoot && strings.HasPrefix(name, other) {
				world.Hierarchy[name] = other
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		rank, rankOK := suffixtier.RankOf(name)

		// (b) dominant-intermediate match: site/building orphans (rank >= 5)
		// adopted by the uber-root's direct child with the most
		// descendants (>= 3 required).
		if rankOK && rank >= 5 && dominantIntermediate != "" && bestCount >= 3 {
			world.Hierarchy[name] = dominantIntermediate
			continue
		}

		// (c) tier-gated uber-root fallback: only city-level and above
		// (rank <= MaxCityRank) may fall through to the uber-root.
		if rankOK && rank <= suffixtier.MaxCityRank {
			world.Hierarchy[name] = world.UberRoot
		}
		// Smaller, unrankable orphans with no other signal remain
		// independent roots rather than being forced under the uber-root.
	}
}

func descendantsOf(children map[string][]string, root string) []string {
	var out []string
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// macroSkeletonTuple is one {child, parent, confidence} entry the
// macro-skeleton LLM call returns (spec §4.11).
type macroSkeletonTuple struct {
	Child      string `json:"child"`
	Parent     string `json:"parent"`
	Confidence string `json:"confidence"`
}

type macroSkeletonResponse struct {
	Tuples   []macroSkeletonTuple `json:"tuples"`
	Synonyms map[string]string    `json:"synonyms"`
}

// confidenceWeight implements "Confidence weights: high -> 5, medium -> 3"
// (spec §4.11); unrecognized confidences are dropped.
func confidenceWeight(confidence string) (int, bool) {
	switch confidence {
	case "high":
		return 5, true
	case "medium":
		return 3, true
	default:
		return 0, false
	}
}

// MacroSkeleton implements the macro-skeleton pre-generation step (spec
// §4.11): one LLM call, 45s timeout, graceful failure. Only tuples whose
// names exist in the known set are accepted (no hallucinated names); they
// are injected as external votes, and any returned synonyms are merged via
// applySynonymMerges.
func (c *Consolidator) MacroSkeleton(ctx context.Context, world *model.WorldStructure, title, genre string) error {
	if c.gateway == nil {
		logging.WorldWarn("macro-skeleton skipped: no gateway configured")
		return nil
	}
	known := allKnownLocations(world)

	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	prompt := macroSkeletonPrompt(title, genre, world, known)
	result, err := c.gateway.Call(ctx, llm.CallOptions{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You infer a geography skeleton for a work of fiction from its known locations."},
			{Role: llm.RoleUser, Content: prompt},
		},
		ResponseFormat: llm.ResponseFormatJSONSchema,
		SchemaName:     "MacroSkeleton",
		Schema:         macroSkeletonSchema,
		NovelID:        world.NovelID,
	})
	if err != nil {
		logging.WorldWarn("macro-skeleton call failed, continuing non-fatally: %v", err)
		return nil
	}

	var parsed macroSkeletonResponse
	if err := json.Unmarshal([]byte(result.Content), &parsed); err != nil {
		logging.WorldWarn("macro-skeleton response malformed, continuing non-fatally: %v", err)
		return nil
	}

	for _, t := range parsed.Tuples {
		if !known[t.Child] || !known[t.Parent] {
			continue // no hallucinated names accepted
		}
		weight, ok := confidenceWeight(t.Confidence)
		if !ok {
			continue
		}
		world.RecordVote(t.Child, t.Parent, weight)
	}
	if len(parsed.Synonyms) > 0 {
		applySynonymMerges(world, parsed.Synonyms)
	}
	return nil
}

func macroSkeletonPrompt(title, genre string, world *model.WorldStructure, known map[string]bool) string {
	children := world.Hierarchy.Children()
	var uberChildren []string
	if world.UberRoot != "" {
		uberChildren = children[world.UberRoot]
	}
	var aboveCity, orphans []string
	for name := range known {
		rank, ok := suffixtier.RankOf(name)
		if ok && rank <= suffixtier.MaxCityRank {
			aboveCity = append(aboveCity, name)
		}
		if _, hasParent := world.Hierarchy[name]; !hasParent && name != world.UberRoot {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(uberChildren)
	sort.Strings(aboveCity)
	sort.Strings(orphans)

	return fmt.Sprintf(
		"Title: %s\nGenre: %s\nKnown top-level regions: %s\nKnown city-and-above locations: %s\nOrphan locations needing a parent: %s\nReturn {child, parent, confidence in {high, medium}} tuples, plus optional synonym merges, using only the names listed above.",
		title, genre, strings.Join(uberChildren, ", "), strings.Join(aboveCity, ", "), strings.Join(orphans, ", "))
}

var macroSkeletonSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tuples": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"child":      map[string]any{"type": "string"},
					"parent":     map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "string", "enum": []string{"high", "medium"}},
				},
				"required": []string{"child", "parent", "confidence"},
			},
		},
		"synonyms": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
	},
}

// subtreeReviewThreshold is the ">= 5 nodes" threshold for an independent
// LLM validation call (spec §4.11); smaller subtrees are batched together.
const subtreeReviewThreshold = 5

// maxDetailLines caps each review prompt at 30 detail lines (spec §4.11).
const maxDetailLines = 30

// SubtreeReview implements "Subtree LLM review" (spec §4.11): splits the
// hierarchy into BFS subtrees rooted at each uber-root direct child.
// Subtrees with >= subtreeReviewThreshold nodes get an independent call;
// smaller subtrees are batched into one call. In cloud mode, calls run
// concurrently (errgroup); in local mode, sequentially. Each subtree carries
// its own 45s timeout.
func (c *Consolidator) SubtreeReview(ctx context.Context, world *model.WorldStructure) error {
	if c.gateway == nil {
		logging.WorldWarn("subtree review skipped: no gateway configured")
		return nil
	}
	children := world.Hierarchy.Children()
	if world.UberRoot == "" {
		return nil
	}

	var large [][]string
	var smallBatch []string
	for _, root := range children[world.UberRoot] {
		subtree := append([]string{root}, descendantsOf(children, root)...)
		if len(subtree) >= subtreeReviewThreshold {
			large = append(large, subtree)
		} else {
			smallBatch = append(smallBatch, subtree...)
		}
	}

	review := func(subtree []string) error {
		subCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		defer cancel()
		return c.reviewOneSubtree(subCtx, world, subtree)
	}

	if c.isCloud {
		eg, egCtx := errgroup.WithContext(ctx)
		for _, subtree := range large {
			subtree := subtree
			eg.Go(func() error {
				subCtx, cancel := context.WithTimeout(egCtx, 45*time.Second)
				defer cancel()
				return c.reviewOneSubtree(subCtx, world, subtree)
			})
		}
		if err := eg.Wait(); err != nil {
			logging.WorldWarn("subtree review group returned an error, continuing non-fatally: %v", err)
		}
	} else {
		for _, subtree := range large {
			if err := review(subtree); err != nil {
				logging.WorldWarn("subtree review failed, continuing non-fatally: %v", err)
			}
		}
	}

	if len(smallBatch) > 0 {
		if err := review(smallBatch); err != nil {
			logging.WorldWarn("batched small-subtree review failed, continuing non-fatally: %v", err)
		}
	}
	return nil
}

func (c *Consolidator) reviewOneSubtree(ctx context.Context, world *model.WorldStructure, subtree []string) error {
	lines := subtree
	if len(lines) > maxDetailLines {
		lines = lines[:maxDetailLines]
	}
	prompt := fmt.Sprintf("Review this location subtree for a work of fiction and flag any parent assignment that looks wrong: %s", strings.Join(lines, ", "))

	result, err := c.gateway.Call(ctx, llm.CallOptions{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You validate a geography subtree for internal consistency."},
			{Role: llm.RoleUser, Content: prompt},
		},
		ResponseFormat: llm.ResponseFormatJSONSchema,
		SchemaName:     "SubtreeReview",
		Schema:         macroSkeletonSchema,
		NovelID:        world.NovelID,
	})
	if err != nil {
		return err
	}
	var parsed macroSkeletonResponse
	if err := json.Unmarshal([]byte(result.Content), &parsed); err != nil {
		return err
	}
	known := allKnownLocations(world)
	for _, t := range parsed.Tuples {
		if !known[t.Child] || !known[t.Parent] {
			continue
		}
		if weight, ok := confidenceWeight(t.Confidence); ok {
			world.RecordVote(t.Child, t.Parent, weight)
		}
	}
	return nil
}
