package llm

import (
	"github.com/inkforge/atlasforge/internal/config"
)

// Budget is the set of values the rest of the pipeline derives its
// truncation, injection, and timeout limits from (spec §4.1). It is
// recomputed whenever the model or local/cloud mode changes.
type Budget struct {
	MaxChapterChars     int
	RetryChars          int
	SegmentEnabled      bool
	ExtractionNumCtx    int
	FewshotExampleCount int
	ContextMaxChars     int

	CharacterInjectionCap int
	RelationInjectionCap  int
	LocationInjectionCap  int
	ItemInjectionCap      int

	MacroHubTopK        int
	HierarchyChainDepth int

	WSMaxTokens            int
	WSTimeoutS             int
	HierarchyReviewTimeoutS int
	SubtreeReviewTimeoutS   int

	SceneMaxChapterChars int
}

// calibration anchors at the local-conservative (8192) and cloud-generous
// (131072) calibration points named in spec §4.1. Every interpolated field
// in Budget has a pair here; fields that are constants regardless of
// context window (MacroHubTopK, the two review timeouts) are not.
type anchor struct{ lo, hi int }

var (
	anchorMaxChapterChars     = anchor{6000, 24000}
	anchorRetryChars          = anchor{3000, 12000}
	anchorContextMaxChars     = anchor{2000, 8000}
	anchorCharacterInjection  = anchor{20, 80}
	anchorRelationInjection   = anchor{15, 60}
	anchorLocationInjection   = anchor{15, 60}
	anchorItemInjection       = anchor{10, 40}
	anchorHierarchyChainDepth = anchor{4, 10}
	anchorWSMaxTokens         = anchor{512, 2048}
	anchorWSTimeoutS          = anchor{30, 60}
	anchorSceneMaxChapterChars = anchor{4000, 16000}
)

// ComputeBudget implements spec §4.1's linear interpolation between the
// local-conservative and cloud-generous calibration points, clamped at each
// end. In local mode the effective context window is capped at
// cfg.LocalCap to prevent KV-cache thrashing on consumer GPUs. When
// contextWindowTokens is unknown (<= 0) and providerFamily is "anthropic",
// it defaults to cfg.AnthropicFamilyDefault; otherwise it defaults to
// cfg.LocalContextWindow (the most conservative assumption).
func ComputeBudget(contextWindowTokens int, isCloud bool, providerFamily string, cfg config.BudgetConfig) Budget {
	effectiveCtx := contextWindowTokens
	if effectiveCtx <= 0 {
		if providerFamily == "anthropic" {
			effectiveCtx = cfg.AnthropicFamilyDefault
		} else {
			effectiveCtx = cfg.LocalContextWindow
		}
	}
	if !isCloud && effectiveCtx > cfg.LocalCap {
		effectiveCtx = cfg.LocalCap
	}

	t := clamp01(float64(effectiveCtx-cfg.LocalContextWindow) / float64(cfg.CloudGenerousWindow-cfg.LocalContextWindow))

	fewshot := 1
	if effectiveCtx > 16384 {
		fewshot = 2
	}

	return Budget{
		MaxChapterChars:     lerpInt(anchorMaxChapterChars, t),
		RetryChars:          lerpInt(anchorRetryChars, t),
		SegmentEnabled:      effectiveCtx <= 16384,
		ExtractionNumCtx:    effectiveCtx,
		FewshotExampleCount: fewshot,
		ContextMaxChars:     lerpInt(anchorContextMaxChars, t),

		CharacterInjectionCap: lerpInt(anchorCharacterInjection, t),
		RelationInjectionCap:  lerpInt(anchorRelationInjection, t),
		LocationInjectionCap:  lerpInt(anchorLocationInjection, t),
		ItemInjectionCap:      lerpInt(anchorItemInjection, t),

		MacroHubTopK:        8,
		HierarchyChainDepth: lerpInt(anchorHierarchyChainDepth, t),

		WSMaxTokens:             lerpInt(anchorWSMaxTokens, t),
		WSTimeoutS:              lerpInt(anchorWSTimeoutS, t),
		HierarchyReviewTimeoutS: 60,
		SubtreeReviewTimeoutS:   45,

		SceneMaxChapterChars: lerpInt(anchorSceneMaxChapterChars, t),
	}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func lerpInt(a anchor, t float64) int {
	return a.lo + int(float64(a.hi-a.lo)*t)
}
