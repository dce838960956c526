package llm

import (
	"testing"

	"github.com/inkforge/atlasforge/internal/config"
)

func TestComputeBudget_LocalConservative(t *testing.T) {
	cfg := config.DefaultBudgetConfig()
	b := ComputeBudget(8192, false, "openai", cfg)

	if b.ExtractionNumCtx != 8192 {
		t.Errorf("ExtractionNumCtx = %d, want 8192", b.ExtractionNumCtx)
	}
	if !b.SegmentEnabled {
		t.Error("SegmentEnabled should be true at the local-conservative anchor")
	}
	if b.FewshotExampleCount != 1 {
		t.Errorf("FewshotExampleCount = %d, want 1", b.FewshotExampleCount)
	}
	if b.MacroHubTopK != 8 {
		t.Errorf("MacroHubTopK = %d, want 8", b.MacroHubTopK)
	}
	if b.HierarchyReviewTimeoutS != 60 || b.SubtreeReviewTimeoutS != 45 {
		t.Errorf("unexpected fixed timeouts: %+v", b)
	}
}

func TestComputeBudget_CloudGenerous(t *testing.T) {
	cfg := config.DefaultBudgetConfig()
	b := ComputeBudget(131072, true, "openai", cfg)

	if b.ExtractionNumCtx != 131072 {
		t.Errorf("ExtractionNumCtx = %d, want 131072", b.ExtractionNumCtx)
	}
	if b.SegmentEnabled {
		t.Error("SegmentEnabled should be false at the cloud-generous anchor")
	}
	if b.FewshotExampleCount != 2 {
		t.Errorf("FewshotExampleCount = %d, want 2", b.FewshotExampleCount)
	}
	if b.MaxChapterChars != 24000 {
		t.Errorf("MaxChapterChars = %d, want 24000", b.MaxChapterChars)
	}
}

func TestComputeBudget_LocalModeCapsAt16384(t *testing.T) {
	cfg := config.DefaultBudgetConfig()
	// A local model claiming a huge window is still capped.
	b := ComputeBudget(131072, false, "openai", cfg)

	if b.ExtractionNumCtx != cfg.LocalCap {
		t.Errorf("ExtractionNumCtx = %d, want local cap %d", b.ExtractionNumCtx, cfg.LocalCap)
	}
}

func TestComputeBudget_AnthropicUnknownWindowDefaults(t *testing.T) {
	cfg := config.DefaultBudgetConfig()
	b := ComputeBudget(0, true, "anthropic", cfg)

	if b.ExtractionNumCtx != cfg.AnthropicFamilyDefault {
		t.Errorf("ExtractionNumCtx = %d, want anthropic default %d", b.ExtractionNumCtx, cfg.AnthropicFamilyDefault)
	}
	if b.FewshotExampleCount != 2 {
		t.Errorf("FewshotExampleCount = %d, want 2 (anthropic default window is well above 16384)", b.FewshotExampleCount)
	}
}

func TestComputeBudget_NonAnthropicUnknownWindowIsConservative(t *testing.T) {
	cfg := config.DefaultBudgetConfig()
	b := ComputeBudget(0, true, "openai", cfg)

	if b.ExtractionNumCtx != cfg.LocalContextWindow {
		t.Errorf("ExtractionNumCtx = %d, want conservative default %d", b.ExtractionNumCtx, cfg.LocalContextWindow)
	}
}

// TestableProperty5 is spec §8 testable property 5: fewshot_example_count =
// 1 iff context_window <= 16384.
func TestComputeBudget_TestableProperty5(t *testing.T) {
	cfg := config.DefaultBudgetConfig()

	cases := []int{8192, 12000, 16384, 16385, 20000, 131072}
	for _, ctx := range cases {
		b := ComputeBudget(ctx, true, "openai", cfg)
		want := 1
		if ctx > 16384 {
			want = 2
		}
		if b.FewshotExampleCount != want {
			t.Errorf("ctx=%d: FewshotExampleCount = %d, want %d", ctx, b.FewshotExampleCount, want)
		}
	}
}

func TestComputeBudget_MonotonicInterpolation(t *testing.T) {
	cfg := config.DefaultBudgetConfig()
	low := ComputeBudget(8192, true, "openai", cfg)
	mid := ComputeBudget(60000, true, "openai", cfg)
	high := ComputeBudget(131072, true, "openai", cfg)

	if !(low.MaxChapterChars <= mid.MaxChapterChars && mid.MaxChapterChars <= high.MaxChapterChars) {
		t.Errorf("MaxChapterChars not monotonic: low=%d mid=%d high=%d", low.MaxChapterChars, mid.MaxChapterChars, high.MaxChapterChars)
	}
	if !(low.CharacterInjectionCap <= mid.CharacterInjectionCap && mid.CharacterInjectionCap <= high.CharacterInjectionCap) {
		t.Errorf("CharacterInjectionCap not monotonic")
	}
}
