package world

import (
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func TestClassifyTier_SuffixTableFirst(t *testing.T) {
	if got := ClassifyTier("青云城", "building"); got != "city" {
		t.Errorf("suffix table should win over llmHint: got %q, want city", got)
	}
}

func TestClassifyTier_RegexFallback(t *testing.T) {
	if got := ClassifyTier("蛮荒之地", ""); got != "region" {
		t.Errorf("descriptive tail fallback: got %q, want region", got)
	}
}

func TestClassifyTier_LLMHintThenDefault(t *testing.T) {
	if got := ClassifyTier("无名之所", "settlement"); got != "settlement" {
		t.Errorf("llm hint fallback: got %q, want settlement", got)
	}
	if got := ClassifyTier("无名之所", ""); got != "site" {
		t.Errorf("default fallback: got %q, want site", got)
	}
}

func TestApplySynonymMerges_TransfersChildrenAndVotes(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.Hierarchy["藏经阁"] = "少林寺"
	world.RecordVote("藏经阁", "少林寺", 3)
	world.RecordVote("少林寺", "嵩山", 2)
	world.RecordVote("少林寺古刹", "嵩山", 1)

	applySynonymMerges(world, map[string]string{"少林寺古刹": "少林寺"})

	if _, stillThere := world.ParentVotes["少林寺古刹"]; stillThere {
		t.Errorf("expected alias votes removed after merge")
	}
	if world.ParentVotes["少林寺"]["嵩山"] != 3 {
		t.Errorf("expected merged vote weight 3, got %d", world.ParentVotes["少林寺"]["嵩山"])
	}
}

func TestFixTierInversions_DropsEdgeWithNoBetterCandidate(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.Hierarchy["青云城"] = "藏经阁" // city wrongly parented under a building
	world.LocationTiers["青云城"] = "city"
	world.LocationTiers["藏经阁"] = "building"

	fixTierInversions(world)
	if _, present := world.Hierarchy["青云城"]; present {
		t.Errorf("expected tier-inverted edge with no better candidate to be dropped, got %v", world.Hierarchy)
	}
}

func TestRescueNoiseRoots_FoldsUnvotedSmallRootUnderUberRoot(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.UberRoot = "天下"
	world.Hierarchy["小屋"] = "孤儿地" // one descendant, no votes of its own

	rescueNoiseRoots(world)
	if world.Hierarchy["孤儿地"] != "天下" {
		t.Errorf("expected noise root folded under uber-root, got %v", world.Hierarchy)
	}
}

func TestTieredCatchAll_PrefixMatch(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.UberRoot = "天下"
	world.Hierarchy["青云城"] = "天下"
	world.ParentVotes["青云城东门"] = map[string]int{}

	c := New(nil, false)
	c.tieredCatchAll(world)
	if world.Hierarchy["青云城东门"] != "青云城" {
		t.Errorf("expected prefix-matched orphan placed under 青云城, got %v", world.Hierarchy)
	}
}
