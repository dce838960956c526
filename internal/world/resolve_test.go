package world

import (
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func TestComputeWinners_ArgmaxTiebreak(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.RecordVote("客栈", "青云城", 3)
	world.RecordVote("客栈", "天山", 1)

	winners := computeWinners(world)
	if winners["客栈"] != "青云城" {
		t.Errorf("expected argmax winner 青云城, got %q", winners["客栈"])
	}
}

func TestApplySuffixDirectionValidation_FlipsWrongDirection(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	// 城 (rank 3) wrongly recorded as a child of 阁 (rank 5, smaller scale).
	winners := map[string]string{"青云城": "藏经阁"}
	applySuffixDirectionValidation(world, winners)
	if _, stillWrong := winners["青云城"]; stillWrong {
		t.Errorf("expected the wrong-direction edge to be removed, got %v", winners)
	}
	if winners["藏经阁"] != "青云城" {
		t.Errorf("expected flipped edge 藏经阁 -> 青云城, got %v", winners)
	}
}

func TestResolveBidirectionalConflicts_FindsCommonParent(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.RecordVote("甲地", "乙地", 2)
	world.RecordVote("乙地", "甲地", 2)
	world.RecordVote("甲地", "丙州", 1)
	world.RecordVote("乙地", "丙州", 1)

	winners := map[string]string{"甲地": "乙地", "乙地": "甲地"}
	resolved := resolveBidirectionalConflicts(world, winners)
	if resolved["甲地"] != "丙州" || resolved["乙地"] != "丙州" {
		t.Errorf("expected both siblings resolved under common parent 丙州, got %v", resolved)
	}
}

func TestPromoteSameSuffixSiblings_KeepsEdgeWhenNoCommonParent(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	// Both end in the sibling-candidate suffix 村, but there is no shared
	// third-party parent candidate, so the original edge should survive.
	world.RecordVote("上河村", "下河村", 1)
	winners := map[string]string{"上河村": "下河村"}

	result := promoteSameSuffixSiblings(world, winners)
	if result["上河村"] != "下河村" {
		t.Errorf("expected original edge to survive with no common parent, got %v", result)
	}
}

func TestIsPruned_MicroSuffixBelowThreshold(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.RecordVote("乱葬岗门外", "荒村", 1)
	if !isPruned(world, "乱葬岗门外") {
		t.Errorf("expected sub-location name with < minMicroVotes votes to be pruned")
	}
	world.RecordVote("乱葬岗门外", "荒村", minMicroVotes)
	if isPruned(world, "乱葬岗门外") {
		t.Errorf("expected sub-location name at or above minMicroVotes to not be pruned")
	}
}

func TestBreakCycles_ConvergesToAcyclic(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.Hierarchy["甲"] = "乙"
	world.Hierarchy["乙"] = "丙"
	world.Hierarchy["丙"] = "甲"
	world.RecordVote("甲", "乙", 5)
	world.RecordVote("乙", "丙", 5)
	world.RecordVote("丙", "甲", 1) // weakest edge

	BreakCycles(world)
	if !world.Hierarchy.IsAcyclic() {
		t.Fatalf("expected hierarchy to be acyclic after BreakCycles, got %v", world.Hierarchy)
	}
	if _, stillPresent := world.Hierarchy["丙"]; stillPresent {
		t.Errorf("expected the weakest edge 丙->甲 to be broken, hierarchy = %v", world.Hierarchy)
	}
}

func TestResolveParents_EndToEnd(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.RecordVote("藏经阁", "少林寺", 3)
	world.RecordVote("少林寺", "嵩山", 2)

	ResolveParents(world)
	if world.Hierarchy["藏经阁"] != "少林寺" {
		t.Errorf("expected 藏经阁 -> 少林寺, got %v", world.Hierarchy)
	}
	if world.Hierarchy["少林寺"] != "嵩山" {
		t.Errorf("expected 少林寺 -> 嵩山, got %v", world.Hierarchy)
	}
}
