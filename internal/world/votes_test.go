package world

import (
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func strp(s string) *string { return &s }

func TestRecordVotesFromFact_ExplicitParent(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	fact := &model.ChapterFact{
		Locations: []model.Location{
			{Name: "藏经阁", Parent: strp("少林寺"), Role: model.RoleSetting},
		},
	}
	RecordVotesFromFact(world, fact)
	if world.ParentVotes["藏经阁"]["少林寺"] != weightExplicitParent {
		t.Errorf("expected explicit-parent weight %d, got %d", weightExplicitParent, world.ParentVotes["藏经阁"]["少林寺"])
	}
}

func TestRecordVotesFromFact_ContainsWeightedByConfidence(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	fact := &model.ChapterFact{
		SpatialRelationships: []model.SpatialRelationship{
			{Source: "少林寺", Target: "藏经阁", RelationType: model.RelationContains, Confidence: model.ConfidenceHigh},
			{Source: "嵩山", Target: "山门", RelationType: model.RelationContains, Confidence: model.ConfidenceLow},
		},
	}
	RecordVotesFromFact(world, fact)
	if world.ParentVotes["藏经阁"]["少林寺"] != weightContainsHighConf {
		t.Errorf("high-confidence contains: got %d, want %d", world.ParentVotes["藏经阁"]["少林寺"], weightContainsHighConf)
	}
	if world.ParentVotes["山门"]["嵩山"] != weightContainsMediumOrLow {
		t.Errorf("low-confidence contains: got %d, want %d", world.ParentVotes["山门"]["嵩山"], weightContainsMediumOrLow)
	}
}

func TestRecordVotesFromFact_PrimarySettingOrphanVote(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	fact := &model.ChapterFact{
		Locations: []model.Location{
			{Name: "青云城", Role: model.RoleSetting},
			{Name: "客栈", Role: model.RoleSetting},
		},
	}
	RecordVotesFromFact(world, fact)
	if got := world.ParentVotes["客栈"]["青云城"]; got != weightPrimarySettingOrphan {
		t.Errorf("expected primary-setting orphan vote %d, got %d", weightPrimarySettingOrphan, got)
	}
}

func TestRecordVotesFromFact_ReferencedLocationExcludedFromOrphanVote(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	fact := &model.ChapterFact{
		Locations: []model.Location{
			{Name: "青云城", Role: model.RoleSetting},
			{Name: "天山", Role: model.RoleReferenced},
		},
	}
	RecordVotesFromFact(world, fact)
	if _, ok := world.ParentVotes["天山"]; ok {
		t.Errorf("referenced location should not cast a primary-setting orphan vote, got %v", world.ParentVotes["天山"])
	}
}
