package aggregate

import (
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func TestNormalizeRelationType_ExactThenSubstring(t *testing.T) {
	if got := NormalizeRelationType("师生"); got != "师徒" {
		t.Errorf("exact match: got %q, want 师徒", got)
	}
	if got := NormalizeRelationType("亦师亦友的师生情"); got != "师徒" {
		t.Errorf("substring match: got %q, want 师徒", got)
	}
	if got := NormalizeRelationType("陌生人"); got != "陌生人" {
		t.Errorf("no match: expected passthrough, got %q", got)
	}
}

func TestClassifyRelationCategory(t *testing.T) {
	cases := map[string]string{
		"师徒": "hierarchical", "夫妻": "intimate", "朋友": "social",
		"敌对": "hostile", "父子": "family", "陌生人": "other",
	}
	for in, want := range cases {
		if got := ClassifyRelationCategory(in); got != want {
			t.Errorf("ClassifyRelationCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAggregatePerson_BuildsRelationChain(t *testing.T) {
	facts := []*model.ChapterFact{
		{ChapterNum: 1, Characters: []model.Character{{Name: "张三丰"}, {Name: "张无忌"}},
			CharacterRelationships: []model.CharacterRelationship{
				{Source: "张三丰", Target: "张无忌", RelationType: "师徒", Evidence: "传授武功", Chapter: 1},
			}},
		{ChapterNum: 2, Characters: []model.Character{{Name: "张三丰"}, {Name: "张无忌"}},
			CharacterRelationships: []model.CharacterRelationship{
				{Source: "张三丰", Target: "张无忌", RelationType: "师徒", Evidence: "悉心教导", Chapter: 2},
			}},
	}
	agg := New(facts, nil, nil)
	profile := agg.AggregatePerson("张三丰")
	if len(profile.Relations) != 1 {
		t.Fatalf("expected 1 relation chain, got %d", len(profile.Relations))
	}
	chain := profile.Relations[0]
	if chain.Category != "hierarchical" || chain.Target != "张无忌" {
		t.Errorf("unexpected chain: %+v", chain)
	}
	if len(chain.Stages) != 1 || len(chain.Stages[0].Chapters) != 2 {
		t.Errorf("expected one stage spanning both chapters, got %+v", chain.Stages)
	}
	if chain.Stages[0].Evidence != "传授武功" {
		t.Errorf("Evidence derived field = %q, want first evidence 传授武功", chain.Stages[0].Evidence)
	}
}

func TestGraphEdges_ArgmaxAndPurpleForHierarchical(t *testing.T) {
	facts := []*model.ChapterFact{
		{CharacterRelationships: []model.CharacterRelationship{
			{Source: "甲", Target: "乙", RelationType: "师徒"},
			{Source: "甲", Target: "乙", RelationType: "师徒"},
			{Source: "乙", Target: "甲", RelationType: "朋友"},
		}},
	}
	agg := New(facts, nil, nil)
	edges := agg.GraphEdges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 aggregated edge, got %d", len(edges))
	}
	if edges[0].RelationType != "师徒" {
		t.Errorf("argmax = %q, want 师徒", edges[0].RelationType)
	}
	if edges[0].Color != "purple" {
		t.Errorf("color = %q, want purple for hierarchical relation", edges[0].Color)
	}
}

func TestAggregateLocation_ParentFromWorldStructure(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.Hierarchy["客栈"] = "青云城"
	agg := New(nil, nil, world)
	profile := agg.AggregateLocation("客栈")
	if profile.Parent != "青云城" {
		t.Errorf("Parent = %q, want 青云城", profile.Parent)
	}
}
