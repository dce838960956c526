package validate

import (
	"context"
	"testing"

	"github.com/inkforge/atlasforge/internal/mangle"
	"github.com/inkforge/atlasforge/internal/model"
)

func strPtr(s string) *string { return &s }

func TestValidate_RejectsSingleCharLocation(t *testing.T) {
	v, err := New(mangle.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fact := &model.ChapterFact{
		NovelID: "novel-1", ChapterNum: 1,
		Locations: []model.Location{{Name: "山", Type: "unknown"}, {Name: "青云城", Type: "城"}},
	}
	out, err := v.Validate(context.Background(), fact, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(out.Locations) != 1 || out.Locations[0].Name != "青云城" {
		t.Errorf("got locations %+v, want only 青云城 to survive", out.Locations)
	}
}

func TestValidate_RejectsFurnitureExactMatch(t *testing.T) {
	v, err := New(mangle.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fact := &model.ChapterFact{
		NovelID: "novel-1", ChapterNum: 1,
		Locations: []model.Location{{Name: "炕桌", Type: "unknown"}},
	}
	out, err := v.Validate(context.Background(), fact, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(out.Locations) != 0 {
		t.Errorf("expected 炕桌 rejected, got %+v", out.Locations)
	}
}

func TestValidate_RejectsDemonstrativePrefixedLocation(t *testing.T) {
	v, err := New(mangle.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fact := &model.ChapterFact{
		NovelID: "novel-1", ChapterNum: 1,
		Locations: []model.Location{
			{Name: "这座山", Type: "unknown"},
			{Name: "那片林", Type: "unknown"},
			{Name: "青云城", Type: "城"},
		},
	}
	out, err := v.Validate(context.Background(), fact, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(out.Locations) != 1 || out.Locations[0].Name != "青云城" {
		t.Errorf("got locations %+v, want only 青云城 to survive", out.Locations)
	}
}

func TestValidate_RejectsUnsurnamedSingleCharPerson(t *testing.T) {
	v, err := New(mangle.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fact := &model.ChapterFact{
		NovelID: "novel-1", ChapterNum: 1,
		Characters: []model.Character{{Name: "彪"}, {Name: "张三"}},
	}
	out, err := v.Validate(context.Background(), fact, []string{"张三"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(out.Characters) != 1 || out.Characters[0].Name != "张三" {
		t.Errorf("got characters %+v, want only 张三 (彪 has no surname cross-reference)", out.Characters)
	}
}

func TestValidate_SurnameCrossReferenceAllowsSingleChar(t *testing.T) {
	v, err := New(mangle.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fact := &model.ChapterFact{
		NovelID: "novel-1", ChapterNum: 1,
		Characters: []model.Character{{Name: "张"}},
	}
	out, err := v.Validate(context.Background(), fact, []string{"张三丰"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(out.Characters) != 1 {
		t.Errorf("expected 张 to survive via surname cross-reference, got %+v", out.Characters)
	}
}

func TestBuildNameCorrections(t *testing.T) {
	dict := model.NewEntityDictionary("novel-1")
	dict.Upsert("二愣子", model.EntityPerson, 5, model.SourceNamingPattern)
	dict.Upsert("愣子", model.EntityPerson, 1, model.SourceStats)

	corrections := BuildNameCorrections(dict)
	if corrections["愣子"] != "二愣子" {
		t.Errorf("corrections[愣子] = %q, want 二愣子", corrections["愣子"])
	}
}

func TestMergeAliasedCharacters(t *testing.T) {
	fact := &model.ChapterFact{
		Characters: []model.Character{
			{Name: "李寻欢", Aliases: []string{"探花"}, LocationsInChapter: []string{"京城"}},
			{Name: "探花", LocationsInChapter: []string{"客栈"}},
		},
	}
	mergeAliasedCharacters(fact)
	if len(fact.Characters) != 1 {
		t.Fatalf("expected merge down to 1 character, got %d", len(fact.Characters))
	}
	if fact.Characters[0].Name != "李寻欢" {
		t.Errorf("survivor = %q, want 李寻欢", fact.Characters[0].Name)
	}
	if len(fact.Characters[0].LocationsInChapter) != 2 {
		t.Errorf("expected locations unioned, got %+v", fact.Characters[0].LocationsInChapter)
	}
}

func TestDisambiguateHomonyms(t *testing.T) {
	fact := &model.ChapterFact{
		Locations: []model.Location{
			{Name: "夹道", Parent: strPtr("荣国府")},
		},
		SpatialRelationships: []model.SpatialRelationship{
			{Source: "夹道", Target: "荣国府", RelationType: model.RelationContains},
		},
		Characters: []model.Character{
			{Name: "袭人", LocationsInChapter: []string{"夹道"}},
		},
		Events: []model.NamedEvent{
			{Name: "撞见", Chapter: 1, Location: "夹道"},
		},
	}
	disambiguateHomonyms(fact)

	if fact.Locations[0].Name != "荣国府·夹道" {
		t.Errorf("location name = %q, want 荣国府·夹道", fact.Locations[0].Name)
	}
	if fact.SpatialRelationships[0].Source != "荣国府·夹道" {
		t.Errorf("relationship source not renamed: %q", fact.SpatialRelationships[0].Source)
	}
	if fact.Characters[0].LocationsInChapter[0] != "荣国府·夹道" {
		t.Errorf("character location not renamed: %q", fact.Characters[0].LocationsInChapter[0])
	}
	if fact.Events[0].Location != "荣国府·夹道" {
		t.Errorf("event location not renamed: %q", fact.Events[0].Location)
	}
}

func TestInferParentType(t *testing.T) {
	if got := InferParentType("青云城"); got != "城池" {
		t.Errorf("InferParentType(青云城) = %q, want 城池", got)
	}
	if got := InferParentType("不知名之地"); got != "地点" {
		t.Errorf("InferParentType(fallback) = %q, want 地点", got)
	}
}
