package contextbuild

import (
	"strings"
	"testing"

	"github.com/inkforge/atlasforge/internal/config"
	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/model"
)

func testBudget() llm.Budget {
	return llm.ComputeBudget(8192, false, "openai", config.DefaultBudgetConfig())
}

func TestBuild_InjectsDictionaryEvenOnChapterOne(t *testing.T) {
	dict := model.NewEntityDictionary("novel-1")
	dict.Upsert("张三丰", model.EntityPerson, 10, model.SourceStats)
	dict.Upsert("二愣子", model.EntityPerson, 2, model.SourceNamingPattern)

	b := New()
	ctx := b.Build(1, nil, dict, nil, testBudget())
	if !strings.Contains(ctx, "张三丰") || !strings.Contains(ctx, "二愣子") {
		t.Errorf("expected both dictionary entries in context for chapter 1, got: %s", ctx)
	}
	if !strings.Contains(ctx, "Named entities") {
		t.Error("expected naming-source entries visually emphasized")
	}
}

func TestBuild_SceneFocusPicksPrimarySetting(t *testing.T) {
	facts := []*model.ChapterFact{
		{Locations: []model.Location{
			{Name: "青云城", Role: model.RoleSetting},
			{Name: "客栈", Role: model.RoleReferenced},
		}},
	}
	b := New()
	ctx := b.Build(2, facts, nil, nil, testBudget())
	if !strings.Contains(ctx, "Primary setting: 青云城") {
		t.Errorf("expected primary setting 青云城, got: %s", ctx)
	}
}

func TestBuild_MacroHubRequiresThreeDescendants(t *testing.T) {
	world := model.NewWorldStructure("novel-1", model.GeoTypeFictional)
	world.UberRoot = "天下"
	world.Hierarchy["小镇"] = "大陆"
	world.Hierarchy["大陆"] = "天下"
	world.Hierarchy["村子"] = "大陆"
	world.Hierarchy["茅屋"] = "村子"
	world.Hierarchy["孤峰"] = "天下" // only 0 descendants, should not qualify

	budget := testBudget()
	b := New()
	ctx := b.Build(5, nil, nil, world, budget)
	if !strings.Contains(ctx, "大陆") {
		t.Errorf("expected macro hub 大陆 (3 descendants), got: %s", ctx)
	}
	if strings.Contains(ctx, "孤峰") {
		t.Errorf("expected 孤峰 excluded (fewer than 3 descendants), got: %s", ctx)
	}
}

func TestCapSection_PreservesMarkerAndTruncatesBody(t *testing.T) {
	s := "### Known Locations\n" + strings.Repeat("x", 100)
	out := capSection(s, 20)
	if !strings.HasPrefix(out, "### Known Locations\n") {
		t.Errorf("expected marker preserved, got: %s", out)
	}
	if len([]rune(out)) > 20 {
		t.Errorf("expected truncation to <= 20 runes, got %d", len([]rune(out)))
	}
}
