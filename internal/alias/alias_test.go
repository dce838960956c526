package alias

import (
	"testing"

	"github.com/inkforge/atlasforge/internal/model"
)

func TestSafetyLevelOf(t *testing.T) {
	cases := []struct {
		name string
		want SafetyLevel
	}{
		{"大哥", SafetyHardBlock},
		{"王大哥", SafetyHardBlock},
		{"张三的剑", SafetyHardBlock},
		{"老人", SafetySoftBlock},
		{"堂主", SafetySoftBlock},
		{"众生", SafetySoftBlock},
		{"张三丰", SafetySafe},
	}
	for _, c := range cases {
		if got := SafetyLevelOf(c.name); got != c.want {
			t.Errorf("SafetyLevelOf(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestBuild_UnionsSafeAliases(t *testing.T) {
	facts := []*model.ChapterFact{
		{Characters: []model.Character{
			{Name: "李寻欢", Aliases: []string{"探花郎"}},
			{Name: "探花郎"},
		}},
	}
	aliasMap := Build(nil, facts)
	if aliasMap.Canonical("探花郎") != aliasMap.Canonical("李寻欢") {
		t.Errorf("expected 探花郎 and 李寻欢 to resolve to the same canonical name, got %q and %q",
			aliasMap.Canonical("探花郎"), aliasMap.Canonical("李寻欢"))
	}
}

func TestBuild_HardBlockedPrimaryNotRegisteredButAliasesUnioned(t *testing.T) {
	facts := []*model.ChapterFact{
		{Characters: []model.Character{
			{Name: "王大哥", Aliases: []string{"阿强", "强子"}},
		}},
	}
	aliasMap := Build(nil, facts)
	if _, ok := aliasMap["王大哥"]; ok {
		t.Error("expected hard-blocked primary 王大哥 to not be registered as a node")
	}
	if aliasMap.Canonical("阿强") != aliasMap.Canonical("强子") {
		t.Errorf("expected 阿强 and 强子 unioned via passthrough, got %q and %q",
			aliasMap.Canonical("阿强"), aliasMap.Canonical("强子"))
	}
}

func TestPickCanonical_PrefersShortestAboveFrequencyThreshold(t *testing.T) {
	freq := map[string]int{"张三丰": 100, "张真人": 10, "三丰道长": 2}
	got := pickCanonical([]string{"张三丰", "张真人", "三丰道长"}, freq)
	if got != "张三丰" {
		t.Errorf("pickCanonical = %q, want 张三丰 (below-threshold members excluded, shortest wins)", got)
	}
}

func TestAliasMap_IsIdempotent(t *testing.T) {
	facts := []*model.ChapterFact{
		{Characters: []model.Character{
			{Name: "李寻欢", Aliases: []string{"探花郎"}},
		}},
	}
	aliasMap := Build(nil, facts)
	if !aliasMap.IsIdempotent() {
		t.Error("expected AliasMap to be idempotent")
	}
}
