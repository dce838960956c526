package geo

import "testing"

type fakeGazetteer struct {
	byName map[string][]Place
}

func (f *fakeGazetteer) Lookup(name string) ([]Place, error) {
	return f.byName[name], nil
}

func TestDetectGeoScope_FantasyGenreShortCircuitsToNone(t *testing.T) {
	if got := DetectGeoScope("xianxia", []string{"青云城"}); got != ScopeNone {
		t.Errorf("expected ScopeNone for xianxia genre, got %s", got)
	}
}

func TestDetectGeoScope_HighCJKRatioPicksCN(t *testing.T) {
	if got := DetectGeoScope("wuxia", []string{"洛阳", "长安"}); got != ScopeCN {
		t.Errorf("expected ScopeCN for CJK-heavy names, got %s", got)
	}
}

func TestDetectGeoType_FantasyGenreShortCircuits(t *testing.T) {
	gz := &fakeGazetteer{byName: map[string][]Place{}}
	got := DetectGeoType(DetectContext{Gazetteer: gz, GenreHint: "fantasy", LocationNames: []string{"青云城"}})
	if got != "fictional" {
		t.Errorf("expected fictional, got %s", got)
	}
}

func TestDetectGeoType_HighNotableRatioIsRealistic(t *testing.T) {
	gz := &fakeGazetteer{byName: map[string][]Place{
		"洛阳": {{Name: "洛阳", Population: 6000000, AdminCode: "PPLA"}},
		"长安": {{Name: "长安", Population: 8000000, AdminCode: "PPLC"}},
	}}
	got := DetectGeoType(DetectContext{Gazetteer: gz, GenreHint: "historical", LocationNames: []string{"洛阳", "长安"}, IsHistorical: true})
	if got != "historical_cn" {
		t.Errorf("expected historical_cn, got %s", got)
	}
}

func TestDetectGeoType_LowNotableRatioIsFictional(t *testing.T) {
	gz := &fakeGazetteer{byName: map[string][]Place{}}
	got := DetectGeoType(DetectContext{Gazetteer: gz, GenreHint: "wuxia", LocationNames: []string{"青云城", "天剑峰", "无名村"}})
	if got != "fictional" {
		t.Errorf("expected fictional with no gazetteer matches, got %s", got)
	}
}

func TestResolver_SupplementTakesPriorityOverGazetteer(t *testing.T) {
	gz := &fakeGazetteer{byName: map[string][]Place{"洛阳": {{Name: "wrong", Population: 1}}}}
	r := NewResolver(gz)
	r.Supplement["洛阳"] = Place{Name: "洛阳", Population: 6000000}
	p, ok := r.Resolve("洛阳", 0, 0, false)
	if !ok || p.Population != 6000000 {
		t.Fatalf("expected supplement entry to win, got %+v ok=%v", p, ok)
	}
}

func TestResolver_SuffixStrippingRejectsDistantParent(t *testing.T) {
	gz := &fakeGazetteer{byName: map[string][]Place{
		"远方": {{Name: "远方", Lat: 50, Lng: 50, Population: 10000}},
	}}
	r := NewResolver(gz)
	_, ok := r.Resolve("远方城", 0, 0, true)
	if ok {
		t.Error("expected suffix-stripped match >1000km from parent to be rejected")
	}
}

func TestResolver_SuffixStrippingAcceptsNearbyParent(t *testing.T) {
	gz := &fakeGazetteer{byName: map[string][]Place{
		"近方": {{Name: "近方", Lat: 0.1, Lng: 0.1, Population: 10000}},
	}}
	r := NewResolver(gz)
	p, ok := r.Resolve("近方城", 0, 0, true)
	if !ok || p.Name != "近方" {
		t.Fatalf("expected nearby suffix-stripped match to be accepted, got %+v ok=%v", p, ok)
	}
}
