package suffixtier

import "testing"

func TestRankOf_LargerScaleHasLowerRank(t *testing.T) {
	realmRank, ok := RankOf("九天界")
	if !ok {
		t.Fatal("expected a match for 九天界")
	}
	cityRank, ok := RankOf("青石城")
	if !ok {
		t.Fatal("expected a match for 青石城")
	}
	if !(realmRank < cityRank) {
		t.Errorf("realm rank %d should be lower (larger scale) than city rank %d", realmRank, cityRank)
	}
}

func TestRankOf_PrefersLongestSuffix(t *testing.T) {
	rank, ok := RankOf("渔村码头")
	if !ok {
		t.Fatal("expected a match")
	}
	wantRank, _ := RankOf("码头")
	if rank != wantRank {
		t.Errorf("rank = %d, want longest-suffix match rank %d", rank, wantRank)
	}
}

func TestRankOf_NoMatch(t *testing.T) {
	if _, ok := RankOf("张三"); ok {
		t.Error("expected no suffix match for a person name")
	}
}

func TestIsMicro(t *testing.T) {
	if !IsMicro("石板桥") {
		t.Error("expected 石板桥 to be classified micro")
	}
	if IsMicro("九天界") {
		t.Error("expected 九天界 to not be classified micro")
	}
}

func TestIsSiblingCandidateSuffix(t *testing.T) {
	if !IsSiblingCandidateSuffix("青石城") {
		t.Error("expected 青石城 to be a sibling-candidate suffix")
	}
	if IsSiblingCandidateSuffix("张三") {
		t.Error("expected 张三 to not be a sibling-candidate suffix")
	}
}
