package segment

import "testing"

func TestSegment_SplitsHanRuns(t *testing.T) {
	s := New()
	tokens := s.Segment("他说道张三在城里", "zh")
	if len(tokens) == 0 {
		t.Fatal("expected tokens")
	}
	found := false
	for _, tok := range tokens {
		if tok.Text == "说道" && tok.POS == POSVerb {
			found = true
		}
	}
	if !found {
		t.Error("expected 说道 tagged as verb")
	}
}

func TestSegment_UnsupportedLanguageReturnsNil(t *testing.T) {
	s := New()
	if tokens := s.Segment("hello", "en"); tokens != nil {
		t.Errorf("expected nil for unsupported language, got %v", tokens)
	}
}

func TestIsChineseNumeralPrefixed(t *testing.T) {
	if !IsChineseNumeralPrefixed('二') {
		t.Error("expected 二 to be recognized as a Chinese numeral")
	}
	if IsChineseNumeralPrefixed('张') {
		t.Error("expected 张 to not be recognized as a Chinese numeral")
	}
}

func TestIsDialogueVerb(t *testing.T) {
	if !IsDialogueVerb("说道") {
		t.Error("expected 说道 to be a dialogue verb")
	}
	if IsDialogueVerb("吃饭") {
		t.Error("expected 吃饭 to not be a dialogue verb")
	}
}
