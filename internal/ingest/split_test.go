package ingest

import "testing"

func TestParseChapters_ArabicHeadings(t *testing.T) {
	raw := "第1章 初入江湖\n正文内容一。\n\n第2章 风起云涌\n正文内容二。\n"
	chapters := ParseChapters(raw)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Number != 1 || chapters[0].Title != "初入江湖" {
		t.Errorf("unexpected first chapter: %+v", chapters[0])
	}
	if chapters[1].Number != 2 || chapters[1].Title != "风起云涌" {
		t.Errorf("unexpected second chapter: %+v", chapters[1])
	}
}

func TestParseChapters_ChineseNumeralHeadings(t *testing.T) {
	raw := "第十二章 夜探古墓\n内容。\n\n第二十三章 危机四伏\n更多内容。\n"
	chapters := ParseChapters(raw)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Number != 12 {
		t.Errorf("expected chapter 12, got %d", chapters[0].Number)
	}
	if chapters[1].Number != 23 {
		t.Errorf("expected chapter 23, got %d", chapters[1].Number)
	}
}

func TestParseChapters_EnglishHeadings(t *testing.T) {
	raw := "Chapter 1: The Beginning\nSome text.\n\nChapter 2: The Middle\nMore text.\n"
	chapters := ParseChapters(raw)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Number != 1 || chapters[0].Title != "The Beginning" {
		t.Errorf("unexpected first chapter: %+v", chapters[0])
	}
}

func TestParseChapters_NoHeadingsFallsBackToSingleChapter(t *testing.T) {
	raw := "just some prose with no chapter markers at all."
	chapters := ParseChapters(raw)
	if len(chapters) != 1 {
		t.Fatalf("expected 1 fallback chapter, got %d", len(chapters))
	}
	if chapters[0].Number != 1 {
		t.Errorf("expected fallback chapter numbered 1, got %d", chapters[0].Number)
	}
}

func TestParseChapters_EmptyInput(t *testing.T) {
	if chapters := ParseChapters("   \n\n  "); chapters != nil {
		t.Errorf("expected nil for blank input, got %+v", chapters)
	}
}

func TestParseCNNumeral(t *testing.T) {
	cases := map[string]int{
		"一":   1,
		"十":   10,
		"十二":  12,
		"二十":  20,
		"二十三": 23,
		"一百":  100,
		"一百零五": 105,
	}
	for input, want := range cases {
		got, ok := parseCNNumeral(input)
		if !ok {
			t.Errorf("parseCNNumeral(%q) failed to parse", input)
			continue
		}
		if got != want {
			t.Errorf("parseCNNumeral(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestValidate_RejectsEmpty(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for empty chapter list")
	}
}

func TestValidate_RejectsDuplicateNumbers(t *testing.T) {
	chapters := []RawChapter{{Number: 1, Text: "a"}, {Number: 1, Text: "b"}}
	if err := Validate(chapters); err == nil {
		t.Error("expected error for duplicate chapter numbers")
	}
}

func TestValidate_AcceptsWellFormed(t *testing.T) {
	chapters := []RawChapter{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}}
	if err := Validate(chapters); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
