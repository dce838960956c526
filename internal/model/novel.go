package model

// Novel is the top-level persisted record spec §4.1's storage schema names
// ("novels"): one row per ingested work.
type Novel struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Genre   string  `json:"genre"`
	Author  string  `json:"author,omitempty"`
	Source  string  `json:"source,omitempty"` // path or URI the chapters were ingested from
	GeoType GeoType `json:"geo_type"`
}

// Chapter is one raw chapter's ingested text plus its analysis status. The
// chapter's extracted ChapterFact, if any, is stored separately keyed by
// (NovelID, Number) — spec's storage schema keeps "chapters" and
// "chapter_facts" as distinct tables so a chapter can exist (and be
// re-analyzed) independently of whether extraction has succeeded yet.
type Chapter struct {
	NovelID       string `json:"novel_id"`
	Number        int    `json:"number"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"text"`
	AnalysisError string `json:"analysis_error,omitempty"`
	ErrorType     string `json:"error_type,omitempty"`
}
