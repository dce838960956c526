// Package extract implements the Fact Extractor (spec §4.4): builds the
// per-chapter prompt, calls the LLM Gateway for structured JSON output,
// segments oversized chapters, and unions the resulting facts.
package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// systemPrompt is the fixed instruction prefix every extraction call carries.
const systemPrompt = `You are a structured-fact extractor for Chinese long-form fiction. Given a chapter's text, extract characters, locations, spatial relationships, character-to-character relationships, item events, organization events, generic events, and new concepts as JSON matching the provided schema. Only report what the chapter text actually states.`

// Extractor runs the Fact Extractor protocol over one chapter at a time.
type Extractor struct {
	gateway  llm.Gateway
	examples []string // few-shot examples, injected fewshot_example_count at a time
}

// New builds an Extractor against the given Gateway and a pool of few-shot
// examples (spec §4.4 step 2: "fewshot_example_count * examples").
func New(gateway llm.Gateway, examples []string) *Extractor {
	return &Extractor{gateway: gateway, examples: examples}
}

// Extract runs the full protocol (spec §4.4) for one chapter and returns the
// resulting ChapterFact plus its ExtractionMeta.
func (e *Extractor) Extract(ctx context.Context, novelID string, chapterNum int, chapterText, priorContext string, budget llm.Budget) (*model.ChapterFact, *model.Failure) {
	start := time.Now()
	meta := model.ExtractionMeta{}

	segments := e.segmentChapter(chapterText, budget, &meta)

	var facts []*model.ChapterFact
	for _, seg := range segments {
		fact, failure := e.extractOne(ctx, novelID, chapterNum, seg, priorContext, budget, budget.MaxChapterChars)
		if failure != nil {
			if failure.Kind == model.FailureParseError || failure.Kind == model.FailureTimeout {
				// Retry exactly once with the chapter re-truncated to retry_chars.
				retrySeg := truncate(seg, budget.RetryChars)
				fact, failure = e.extractOne(ctx, novelID, chapterNum, retrySeg, priorContext, budget, budget.RetryChars)
			}
			if failure != nil {
				// Only parse_error and timeout failures get the one retry
				// above; every other kind, content_policy included (spec
				// §4.4), is recorded unretried, so any failure here is terminal.
				meta.IsTruncated = len(chapterText) > budget.MaxChapterChars
				meta.SegmentCount = len(segments)
				meta.ErrorType = string(failure.Kind)
				meta.ElapsedMS = time.Since(start).Milliseconds()
				return &model.ChapterFact{
					NovelID:        novelID,
					ChapterNum:     chapterNum,
					ExtractionMeta: meta,
					AnalysisError:  failure.Err.Error(),
					ErrorType:      string(failure.Kind),
				}, failure
			}
		}
		facts = append(facts, fact)
	}

	union := unionFacts(novelID, chapterNum, facts)
	meta.IsTruncated = len(chapterText) > budget.MaxChapterChars
	meta.SegmentCount = len(segments)
	meta.ElapsedMS = time.Since(start).Milliseconds()
	union.ExtractionMeta = meta
	return union, nil
}

// segmentChapter is protocol step 1: truncate to max_chapter_chars; if
// truncated and segment_enabled, split at paragraph boundaries into segments
// of <= max_chapter_chars.
func (e *Extractor) segmentChapter(text string, budget llm.Budget, meta *model.ExtractionMeta) []string {
	if len(text) <= budget.MaxChapterChars {
		return []string{text}
	}
	if !budget.SegmentEnabled {
		return []string{truncate(text, budget.MaxChapterChars)}
	}

	paragraphs := strings.Split(text, "\n")
	var segments []string
	var cur strings.Builder
	for _, p := range paragraphs {
		if cur.Len()+len(p)+1 > budget.MaxChapterChars && cur.Len() > 0 {
			segments = append(segments, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		segments = append(segments, cur.String())
	}
	if len(segments) == 0 {
		segments = []string{truncate(text, budget.MaxChapterChars)}
	}
	return segments
}

func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// extractOne assembles the prompt and calls the LLM Gateway for a single
// (possibly segmented) chunk of chapter text.
func (e *Extractor) extractOne(ctx context.Context, novelID string, chapterNum int, chapterText, priorContext string, budget llm.Budget, charCap int) (*model.ChapterFact, *model.Failure) {
	var prompt strings.Builder
	for i := 0; i < budget.FewshotExampleCount && i < len(e.examples); i++ {
		prompt.WriteString(e.examples[i])
		prompt.WriteString("\n\n")
	}
	if priorContext != "" {
		prompt.WriteString(priorContext)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(truncate(chapterText, charCap))

	result, err := e.gateway.Call(ctx, llm.CallOptions{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt.String()},
		},
		MaxTokens:      budget.ExtractionNumCtx,
		ResponseFormat: llm.ResponseFormatJSONSchema,
		SchemaName:     "ChapterFact",
		Schema:         chapterFactSchema,
		NovelID:        novelID,
		Chapter:        chapterNum,
	})
	if err != nil {
		if failure, ok := err.(*model.Failure); ok {
			return nil, failure
		}
		return nil, model.NewFailure(model.FailureUnknown, novelID, chapterNum, err)
	}

	var fact model.ChapterFact
	if jsonErr := json.Unmarshal([]byte(result.Content), &fact); jsonErr != nil {
		logging.ExtractWarn("parse failure for novel %s chapter %d: %v", novelID, chapterNum, jsonErr)
		return nil, model.NewFailure(model.FailureParseError, novelID, chapterNum, jsonErr)
	}
	fact.NovelID = novelID
	fact.ChapterNum = chapterNum
	for i := range fact.CharacterRelationships {
		fact.CharacterRelationships[i].Chapter = chapterNum
	}
	return &fact, nil
}

// unionFacts concatenates segment results and deduplicates: entities by
// (name, chapter_num), spatial relationships by (source, target, relation_type)
// (spec §4.4 step 1).
func unionFacts(novelID string, chapterNum int, facts []*model.ChapterFact) *model.ChapterFact {
	union := &model.ChapterFact{NovelID: novelID, ChapterNum: chapterNum}
	seenChar := make(map[string]bool)
	seenLoc := make(map[string]bool)
	seenRel := make(map[string]bool)
	seenCharRel := make(map[string]bool)
	seenEvent := func(seen map[string]bool, name string) bool {
		if seen[name] {
			return true
		}
		seen[name] = true
		return false
	}
	seenItem := make(map[string]bool)
	seenOrg := make(map[string]bool)
	seenGeneric := make(map[string]bool)
	seenConcept := make(map[string]bool)

	for _, f := range facts {
		if f == nil {
			continue
		}
		for _, c := range f.Characters {
			if !seenEvent(seenChar, c.Name) {
				union.Characters = append(union.Characters, c)
			}
		}
		for _, l := range f.Locations {
			if !seenEvent(seenLoc, l.Name) {
				union.Locations = append(union.Locations, l)
			}
		}
		for _, r := range f.SpatialRelationships {
			key := r.Source + "|" + r.Target + "|" + string(r.RelationType)
			if !seenEvent(seenRel, key) {
				union.SpatialRelationships = append(union.SpatialRelationships, r)
			}
		}
		for _, r := range f.CharacterRelationships {
			key := r.Source + "|" + r.Target + "|" + r.RelationType
			if !seenEvent(seenCharRel, key) {
				union.CharacterRelationships = append(union.CharacterRelationships, r)
			}
		}
		for _, ev := range f.ItemEvents {
			if !seenEvent(seenItem, ev.Name) {
				union.ItemEvents = append(union.ItemEvents, ev)
			}
		}
		for _, ev := range f.OrgEvents {
			if !seenEvent(seenOrg, ev.Name) {
				union.OrgEvents = append(union.OrgEvents, ev)
			}
		}
		for _, ev := range f.Events {
			if !seenEvent(seenGeneric, ev.Name) {
				union.Events = append(union.Events, ev)
			}
		}
		for _, ev := range f.NewConcepts {
			if !seenEvent(seenConcept, ev.Name) {
				union.NewConcepts = append(union.NewConcepts, ev)
			}
		}
	}
	return union
}
