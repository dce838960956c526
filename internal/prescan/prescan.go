// Package prescan implements the Entity Pre-Scanner (spec §4.3): it mines an
// EntityDictionary from the full novel text before per-chapter analysis
// starts, so the Context Summary Builder and Fact Validator have a candidate
// name list to work against from chapter 1 onward.
package prescan

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/segment"
)

// topCandidateCut bounds how many stats/suffix-sourced candidates survive to
// LLM classification; naming-source candidates bypass this cut entirely
// (spec §4.3 step 4).
const topCandidateCut = 500

// classificationBatchSize is "one batch call per ~100 candidates" (spec §4.3
// step 6).
const classificationBatchSize = 100

// placeOrgSuffixes are the suffix patterns step 3 mines for: tokens ending in
// a recognizable place/org suffix become candidates even without frequency
// support. A subset of suffixtier's table plus common org suffixes.
var placeOrgSuffixes = []string{
	"城", "国", "谷", "殿", "洞", "村", "镇", "寨", "庄", "州", "府",
	"门", "帮", "派", "宗", "教", "盟", "会", "阁", "堂",
}

// namingPatternRe captures the phrase after a naming-source marker up to the
// next punctuation (spec §4.3 step 4): {叫作, 名叫, 绰号, 人称, 号曰, 自称}.
var namingPatternRe = regexp.MustCompile(`(?:叫作|名叫|绰号|人称|号曰|自称)([^，。！？,.!?\s]{1,8})`)

// Scanner runs the Entity Pre-Scanner algorithm.
type Scanner struct {
	segmenter segment.TextSegmenter
	gateway   llm.Gateway
}

// New builds a Scanner over the given TextSegmenter and LLM Gateway.
func New(segmenter segment.TextSegmenter, gateway llm.Gateway) *Scanner {
	return &Scanner{segmenter: segmenter, gateway: gateway}
}

// candidate is one pre-classification entry accumulated across steps 1-5.
type candidate struct {
	name    string
	freq    int
	source  model.DictSource
	aliases map[string]struct{}
}

// Scan runs the full Pre-Scanner algorithm over the concatenated chapter
// texts and returns the resulting EntityDictionary.
func (s *Scanner) Scan(ctx context.Context, novelID string, chapterTexts []string) (*model.EntityDictionary, error) {
	full := strings.Join(chapterTexts, "\n")

	freq := s.tokenizeAndCount(full)
	s.harvestSuffixCandidates(full, freq)
	namingSources := s.harvestNamingSources(full)
	s.mergeShortLongForms(freq, namingSources)

	candidates := make([]*candidate, 0, len(freq))
	for name, c := range freq {
		if _, isNaming := namingSources[name]; isNaming {
			continue // classified separately, bypasses the cut
		}
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].freq > candidates[j].freq })
	if len(candidates) > topCandidateCut {
		candidates = candidates[:topCandidateCut]
	}

	var namingCandidates []*candidate
	for _, c := range namingSources {
		namingCandidates = append(namingCandidates, c)
	}
	sort.Slice(namingCandidates, func(i, j int) bool { return namingCandidates[i].name < namingCandidates[j].name })

	all := append(namingCandidates, candidates...)

	dict := model.NewEntityDictionary(novelID)
	classified, err := s.classifyBatches(ctx, novelID, all)
	if err != nil {
		logging.PrescanWarn("classification failed for novel %s: %v", novelID, err)
	}
	for _, c := range all {
		typ, ok := classified[c.name]
		if !ok {
			continue // invalid/unclassified categories are rejected (spec §4.3 step 6)
		}
		aliases := make([]string, 0, len(c.aliases))
		for a := range c.aliases {
			aliases = append(aliases, a)
		}
		dict.Upsert(c.name, typ, c.freq, c.source, aliases...)
	}
	return dict, nil
}

// tokenizeAndCount is step 1: segmentation + frequency, with POS recovery.
func (s *Scanner) tokenizeAndCount(text string) map[string]*candidate {
	tokens := s.segmenter.Segment(text, "zh")
	freq := make(map[string]*candidate)
	for _, tok := range tokens {
		runes := []rune(tok.Text)
		if len(runes) < 2 {
			continue
		}
		if tok.POS != segment.POSNoun {
			if !segment.IsChineseNumeralPrefixed(runes[0]) {
				continue
			}
		}
		c, ok := freq[tok.Text]
		if !ok {
			c = &candidate{name: tok.Text, source: model.SourceStats, aliases: make(map[string]struct{})}
			freq[tok.Text] = c
		}
		c.freq++
	}
	return freq
}

// harvestSuffixCandidates is step 3: tokens ending in a place/org suffix gain
// candidate status (and a frequency bump) even if not already present.
func (s *Scanner) harvestSuffixCandidates(text string, freq map[string]*candidate) {
	tokens := s.segmenter.Segment(text, "zh")
	for _, tok := range tokens {
		runes := []rune(tok.Text)
		if len(runes) < 2 {
			continue
		}
		for _, suffix := range placeOrgSuffixes {
			if strings.HasSuffix(tok.Text, suffix) {
				c, ok := freq[tok.Text]
				if !ok {
					c = &candidate{name: tok.Text, source: model.SourceStats, aliases: make(map[string]struct{})}
					freq[tok.Text] = c
				}
				c.freq++
				break
			}
		}
	}
}

// harvestNamingSources is step 4: regex naming-pattern extraction over the
// original text. These bypass the top-N candidate cut.
func (s *Scanner) harvestNamingSources(text string) map[string]*candidate {
	out := make(map[string]*candidate)
	for _, m := range namingPatternRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		c, ok := out[name]
		if !ok {
			c = &candidate{name: name, source: model.SourceNamingPattern, aliases: make(map[string]struct{})}
			out[name] = c
		}
		c.freq++
	}
	return out
}

// mergeShortLongForms is step 5: if a short form and a long form sharing the
// same suffix are both present, delete the short form and transfer its
// frequency to the long form. Naming-source names survive unconditionally.
func (s *Scanner) mergeShortLongForms(freq map[string]*candidate, namingSources map[string]*candidate) {
	for shortName, shortCand := range freq {
		shortRunes := []rune(shortName)
		if len(shortRunes) < 2 {
			continue
		}
		if _, isNaming := namingSources[shortName]; isNaming {
			continue
		}
		for longName, longCand := range freq {
			if longName == shortName {
				continue
			}
			longRunes := []rune(longName)
			if len(longRunes) <= len(shortRunes) {
				continue
			}
			if string(longRunes[len(longRunes)-len(shortRunes):]) != shortName {
				continue
			}
			longCand.freq += shortCand.freq
			delete(freq, shortName)
		}
	}
}

// classificationResult is the LLM batch-classification response shape.
type classificationResult struct {
	Classifications []struct {
		Name     string   `json:"name"`
		Category string   `json:"category"`
		Aliases  []string `json:"aliases,omitempty"`
	} `json:"classifications"`
}

var validCategories = map[string]model.EntityType{
	"person": model.EntityPerson, "location": model.EntityLoc,
	"item": model.EntityItem, "org": model.EntityOrg, "concept": model.EntityConcept,
}

// classifyBatches is step 6: one batch LLM call per ~100 candidates.
func (s *Scanner) classifyBatches(ctx context.Context, novelID string, candidates []*candidate) (map[string]model.EntityType, error) {
	out := make(map[string]model.EntityType)
	if s.gateway == nil {
		return out, nil
	}
	for start := 0; start < len(candidates); start += classificationBatchSize {
		end := start + classificationBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		names := make([]string, 0, len(batch))
		for _, c := range batch {
			names = append(names, c.name)
		}
		prompt := fmt.Sprintf("Classify each candidate name into one of {person, location, item, org, concept}, with optional alias suggestions. Candidates: %s", strings.Join(names, ", "))

		result, err := s.gateway.Call(ctx, llm.CallOptions{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "You classify Chinese novel entity candidates into categories."},
				{Role: llm.RoleUser, Content: prompt},
			},
			ResponseFormat: llm.ResponseFormatJSONSchema,
			SchemaName:     "EntityClassification",
			Schema:         classificationSchema,
			NovelID:        novelID,
		})
		if err != nil {
			return out, fmt.Errorf("classify batch %d: %w", start/classificationBatchSize, err)
		}

		var parsed classificationResult
		if err := json.Unmarshal([]byte(result.Content), &parsed); err != nil {
			logging.PrescanWarn("malformed classification response for novel %s: %v", novelID, err)
			continue
		}
		for _, c := range parsed.Classifications {
			typ, ok := validCategories[c.Category]
			if !ok {
				continue // invalid categories rejected
			}
			out[c.Name] = typ
		}
	}
	return out, nil
}

var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"classifications": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"category": map[string]any{"type": "string", "enum": []string{"person", "location", "item", "org", "concept"}},
					"aliases":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"name", "category"},
			},
		},
	},
	"required": []string{"classifications"},
}
