package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// SaveChapterFact persists the full extracted fact as a JSON payload, mirroring
// the handful of fields (is_truncated/segment_count/elapsed_ms/error_type)
// into their own columns so the orchestrator's timing summary and the CLI's
// failure report can query them without decoding the payload.
func (s *Store) SaveChapterFact(fact *model.ChapterFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("marshal chapter fact %d: %w", fact.ChapterNum, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO chapter_facts (novel_id, chapter_num, payload, is_truncated, segment_count, elapsed_ms, error_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(novel_id, chapter_num) DO UPDATE SET
			payload=excluded.payload, is_truncated=excluded.is_truncated,
			segment_count=excluded.segment_count, elapsed_ms=excluded.elapsed_ms,
			error_type=excluded.error_type, updated_at=CURRENT_TIMESTAMP`,
		fact.NovelID, fact.ChapterNum, string(payload),
		fact.ExtractionMeta.IsTruncated, fact.ExtractionMeta.SegmentCount,
		fact.ExtractionMeta.ElapsedMS, fact.ErrorType)
	if err != nil {
		return fmt.Errorf("save chapter fact %s/%d: %w", fact.NovelID, fact.ChapterNum, err)
	}
	logging.StoreDebug("saved chapter fact %s/%d (%d bytes)", fact.NovelID, fact.ChapterNum, len(payload))
	return nil
}

// LoadChapterFact returns the decoded fact for one chapter, or nil if none
// has been extracted yet.
func (s *Store) LoadChapterFact(novelID string, chapterNum int) (*model.ChapterFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM chapter_facts WHERE novel_id = ? AND chapter_num = ?`, novelID, chapterNum)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load chapter fact %s/%d: %w", novelID, chapterNum, err)
	}

	var fact model.ChapterFact
	if err := json.Unmarshal([]byte(payload), &fact); err != nil {
		return nil, fmt.Errorf("unmarshal chapter fact %s/%d: %w", novelID, chapterNum, err)
	}
	return &fact, nil
}

// LoadAllChapterFacts returns every fact extracted for novelID so far,
// ordered by chapter number, for the Entity Aggregator (spec §4.9) to
// consume in a single pass.
func (s *Store) LoadAllChapterFacts(novelID string) ([]*model.ChapterFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload FROM chapter_facts WHERE novel_id = ? ORDER BY chapter_num`, novelID)
	if err != nil {
		return nil, fmt.Errorf("load chapter facts for %s: %w", novelID, err)
	}
	defer rows.Close()

	var out []*model.ChapterFact
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan chapter fact: %w", err)
		}
		var fact model.ChapterFact
		if err := json.Unmarshal([]byte(payload), &fact); err != nil {
			return nil, fmt.Errorf("unmarshal chapter fact: %w", err)
		}
		out = append(out, &fact)
	}
	return out, rows.Err()
}
