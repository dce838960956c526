package store

import "fmt"

// BenchmarkRecord is one Gateway call's latency/cost sample, collected by the
// CLI's benchmark subcommand to compare providers/models against each other.
type BenchmarkRecord struct {
	Provider     string
	Model        string
	NovelID      string
	ChapterNum   int
	ElapsedMS    int64
	InputTokens  int
	OutputTokens int
	Success      bool
	ErrorType    string
}

// SaveBenchmarkRecord appends one sample; benchmark history is never updated
// in place, only accumulated.
func (s *Store) SaveBenchmarkRecord(r *BenchmarkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO benchmark_records
			(provider, model, novel_id, chapter_num, elapsed_ms, input_tokens, output_tokens, success, error_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Provider, r.Model, r.NovelID, r.ChapterNum, r.ElapsedMS,
		r.InputTokens, r.OutputTokens, r.Success, r.ErrorType)
	if err != nil {
		return fmt.Errorf("save benchmark record: %w", err)
	}
	return nil
}

// LoadBenchmarkRecords returns every sample recorded for (provider, model),
// oldest first.
func (s *Store) LoadBenchmarkRecords(provider, model string) ([]*BenchmarkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT provider, model, novel_id, chapter_num, elapsed_ms, input_tokens, output_tokens, success, error_type
		FROM benchmark_records WHERE provider = ? AND model = ? ORDER BY id`, provider, model)
	if err != nil {
		return nil, fmt.Errorf("load benchmark records: %w", err)
	}
	defer rows.Close()

	var out []*BenchmarkRecord
	for rows.Next() {
		r := &BenchmarkRecord{}
		if err := rows.Scan(&r.Provider, &r.Model, &r.NovelID, &r.ChapterNum, &r.ElapsedMS,
			&r.InputTokens, &r.OutputTokens, &r.Success, &r.ErrorType); err != nil {
			return nil, fmt.Errorf("scan benchmark record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
