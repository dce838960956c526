package store

import (
	"database/sql"
	"fmt"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// SaveNovel inserts or updates a novel's top-level record.
func (s *Store) SaveNovel(n *model.Novel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO novels (id, title, genre, author, source, geo_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, genre=excluded.genre, author=excluded.author,
			source=excluded.source, geo_type=excluded.geo_type`,
		n.ID, n.Title, n.Genre, n.Author, n.Source, string(n.GeoType))
	if err != nil {
		return fmt.Errorf("save novel %s: %w", n.ID, err)
	}
	logging.Store("saved novel %s (%s)", n.ID, n.Title)
	return nil
}

// LoadNovel returns the novel record for id.
func (s *Store) LoadNovel(id string) (*model.Novel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n model.Novel
	var geoType string
	row := s.db.QueryRow(`SELECT id, title, genre, author, source, geo_type FROM novels WHERE id = ?`, id)
	if err := row.Scan(&n.ID, &n.Title, &n.Genre, &n.Author, &n.Source, &geoType); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("novel %s not found", id)
		}
		return nil, fmt.Errorf("load novel %s: %w", id, err)
	}
	n.GeoType = model.GeoType(geoType)
	return &n, nil
}

// ListNovels returns every novel record, ordered by id.
func (s *Store) ListNovels() ([]*model.Novel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, title, genre, author, source, geo_type FROM novels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list novels: %w", err)
	}
	defer rows.Close()

	var out []*model.Novel
	for rows.Next() {
		var n model.Novel
		var geoType string
		if err := rows.Scan(&n.ID, &n.Title, &n.Genre, &n.Author, &n.Source, &geoType); err != nil {
			return nil, fmt.Errorf("scan novel: %w", err)
		}
		n.GeoType = model.GeoType(geoType)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// SaveChapter inserts or updates one raw chapter.
func (s *Store) SaveChapter(ch *model.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO chapters (novel_id, number, title, text, analysis_error, error_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(novel_id, number) DO UPDATE SET
			title=excluded.title, text=excluded.text,
			analysis_error=excluded.analysis_error, error_type=excluded.error_type,
			updated_at=CURRENT_TIMESTAMP`,
		ch.NovelID, ch.Number, ch.Title, ch.Text, ch.AnalysisError, ch.ErrorType)
	if err != nil {
		return fmt.Errorf("save chapter %s/%d: %w", ch.NovelID, ch.Number, err)
	}
	return nil
}

// LoadChapters returns every chapter belonging to novelID, unordered (the
// caller sorts by Number — spec §4.7's orchestrator does this itself so the
// loop order is explicit at the call site).
func (s *Store) LoadChapters(novelID string) ([]model.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT novel_id, number, title, text, analysis_error, error_type FROM chapters WHERE novel_id = ?`, novelID)
	if err != nil {
		return nil, fmt.Errorf("load chapters for %s: %w", novelID, err)
	}
	defer rows.Close()

	var out []model.Chapter
	for rows.Next() {
		var ch model.Chapter
		if err := rows.Scan(&ch.NovelID, &ch.Number, &ch.Title, &ch.Text, &ch.AnalysisError, &ch.ErrorType); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
