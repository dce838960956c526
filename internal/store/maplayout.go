package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkforge/atlasforge/internal/model"
)

// SaveMapLayout persists the full 2D placement as a single JSON payload
// (map_user_overrides in spec §4.1's schema — named for the locked/derived
// constraint bookkeeping it carries, not just raw coordinates).
func (s *Store) SaveMapLayout(l *model.MapLayout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal map layout %s: %w", l.NovelID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO map_user_overrides (novel_id, payload) VALUES (?, ?)
		ON CONFLICT(novel_id) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`,
		l.NovelID, string(payload))
	if err != nil {
		return fmt.Errorf("save map layout %s: %w", l.NovelID, err)
	}
	return nil
}

// LoadMapLayout returns the persisted layout for novelID, or a fresh one
// (default canvas, no entries) if none exists yet.
func (s *Store) LoadMapLayout(novelID string) (*model.MapLayout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM map_user_overrides WHERE novel_id = ?`, novelID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return model.NewMapLayout(novelID), nil
		}
		return nil, fmt.Errorf("load map layout %s: %w", novelID, err)
	}

	var l model.MapLayout
	if err := json.Unmarshal([]byte(payload), &l); err != nil {
		return nil, fmt.Errorf("unmarshal map layout %s: %w", novelID, err)
	}
	return &l, nil
}
