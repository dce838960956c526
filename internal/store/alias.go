package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkforge/atlasforge/internal/model"
)

// SaveAliasMap persists the whole alias map as a single JSON payload,
// replacing whatever was there before — build_alias_map always rebuilds
// from the dictionary and the full chapter-fact run (spec §4.6), never
// patches incrementally, the same storage shape as entity_dictionary.
func (s *Store) SaveAliasMap(novelID string, m model.AliasMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal alias map %s: %w", novelID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO alias_maps (novel_id, payload) VALUES (?, ?)
		ON CONFLICT(novel_id) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`,
		novelID, string(payload))
	if err != nil {
		return fmt.Errorf("save alias map %s: %w", novelID, err)
	}
	return nil
}

// LoadAliasMap returns the persisted alias map for novelID, or an empty one
// if build_alias_map has never run.
func (s *Store) LoadAliasMap(novelID string) (model.AliasMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM alias_maps WHERE novel_id = ?`, novelID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return model.AliasMap{}, nil
		}
		return nil, fmt.Errorf("load alias map %s: %w", novelID, err)
	}

	m := make(model.AliasMap)
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("unmarshal alias map %s: %w", novelID, err)
	}
	return m, nil
}
