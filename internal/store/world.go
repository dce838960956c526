package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/world"
)

// SaveWorld persists the full WorldStructure as a single JSON payload. The
// hierarchy, vote tallies, tiers, and layers are all consumed together by
// the World Structure Agent and the Map Layout Engine, so splitting them
// across rows would only buy back queryability no caller needs.
//
// Before marshaling, world.BreakCycles runs the third of spec §4.10's three
// stacked cycle-defense layers (the first runs inside ResolveParents, the
// second in consolidate.go's step 0): a caller like cmd_hierarchy.go's
// `hierarchy apply` can write a user-selected Child->NewParent edge straight
// into w.Hierarchy with no acyclicity check of its own, so this is the last
// point before the edge becomes durable where a cycle can still be caught
// and broken.
func (s *Store) SaveWorld(w *model.WorldStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	world.BreakCycles(w)

	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal world %s: %w", w.NovelID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO world_structures (novel_id, payload) VALUES (?, ?)
		ON CONFLICT(novel_id) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`,
		w.NovelID, string(payload))
	if err != nil {
		return fmt.Errorf("save world %s: %w", w.NovelID, err)
	}
	return nil
}

// LoadWorld returns the persisted WorldStructure for novelID, or a fresh
// empty one (GeoType fictional) if none exists yet.
func (s *Store) LoadWorld(novelID string) (*model.WorldStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM world_structures WHERE novel_id = ?`, novelID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return model.NewWorldStructure(novelID, model.GeoTypeFictional), nil
		}
		return nil, fmt.Errorf("load world %s: %w", novelID, err)
	}

	var w model.WorldStructure
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, fmt.Errorf("unmarshal world %s: %w", novelID, err)
	}
	return &w, nil
}

// SaveWorldOverride upserts one manual correction, keyed by its
// (OverrideType, OverrideKey) pair, so a later hierarchy rebuild can replay
// overrides individually (spec §4.11).
func (s *Store) SaveWorldOverride(o *model.WorldStructureOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO world_structure_overrides (novel_id, override_type, override_key, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(novel_id, override_type, override_key) DO UPDATE SET
			value=excluded.value, updated_at=CURRENT_TIMESTAMP`,
		o.NovelID, string(o.OverrideType), o.OverrideKey, o.Value)
	if err != nil {
		return fmt.Errorf("save world override %s/%s/%s: %w", o.NovelID, o.OverrideType, o.OverrideKey, err)
	}
	return nil
}

// LoadWorldOverrides returns every manual correction recorded for novelID.
func (s *Store) LoadWorldOverrides(novelID string) ([]*model.WorldStructureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT novel_id, override_type, override_key, value FROM world_structure_overrides WHERE novel_id = ?`, novelID)
	if err != nil {
		return nil, fmt.Errorf("load world overrides for %s: %w", novelID, err)
	}
	defer rows.Close()

	var out []*model.WorldStructureOverride
	for rows.Next() {
		var o model.WorldStructureOverride
		var typ string
		if err := rows.Scan(&o.NovelID, &typ, &o.OverrideKey, &o.Value); err != nil {
			return nil, fmt.Errorf("scan world override: %w", err)
		}
		o.OverrideType = model.OverrideType(typ)
		out = append(out, &o)
	}
	return out, rows.Err()
}

// DeleteWorldOverride removes one manual correction, e.g. when a rebuild's
// diff resolves it back to the agent-derived value.
func (s *Store) DeleteWorldOverride(novelID string, overrideType model.OverrideType, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM world_structure_overrides WHERE novel_id = ? AND override_type = ? AND override_key = ?`,
		novelID, string(overrideType), key)
	if err != nil {
		return fmt.Errorf("delete world override %s/%s/%s: %w", novelID, overrideType, key, err)
	}
	return nil
}
