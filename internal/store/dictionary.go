package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkforge/atlasforge/internal/model"
)

// dictEntryWire is the JSON-friendly shape of model.DictEntry: Aliases is a
// set (map[string]struct{}) in memory, which encoding/json cannot round-trip
// directly, so it is flattened to a slice on the wire.
type dictEntryWire struct {
	Name      string            `json:"name"`
	Type      model.EntityType  `json:"type"`
	Aliases   []string          `json:"aliases"`
	Frequency int               `json:"frequency"`
	Source    model.DictSource  `json:"source"`
}

type dictionaryWire struct {
	NovelID string                    `json:"novel_id"`
	Entries map[string]dictEntryWire `json:"entries"`
}

func toDictionaryWire(d *model.EntityDictionary) dictionaryWire {
	w := dictionaryWire{NovelID: d.NovelID, Entries: make(map[string]dictEntryWire, len(d.Entries))}
	for name, e := range d.Entries {
		aliases := make([]string, 0, len(e.Aliases))
		for a := range e.Aliases {
			aliases = append(aliases, a)
		}
		w.Entries[name] = dictEntryWire{
			Name: e.Name, Type: e.Type, Aliases: aliases,
			Frequency: e.Frequency, Source: e.Source,
		}
	}
	return w
}

func fromDictionaryWire(w dictionaryWire) *model.EntityDictionary {
	d := model.NewEntityDictionary(w.NovelID)
	for name, e := range w.Entries {
		aliases := make(map[string]struct{}, len(e.Aliases))
		for _, a := range e.Aliases {
			aliases[a] = struct{}{}
		}
		d.Entries[name] = &model.DictEntry{
			Name: e.Name, Type: e.Type, Aliases: aliases,
			Frequency: e.Frequency, Source: e.Source,
		}
	}
	return d
}

// SaveDictionary persists the whole dictionary as a single JSON payload,
// replacing whatever was there before (spec §4.5: rebuilt wholesale, never
// patched incrementally).
func (s *Store) SaveDictionary(d *model.EntityDictionary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(toDictionaryWire(d))
	if err != nil {
		return fmt.Errorf("marshal dictionary %s: %w", d.NovelID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO entity_dictionary (novel_id, payload) VALUES (?, ?)
		ON CONFLICT(novel_id) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`,
		d.NovelID, string(payload))
	if err != nil {
		return fmt.Errorf("save dictionary %s: %w", d.NovelID, err)
	}
	return nil
}

// LoadDictionary returns the persisted dictionary for novelID, or a fresh
// empty one if none has been built yet.
func (s *Store) LoadDictionary(novelID string) (*model.EntityDictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM entity_dictionary WHERE novel_id = ?`, novelID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return model.NewEntityDictionary(novelID), nil
		}
		return nil, fmt.Errorf("load dictionary %s: %w", novelID, err)
	}

	var w dictionaryWire
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, fmt.Errorf("unmarshal dictionary %s: %w", novelID, err)
	}
	return fromDictionaryWire(w), nil
}
