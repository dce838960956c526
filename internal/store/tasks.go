package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkforge/atlasforge/internal/model"
)

// SaveTask upserts an AnalysisTask, keeping the state column in sync with
// the payload so LoadRunningTasks can filter in SQL rather than decoding
// every row.
func (s *Store) SaveTask(task *model.AnalysisTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO analysis_tasks (id, novel_id, state, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			novel_id=excluded.novel_id, state=excluded.state, payload=excluded.payload,
			updated_at=CURRENT_TIMESTAMP`,
		task.ID, task.NovelID, string(task.State), string(payload))
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// LoadTask returns a single task by id.
func (s *Store) LoadTask(id string) (*model.AnalysisTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM analysis_tasks WHERE id = ?`, id)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %s not found", id)
		}
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	var task model.AnalysisTask
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

// LoadRunningTasks returns every task still marked running, the set
// RecoverStaleTasks resets to paused on startup (spec §4.7).
func (s *Store) LoadRunningTasks() ([]*model.AnalysisTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload FROM analysis_tasks WHERE state = ?`, string(model.TaskRunning))
	if err != nil {
		return nil, fmt.Errorf("load running tasks: %w", err)
	}
	defer rows.Close()

	var out []*model.AnalysisTask
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var task model.AnalysisTask
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		out = append(out, &task)
	}
	return out, rows.Err()
}

// LoadTasksForNovel returns every task recorded against novelID, most recent
// first, for the CLI's history view.
func (s *Store) LoadTasksForNovel(novelID string) ([]*model.AnalysisTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload FROM analysis_tasks WHERE novel_id = ? ORDER BY updated_at DESC`, novelID)
	if err != nil {
		return nil, fmt.Errorf("load tasks for %s: %w", novelID, err)
	}
	defer rows.Close()

	var out []*model.AnalysisTask
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var task model.AnalysisTask
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		out = append(out, &task)
	}
	return out, rows.Err()
}
