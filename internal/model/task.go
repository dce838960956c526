package model

import "time"

// TaskState is the Analysis Orchestrator's task state machine (spec §4.7).
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskPaused    TaskState = "paused"
	TaskCompleted TaskState = "completed"
	TaskCancelled TaskState = "cancelled"
)

// validTransitions enumerates every allowed TaskState move. A transition not
// present here is rejected by Task.Transition.
var validTransitions = map[TaskState][]TaskState{
	TaskPending:   {TaskRunning, TaskCancelled},
	TaskRunning:   {TaskPaused, TaskCompleted, TaskCancelled},
	TaskPaused:    {TaskRunning, TaskCancelled},
	TaskCompleted: {},
	TaskCancelled: {},
}

// TimingSummary is the live ETA bookkeeping surfaced to the CLI progress view.
type TimingSummary struct {
	StartedAt         time.Time     `json:"started_at"`
	ChaptersTotal     int           `json:"chapters_total"`
	ChaptersDone      int           `json:"chapters_done"`
	ChaptersFailed    int           `json:"chapters_failed"`
	AvgChapterElapsed time.Duration `json:"avg_chapter_elapsed"`
	ETA               time.Duration `json:"eta"`
}

// Update folds in the elapsed time for one completed chapter and recomputes
// the moving average and ETA for the chapters still pending.
func (t *TimingSummary) Update(elapsed time.Duration, failed bool) {
	t.ChaptersDone++
	if failed {
		t.ChaptersFailed++
	}
	if t.AvgChapterElapsed == 0 {
		t.AvgChapterElapsed = elapsed
	} else {
		t.AvgChapterElapsed = (t.AvgChapterElapsed*time.Duration(t.ChaptersDone-1) + elapsed) / time.Duration(t.ChaptersDone)
	}
	remaining := t.ChaptersTotal - t.ChaptersDone
	if remaining < 0 {
		remaining = 0
	}
	t.ETA = t.AvgChapterElapsed * time.Duration(remaining)
}

// AnalysisTask tracks one novel's end-to-end extraction run.
type AnalysisTask struct {
	ID              string        `json:"id"`
	NovelID         string        `json:"novel_id"`
	State           TaskState     `json:"state"`
	CurrentChapter  int           `json:"current_chapter"`
	FailedChapters  []int         `json:"failed_chapters"`
	RetriedOnce     map[int]bool  `json:"retried_once"`
	Timing          TimingSummary `json:"timing"`
}

// Transition moves the task to next if the move is legal, otherwise reports false.
func (t *AnalysisTask) Transition(next TaskState) bool {
	for _, allowed := range validTransitions[t.State] {
		if allowed == next {
			t.State = next
			return true
		}
	}
	return false
}

// MarkChapterFailed records a chapter failure, returning whether this is the
// chapter's first failure (retry eligible) or second (skip, per spec §4.7:
// retry failed chapters once, skipping content_policy failures).
func (t *AnalysisTask) MarkChapterFailed(chapter int) (firstFailure bool) {
	if t.RetriedOnce == nil {
		t.RetriedOnce = make(map[int]bool)
	}
	if t.RetriedOnce[chapter] {
		t.FailedChapters = append(t.FailedChapters, chapter)
		return false
	}
	t.RetriedOnce[chapter] = true
	return true
}
