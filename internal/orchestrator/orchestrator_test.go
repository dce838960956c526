package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/inkforge/atlasforge/internal/config"
	"github.com/inkforge/atlasforge/internal/extract"
	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/mangle"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/validate"
	"github.com/inkforge/atlasforge/internal/world"
)

type fakeGateway struct {
	response string
	err      error
}

func (f *fakeGateway) Call(ctx context.Context, opts llm.CallOptions) (*llm.CallResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CallResult{Content: f.response}, nil
}
func (f *fakeGateway) DetectContextWindow(ctx context.Context) int { return 8192 }
func (f *fakeGateway) Provider() string                            { return "fake" }
func (f *fakeGateway) SetModel(m string)                           {}

type fakeStore struct {
	chapters   []model.Chapter
	dict       *model.EntityDictionary
	world      *model.WorldStructure
	savedFacts []*model.ChapterFact
	savedTasks []*model.AnalysisTask
	runningTasks []*model.AnalysisTask
}

func (s *fakeStore) LoadChapters(novelID string) ([]model.Chapter, error)      { return s.chapters, nil }
func (s *fakeStore) LoadDictionary(novelID string) (*model.EntityDictionary, error) { return s.dict, nil }
func (s *fakeStore) LoadWorld(novelID string) (*model.WorldStructure, error)   { return s.world, nil }
func (s *fakeStore) SaveChapterFact(fact *model.ChapterFact) error {
	s.savedFacts = append(s.savedFacts, fact)
	return nil
}
func (s *fakeStore) SaveWorld(w *model.WorldStructure) error { return nil }
func (s *fakeStore) SaveTask(t *model.AnalysisTask) error {
	s.savedTasks = append(s.savedTasks, t)
	return nil
}
func (s *fakeStore) LoadRunningTasks() ([]*model.AnalysisTask, error) { return s.runningTasks, nil }

func newTestOrchestrator(gw llm.Gateway, st *fakeStore) *Orchestrator {
	budget := llm.ComputeBudget(8192, false, "openai", config.DefaultBudgetConfig())
	extractor := extract.New(gw, nil)
	validator, err := validate.New(mangle.DefaultConfig())
	if err != nil {
		panic(err)
	}
	consolidator := world.New(nil, false)
	return New(st, extractor, validator, consolidator, budget, false)
}

func TestRun_HappyPathSavesFactsAndCompletesTask(t *testing.T) {
	factJSON, _ := json.Marshal(model.ChapterFact{
		Characters: []model.Character{{Name: "张无忌"}},
		Locations:  []model.Location{{Name: "光明顶", Role: model.RoleSetting}},
	})
	gw := &fakeGateway{response: string(factJSON)}
	st := &fakeStore{
		chapters: []model.Chapter{{NovelID: "novel-1", Number: 1, Text: "光明顶上，张无忌..."}},
		dict:     model.NewEntityDictionary("novel-1"),
		world:    model.NewWorldStructure("novel-1", model.GeoTypeFictional),
	}
	o := newTestOrchestrator(gw, st)
	task := &model.AnalysisTask{ID: "task-1", NovelID: "novel-1", State: model.TaskPending}

	if err := o.Run(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.State != model.TaskCompleted {
		t.Errorf("expected task completed, got %s", task.State)
	}
	if len(st.savedFacts) != 1 {
		t.Fatalf("expected 1 saved fact, got %d", len(st.savedFacts))
	}
}

func TestRecoverStaleTasks_ResetsRunningToPaused(t *testing.T) {
	st := &fakeStore{
		runningTasks: []*model.AnalysisTask{{ID: "task-1", State: model.TaskRunning}},
	}
	o := newTestOrchestrator(&fakeGateway{}, st)
	if err := o.RecoverStaleTasks(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.runningTasks[0].State != model.TaskPaused {
		t.Errorf("expected stale running task reset to paused, got %s", st.runningTasks[0].State)
	}
}
