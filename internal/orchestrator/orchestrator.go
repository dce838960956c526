// Package orchestrator implements the Analysis Orchestrator (spec §4.7):
// the per-novel state machine that drives the chapter loop through
// context-build -> extract -> validate -> vote-accumulate, then the
// post-loop hierarchy consolidation and subtree review, with a size-1
// per-novel LLM concurrency gate and stale-task recovery on startup.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/inkforge/atlasforge/internal/contextbuild"
	"github.com/inkforge/atlasforge/internal/extract"
	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/validate"
	"github.com/inkforge/atlasforge/internal/world"
)

// Store is the minimal persistence surface the Orchestrator needs; a
// concrete implementation lives in internal/store. Kept as an interface
// here so the orchestrator can be tested without a real database.
type Store interface {
	LoadChapters(novelID string) ([]model.Chapter, error)
	LoadDictionary(novelID string) (*model.EntityDictionary, error)
	LoadWorld(novelID string) (*model.WorldStructure, error)
	SaveChapterFact(fact *model.ChapterFact) error
	SaveWorld(world *model.WorldStructure) error
	SaveTask(task *model.AnalysisTask) error
	LoadRunningTasks() ([]*model.AnalysisTask, error)
}

// Orchestrator drives one or more novels' analysis tasks against a shared
// Gateway, Extractor, Validator, and Store, one in-flight LLM call per
// novel at a time (spec §4.7: "a size-1 per-novel semaphore serializes LLM
// calls so interleaved novels never race the same context budget").
type Orchestrator struct {
	store      Store
	extractor  *extract.Extractor
	validator  *validate.Validator
	consolidator *world.Consolidator
	budget     llm.Budget
	isCloud    bool

	novelSems map[string]*semaphore.Weighted
}

// New builds an Orchestrator. budget is recomputed by the caller whenever
// the active model or local/cloud mode changes (spec §4.1) and passed in
// fresh per run.
func New(store Store, extractor *extract.Extractor, validator *validate.Validator, consolidator *world.Consolidator, budget llm.Budget, isCloud bool) *Orchestrator {
	return &Orchestrator{
		store:        store,
		extractor:    extractor,
		validator:    validator,
		consolidator: consolidator,
		budget:       budget,
		isCloud:      isCloud,
		novelSems:    make(map[string]*semaphore.Weighted),
	}
}

func (o *Orchestrator) semFor(novelID string) *semaphore.Weighted {
	sem, ok := o.novelSems[novelID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		o.novelSems[novelID] = sem
	}
	return sem
}

// RecoverStaleTasks implements spec §4.7's startup recovery: any task still
// marked "running" from a previous process (which can never have a live
// goroutine actually driving it after a restart) is reset to "paused" so
// the operator can explicitly resume it rather than have it silently stall
// forever or silently resume unattended.
func (o *Orchestrator) RecoverStaleTasks() error {
	tasks, err := o.store.LoadRunningTasks()
	if err != nil {
		return fmt.Errorf("load running tasks: %w", err)
	}
	for _, t := range tasks {
		if t.State != model.TaskRunning {
			continue
		}
		t.Transition(model.TaskPaused)
		if err := o.store.SaveTask(t); err != nil {
			return fmt.Errorf("save recovered task %s: %w", t.ID, err)
		}
		logging.OrchestratorWarn("recovered stale running task %s for novel %s -> paused", t.ID, t.NovelID)
	}
	return nil
}

// Run executes the full protocol (spec §4.7) for one novel: build
// name_corrections, loop chapters building context, extracting, validating,
// and accumulating world-structure votes; retry each failed chapter once
// (skipping content_policy failures, which are never retry-eligible);
// then consolidate the hierarchy and run the subtree review.
func (o *Orchestrator) Run(ctx context.Context, task *model.AnalysisTask) error {
	sem := o.semFor(task.NovelID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire novel semaphore: %w", err)
	}
	defer sem.Release(1)

	if !task.Transition(model.TaskRunning) {
		return fmt.Errorf("task %s cannot transition to running from %s", task.ID, task.State)
	}
	if err := o.store.SaveTask(task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	chapters, err := o.store.LoadChapters(task.NovelID)
	if err != nil {
		return fmt.Errorf("load chapters: %w", err)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })

	dict, err := o.store.LoadDictionary(task.NovelID)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	o.validator.SetNameCorrections(validate.BuildNameCorrections(dict))

	worldStructure, err := o.store.LoadWorld(task.NovelID)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}

	task.Timing.StartedAt = time.Now()
	task.Timing.ChaptersTotal = len(chapters)

	var knownPersons []string
	for _, e := range dict.Entries {
		if e.Type == model.EntityPerson {
			knownPersons = append(knownPersons, e.Name)
		}
	}

	var precedingFacts []*model.ChapterFact
	var toRetry []model.Chapter

	for _, ch := range chapters {
		if ctx.Err() != nil {
			task.Transition(model.TaskPaused)
			o.store.SaveTask(task)
			return ctx.Err()
		}

		task.CurrentChapter = ch.Number
		fact, failure := o.runOneChapter(ctx, ch, precedingFacts, dict, worldStructure)
		elapsed := time.Duration(0)
		if fact != nil {
			elapsed = time.Duration(fact.ExtractionMeta.ElapsedMS) * time.Millisecond
		}

		if failure != nil {
			firstFailure := task.MarkChapterFailed(ch.Number)
			if firstFailure && failure.Kind != model.FailureContentPolicy {
				toRetry = append(toRetry, ch)
			}
			task.Timing.Update(elapsed, true)
			logging.OrchestratorWarn("chapter %d failed (%s): %v", ch.Number, failure.Kind, failure.Err)
			continue
		}

		precedingFacts = append(precedingFacts, fact)
		world.RecordVotesFromFact(worldStructure, fact)
		if err := o.store.SaveChapterFact(fact); err != nil {
			return fmt.Errorf("save chapter fact %d: %w", ch.Number, err)
		}
		task.Timing.Update(elapsed, false)
	}

	for _, ch := range toRetry {
		if ctx.Err() != nil {
			break
		}
		fact, failure := o.runOneChapter(ctx, ch, precedingFacts, dict, worldStructure)
		if failure != nil {
			task.MarkChapterFailed(ch.Number) // records the permanent second failure
			logging.OrchestratorWarn("chapter %d retry failed (%s): %v", ch.Number, failure.Kind, failure.Err)
			continue
		}
		precedingFacts = append(precedingFacts, fact)
		world.RecordVotesFromFact(worldStructure, fact)
		if err := o.store.SaveChapterFact(fact); err != nil {
			return fmt.Errorf("save chapter fact %d (retry): %w", ch.Number, err)
		}
	}

	if err := o.consolidateWorld(ctx, worldStructure); err != nil {
		logging.OrchestratorWarn("hierarchy consolidation failed non-fatally: %v", err)
	}
	if err := o.store.SaveWorld(worldStructure); err != nil {
		return fmt.Errorf("save world: %w", err)
	}

	task.Transition(model.TaskCompleted)
	return o.store.SaveTask(task)
}

func (o *Orchestrator) runOneChapter(ctx context.Context, ch model.Chapter, precedingFacts []*model.ChapterFact, dict *model.EntityDictionary, worldStructure *model.WorldStructure) (*model.ChapterFact, *model.Failure) {
	builder := contextbuild.New()
	priorContext := builder.Build(ch.Number, precedingFacts, dict, worldStructure, o.budget)

	fact, failure := o.extractor.Extract(ctx, ch.NovelID, ch.Number, ch.Text, priorContext, o.budget)
	if failure != nil {
		return nil, failure
	}

	var personNames []string
	for _, c := range fact.Characters {
		personNames = append(personNames, c.Name)
	}
	validated, err := o.validator.Validate(ctx, fact, personNames)
	if err != nil {
		return nil, model.NewFailure(model.FailureValidationError, ch.NovelID, ch.Number, err)
	}
	return validated, nil
}

// consolidateWorld wraps the post-loop hierarchy consolidation and subtree
// review in a bounded timeout (spec §4.7 step 5: "wrapped in a timeout so a
// hung LLM pass never blocks task completion indefinitely").
func (o *Orchestrator) consolidateWorld(ctx context.Context, worldStructure *model.WorldStructure) error {
	timeout := time.Duration(o.budget.HierarchyReviewTimeoutS+o.budget.SubtreeReviewTimeoutS) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	o.consolidator.Consolidate(worldStructure, nil, nil)
	if err := o.consolidator.SubtreeReview(ctx, worldStructure); err != nil {
		return err
	}
	return nil
}
