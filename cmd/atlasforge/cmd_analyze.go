package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/extract"
	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/mangle"
	"github.com/inkforge/atlasforge/internal/model"
	"github.com/inkforge/atlasforge/internal/orchestrator"
	ui "github.com/inkforge/atlasforge/internal/progressui"
	"github.com/inkforge/atlasforge/internal/validate"
	"github.com/inkforge/atlasforge/internal/world"
)

var analyzeWatch bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <novel-id>",
	Short: "Run the Analysis Orchestrator over every ingested chapter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGateway(); err != nil {
			return err
		}
		novelID := args[0]

		orch, err := buildOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		if err := orch.RecoverStaleTasks(); err != nil {
			return fmt.Errorf("recover stale tasks: %w", err)
		}

		task := &model.AnalysisTask{
			ID:      uuid.NewString(),
			NovelID: novelID,
			State:   model.TaskPending,
		}
		if err := app.store.SaveTask(task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		var watchDone chan error
		if analyzeWatch {
			watchDone = startTaskWatch(task.ID)
		}

		runErr := orch.Run(cmd.Context(), task)
		if watchDone != nil {
			<-watchDone // let the program render the task's terminal state before printing the summary
		}
		if runErr != nil {
			return fmt.Errorf("analysis run: %w", runErr)
		}

		fmt.Printf("task %s: %s (%d/%d chapters, %d failed)\n",
			task.ID, task.State, task.Timing.ChaptersDone, task.Timing.ChaptersTotal, task.Timing.ChaptersFailed)
		return nil
	},
}

// startTaskWatch runs a bubbletea progress program against taskID on its own
// goroutine, polling the store every 500ms (the Orchestrator exposes no
// progress channel of its own — task.Timing is the surface it already
// persists for exactly this purpose, per model.TimingSummary's doc comment).
// The returned channel closes once the program exits, either because the
// task reached a terminal state or the user quit it with ctrl+c/q.
func startTaskWatch(taskID string) chan error {
	done := make(chan error, 1)
	watcher := func() (ui.TaskSnapshot, bool) {
		task, err := app.store.LoadTask(taskID)
		if err != nil {
			return ui.TaskSnapshot{}, false
		}
		return ui.TaskSnapshot{
			ID:             task.ID,
			State:          string(task.State),
			CurrentChapter: task.CurrentChapter,
			ChaptersDone:   task.Timing.ChaptersDone,
			ChaptersTotal:  task.Timing.ChaptersTotal,
			ChaptersFailed: task.Timing.ChaptersFailed,
			ETA:            task.Timing.ETA,
			Terminal:       task.State == model.TaskCompleted || task.State == model.TaskCancelled,
		}, true
	}

	program := ui.NewTaskWatchProgram(watcher, 500*time.Millisecond)
	go func() {
		_, err := program.Run()
		done <- err
	}()
	return done
}

var taskCmd = &cobra.Command{
	Use:   "task <task-id>",
	Short: "Show an analysis task's status and timing summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := app.store.LoadTask(args[0])
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		table := ui.NewSimpleTable(fmt.Sprintf("task %s (novel %s)", task.ID, task.NovelID),
			[]string{"state", "chapter", "done", "failed", "eta"})
		table.AddRow(
			string(task.State),
			fmt.Sprintf("%d", task.CurrentChapter),
			fmt.Sprintf("%d/%d", task.Timing.ChaptersDone, task.Timing.ChaptersTotal),
			fmt.Sprintf("%d", task.Timing.ChaptersFailed),
			task.Timing.ETA.String(),
		)
		fmt.Print(table.View(ui.DefaultStyles()))
		return nil
	},
}

// buildOrchestrator wires C2 (Gateway) -> C1 (Budget) -> C4 (Extractor) ->
// C5 (Validator) -> C11 (Consolidator) -> C7 (Orchestrator), the dependency
// order spec §2's component table names.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	budgetCfg := app.userConfig.GetBudgetConfig()
	contextWindow := app.gateway.DetectContextWindow(ctx)
	budget := llm.ComputeBudget(contextWindow, app.isCloud, app.gateway.Provider(), budgetCfg)

	extractor := extract.New(app.gateway, nil)
	mangleCfg := mangle.DefaultConfig()
	mangleCfg.FactLimit = app.config.Mangle.FactLimit
	mangleCfg.QueryTimeout = int(app.config.GetQueryTimeout().Seconds())
	validator, err := validate.New(mangleCfg)
	if err != nil {
		return nil, fmt.Errorf("build validator: %w", err)
	}
	consolidator := world.New(app.gateway, app.isCloud)

	return orchestrator.New(app.store, extractor, validator, consolidator, budget, app.isCloud), nil
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeWatch, "watch", false, "Show a live progress table while the analysis run is in flight")
}
