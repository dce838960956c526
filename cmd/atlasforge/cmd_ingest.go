package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/ingest"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <novel-id> <source-dir>",
	Short: "Split raw chapter text files into chapters and persist them",
	Long: `Splits every .txt file in source-dir on chapter-heading patterns
(第N章, 第N节, Chapter N) and persists the resulting chapters. With --watch,
stays running and picks up appended or edited files until interrupted.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		novelID, sourceDir := args[0], args[1]

		n, err := ingest.IngestDirectory(novelID, sourceDir, app.store)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", sourceDir, err)
		}
		fmt.Printf("ingested %d chapter(s) from %s\n", n, sourceDir)

		if !ingestWatch {
			return nil
		}

		watcher, err := ingest.NewWatcher(novelID, sourceDir, app.store, func(novelID string, numbers []int) {
			fmt.Printf("new chapters for %s: %v\n", novelID, numbers)
		})
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		fmt.Printf("watching %s for new chapters (ctrl-c to stop)\n", sourceDir)
		<-ctx.Done()
		watcher.Stop()
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "Keep watching source-dir for new or edited chapter files")
}
