// Package main implements the atlasforge CLI — the external interface
// (spec §6) over the analysis pipeline: ingest raw chapters, run
// start_analysis, inspect chapter facts, rebuild derived artifacts
// (dictionary, alias map, entity profiles, location hierarchy, map layout).
//
// # File Index
//
//   - main.go           - entry point, rootCmd, global flags, app wiring
//   - cmd_novel.go       - novel add/list
//   - cmd_ingest.go      - ingest (one-shot import + watch mode)
//   - cmd_analyze.go     - analyze, task status
//   - cmd_dictionary.go  - dictionary build/show
//   - cmd_alias.go       - alias build
//   - cmd_aggregate.go   - aggregate (entity profile lookup)
//   - cmd_hierarchy.go   - hierarchy get/rebuild/apply
//   - cmd_map.go         - map get/generate
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inkforge/atlasforge/internal/config"
	"github.com/inkforge/atlasforge/internal/llm"
	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/store"
)

var (
	verbose   bool
	workspace string

	logger *zap.Logger

	app *appContext
)

// appContext bundles the services every subcommand needs, built once in
// PersistentPreRunE and torn down in PersistentPostRun.
type appContext struct {
	// config holds the compiled-in defaults layer (atlasforge.yaml, falling
	// back to config.DefaultConfig()); userConfig holds the per-workspace
	// JSON overrides that take priority for anything both define (provider
	// selection, store path). Components with no JSON-config equivalent yet
	// (the Mangle engine's fact limit and query timeout) read from config.
	config     *config.Config
	userConfig *config.UserConfig
	store      *store.Store
	gateway    llm.Gateway
	isCloud    bool
}

var rootCmd = &cobra.Command{
	Use:   "atlasforge",
	Short: "atlasforge — extracts structured facts and a living map from long-form Chinese fiction",
	Long: `atlasforge ingests long-form Chinese fiction, extracts per-chapter facts
(characters, locations, items, organizations, events, spatial relations) via
an LLM, and aggregates them into entity profiles, an alias map, a location
hierarchy, a multi-region world structure, and a 2D map layout with terrain.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, aerr := filepath.Abs(ws); aerr == nil {
			ws = abs
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}

		cfg, err := config.Load(filepath.Join(ws, "atlasforge.yaml"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		userCfg, err := config.LoadUserConfig(filepath.Join(ws, ".atlasforge", "config.json"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		storeCfg := userCfg.GetStoreConfig()
		dbPath := storeCfg.DatabasePath
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(ws, dbPath)
		}
		st, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		provider, apiKey := userCfg.GetActiveProvider()
		var gateway llm.Gateway
		isCloud := true
		if provider != "" {
			gateway, err = llm.NewGateway(provider, llm.ClientConfig{
				APIKey:  apiKey,
				BaseURL: userCfg.BaseURL,
				Model:   userCfg.Model,
				Timeout: 5 * time.Minute,
			})
			if err != nil {
				return fmt.Errorf("build LLM gateway: %w", err)
			}
			isCloud = !userCfg.LocalMode
		}

		app = &appContext{config: cfg, userConfig: userCfg, store: st, gateway: gateway, isCloud: isCloud}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if app != nil && app.store != nil {
			_ = app.store.Close()
		}
		logging.CloseAll()
	},
}

func requireGateway() error {
	if app.gateway == nil {
		return fmt.Errorf("no LLM provider configured: set provider + api key in .atlasforge/config.json or OPENAI_API_KEY/ANTHROPIC_API_KEY")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	rootCmd.AddCommand(
		novelCmd,
		ingestCmd,
		analyzeCmd,
		taskCmd,
		dictionaryCmd,
		aliasCmd,
		aggregateCmd,
		hierarchyCmd,
		mapCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
