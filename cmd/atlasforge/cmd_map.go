package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/mapgen"
	"github.com/inkforge/atlasforge/internal/model"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Inspect and (re)generate a novel's 2D map layout",
}

var mapGetCmd = &cobra.Command{
	Use:   "get <novel-id>",
	Short: "Print the persisted map layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := app.store.LoadMapLayout(args[0])
		if err != nil {
			return fmt.Errorf("load map layout: %w", err)
		}
		names := make([]string, 0, len(layout.Entries))
		for n := range layout.Entries {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			e := layout.Entries[n]
			fmt.Printf("%s\t(%.0f, %.0f)\tlocked=%v\n", n, e.X, e.Y, e.Locked)
		}
		return nil
	},
}

var mapGenerateCmd = &cobra.Command{
	Use:   "generate <novel-id>",
	Short: "Run the Map Layout Engine and persist the result, preserving locked entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		novelID := args[0]

		w, err := app.store.LoadWorld(novelID)
		if err != nil {
			return fmt.Errorf("load world: %w", err)
		}
		facts, err := app.store.LoadAllChapterFacts(novelID)
		if err != nil {
			return fmt.Errorf("load chapter facts: %w", err)
		}
		existing, err := app.store.LoadMapLayout(novelID)
		if err != nil {
			return fmt.Errorf("load map layout: %w", err)
		}

		limits := app.userConfig.GetLimits()
		cfg := mapgen.DefaultConfig()
		if limits.MaxSolverLocations > 0 {
			cfg.MaxSolverLocations = limits.MaxSolverLocations
		}

		rels := spatialRelationshipsToRels(facts)
		layout := mapgen.Generate(w, rels, existing, cfg, rand.New(rand.NewSource(1)))

		if err := app.store.SaveMapLayout(layout); err != nil {
			return fmt.Errorf("save map layout: %w", err)
		}
		fmt.Printf("generated map layout for %s: %d locations placed\n", novelID, len(layout.Entries))
		return nil
	},
}

var mapShowJSONCmd = &cobra.Command{
	Use:   "json <novel-id>",
	Short: "Print the persisted map layout as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := app.store.LoadMapLayout(args[0])
		if err != nil {
			return fmt.Errorf("load map layout: %w", err)
		}
		out, err := json.MarshalIndent(layout, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal layout: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

// confidenceWeight maps high/medium/low evidence strengths to a simple 3/2/1
// scale the solver uses to weight a constraint's contribution to energy.
// This scale is the solver's own; the World Structure Agent's vote weights
// are separate.
func confidenceWeight(c model.Confidence) float64 {
	switch c {
	case model.ConfidenceHigh:
		return 3
	case model.ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// spatialRelationshipsToRels flattens every chapter fact's spatial
// relationships into the solver's Relationship view, deduplicating
// source/target/type triples by keeping the highest observed confidence.
func spatialRelationshipsToRels(facts []*model.ChapterFact) []mapgen.Relationship {
	best := make(map[string]mapgen.Relationship)
	for _, fact := range facts {
		for _, r := range fact.SpatialRelationships {
			key := r.Source + "\x00" + r.Target + "\x00" + string(r.RelationType)
			weight := confidenceWeight(r.Confidence)
			if existing, ok := best[key]; !ok || weight > existing.Weight {
				best[key] = mapgen.Relationship{
					Source: r.Source, Target: r.Target,
					Type: r.RelationType, Weight: weight,
				}
			}
		}
	}
	out := make([]mapgen.Relationship, 0, len(best))
	for _, rel := range best {
		out = append(out, rel)
	}
	return out
}

func init() {
	mapCmd.AddCommand(mapGetCmd, mapGenerateCmd, mapShowJSONCmd)
}
