package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/prescan"
	"github.com/inkforge/atlasforge/internal/segment"
)

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Build or show a novel's entity dictionary",
}

var dictionaryBuildCmd = &cobra.Command{
	Use:   "build <novel-id>",
	Short: "Run the Entity Pre-Scanner over every ingested chapter and persist the dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGateway(); err != nil {
			return err
		}
		novelID := args[0]

		chapters, err := app.store.LoadChapters(novelID)
		if err != nil {
			return fmt.Errorf("load chapters: %w", err)
		}
		sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })

		texts := make([]string, len(chapters))
		for i, ch := range chapters {
			texts[i] = ch.Text
		}

		scanner := prescan.New(segment.New(), app.gateway)
		dict, err := scanner.Scan(cmd.Context(), novelID, texts)
		if err != nil {
			return fmt.Errorf("prescan: %w", err)
		}
		if err := app.store.SaveDictionary(dict); err != nil {
			return fmt.Errorf("save dictionary: %w", err)
		}

		fmt.Printf("built dictionary for %s: %d entries\n", novelID, len(dict.Entries))
		return nil
	},
}

var dictionaryShowCmd = &cobra.Command{
	Use:   "show <novel-id>",
	Short: "Print the persisted entity dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := app.store.LoadDictionary(args[0])
		if err != nil {
			return fmt.Errorf("load dictionary: %w", err)
		}
		names := make([]string, 0, len(dict.Entries))
		for name := range dict.Entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e := dict.Entries[name]
			fmt.Printf("%s\t%s\tfreq=%d\tsource=%s\n", name, e.Type, e.Frequency, e.Source)
		}
		return nil
	},
}

func init() {
	dictionaryCmd.AddCommand(dictionaryBuildCmd, dictionaryShowCmd)
}
