package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/alias"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Build or show a novel's alias map",
}

var aliasBuildCmd = &cobra.Command{
	Use:   "build <novel-id>",
	Short: "Run build_alias_map over the dictionary and every persisted chapter fact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		novelID := args[0]

		dict, err := app.store.LoadDictionary(novelID)
		if err != nil {
			return fmt.Errorf("load dictionary: %w", err)
		}
		facts, err := app.store.LoadAllChapterFacts(novelID)
		if err != nil {
			return fmt.Errorf("load chapter facts: %w", err)
		}

		aliasMap := alias.Build(dict, facts)
		if err := app.store.SaveAliasMap(novelID, aliasMap); err != nil {
			return fmt.Errorf("save alias map: %w", err)
		}

		fmt.Printf("built alias map for %s: %d aliases\n", novelID, len(aliasMap))
		return nil
	},
}

var aliasShowCmd = &cobra.Command{
	Use:   "show <novel-id>",
	Short: "Print the persisted alias map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aliasMap, err := app.store.LoadAliasMap(args[0])
		if err != nil {
			return fmt.Errorf("load alias map: %w", err)
		}
		names := make([]string, 0, len(aliasMap))
		for a := range aliasMap {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, a := range names {
			fmt.Printf("%s\t-> %s\n", a, aliasMap[a])
		}
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasBuildCmd, aliasShowCmd)
}
