package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/aggregate"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <novel-id> <person|location|item|org> <canonical-name>",
	Short: "Aggregate chapter facts into one entity's profile",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		novelID, kind, name := args[0], args[1], args[2]

		facts, err := app.store.LoadAllChapterFacts(novelID)
		if err != nil {
			return fmt.Errorf("load chapter facts: %w", err)
		}
		aliasMap, err := app.store.LoadAliasMap(novelID)
		if err != nil {
			return fmt.Errorf("load alias map: %w", err)
		}
		world, err := app.store.LoadWorld(novelID)
		if err != nil {
			return fmt.Errorf("load world: %w", err)
		}

		agg := aggregate.New(facts, aliasMap, world)

		var profile interface{}
		switch kind {
		case "person":
			profile = agg.AggregatePerson(name)
		case "location":
			profile = agg.AggregateLocation(name)
		case "item":
			profile = agg.AggregateItem(name)
		case "org":
			profile = agg.AggregateOrg(name)
		default:
			return fmt.Errorf("unknown entity kind %q: want person, location, item, or org", kind)
		}

		out, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}
