package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkforge/atlasforge/internal/model"
	ui "github.com/inkforge/atlasforge/internal/progressui"
)

var (
	novelTitle  string
	novelGenre  string
	novelAuthor string
)

var novelCmd = &cobra.Command{
	Use:   "novel",
	Short: "Register and list novels",
}

var novelAddCmd = &cobra.Command{
	Use:   "add <novel-id>",
	Short: "Register a new novel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		novelID := args[0]

		// geo_type starts fictional and is refined by `atlasforge hierarchy
		// geo-detect` once chapter facts exist and there are location names
		// to classify (spec §6's detect_geo_type needs locations to count).
		n := &model.Novel{
			ID:      novelID,
			Title:   novelTitle,
			Genre:   novelGenre,
			Author:  novelAuthor,
			GeoType: model.GeoTypeFictional,
		}
		if err := app.store.SaveNovel(n); err != nil {
			return fmt.Errorf("save novel: %w", err)
		}
		fmt.Printf("registered novel %s (%q, genre=%s)\n", novelID, novelTitle, novelGenre)
		return nil
	},
}

var novelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered novels",
	RunE: func(cmd *cobra.Command, args []string) error {
		novels, err := app.store.ListNovels()
		if err != nil {
			return fmt.Errorf("list novels: %w", err)
		}
		table := ui.NewSimpleTable("novels", []string{"id", "title", "genre", "geo_type"})
		for _, n := range novels {
			table.AddRow(n.ID, n.Title, n.Genre, string(n.GeoType))
		}
		fmt.Print(table.View(ui.DefaultStyles()))
		return nil
	},
}

func init() {
	novelAddCmd.Flags().StringVar(&novelTitle, "title", "", "Novel title")
	novelAddCmd.Flags().StringVar(&novelGenre, "genre", "", "Genre hint (e.g. fantasy, xianxia, wuxia, historical)")
	novelAddCmd.Flags().StringVar(&novelAuthor, "author", "", "Author")
	novelCmd.AddCommand(novelAddCmd, novelListCmd)
}
