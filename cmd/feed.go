package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bloggera/bloggera/internal/output"
	"github.com/bloggera/bloggera/internal/views"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the home feed",
	Long: `Show the home feed, newest first. Each extra page excludes the posts
already shown, so nothing repeats.

Examples:
  bloggera feed                # First page
  bloggera feed --pages 3      # First three pages
  bloggera feed -o json        # As JSON`,
	Args:        cobra.NoArgs,
	Annotations: guarded(),
	RunE:        runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().Int("pages", 1, "number of pages to load")
}

func runFeed(cmd *cobra.Command, args []string) error {
	pages, _ := cmd.Flags().GetInt("pages")
	if pages < 1 {
		return usageError(errPagesFlag)
	}

	home := application.Home()
	defer home.Close()

	ctx := cmd.Context()
	if _, err := home.Load(ctx); err != nil {
		return output.FromError("loading feed failed", err)
	}
	if err := loadMore(ctx, home.More, func() bool { return home.Snapshot().CanLoadMore }, pages); err != nil {
		return output.FromError("loading feed failed", err)
	}

	snap := home.Snapshot()
	if err := renderCards("Home", snap.Posts, snap.CanLoadMore); err != nil {
		return err
	}
	printer.PrintHints("feed")
	return nil
}

var errPagesFlag = errors.New("--pages must be at least 1")

// loadMore fetches up to pages-1 further pages, stopping once the feed is exhausted.
func loadMore(ctx context.Context, more func(context.Context) ([]views.Card, error), canLoadMore func() bool, pages int) error {
	for i := 1; i < pages && canLoadMore(); i++ {
		if _, err := more(ctx); err != nil {
			return err
		}
	}
	return nil
}
