package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bloggera/bloggera/internal/category"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/output"
)

var exploreCmd = &cobra.Command{
	Use:     "explore",
	Aliases: []string{"search"},
	Short:   "Search posts by category or text",
	Long: `Search posts by category, by text, or both. A search needs at least one
category or three characters of text.

Categories are matched by id or by name, ignoring case.

Examples:
  bloggera explore -c Travel               # One category
  bloggera explore -c Travel -c Tech       # Any of several
  bloggera explore -t lisbon               # Text search
  bloggera explore -c Food -t pasta --pages 2`,
	Args:        cobra.NoArgs,
	Annotations: guarded(),
	RunE:        runExplore,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Long: `List every category, or suggest categories matching a fragment the way
the explore and write forms do.

Examples:
  bloggera categories
  bloggera categories --suggest trav`,
	Args:        cobra.NoArgs,
	Annotations: guarded(),
	RunE:        runCategories,
}

func init() {
	rootCmd.AddCommand(exploreCmd, categoriesCmd)

	exploreCmd.Flags().StringSliceP("category", "c", nil, "category id or name (repeatable)")
	exploreCmd.Flags().StringP("text", "t", "", "text to search for")
	exploreCmd.Flags().Int("pages", 1, "number of pages to load")

	categoriesCmd.Flags().String("suggest", "", "suggest categories matching a fragment")
}

// resolveCategories maps ids or names to categories, rejecting unknown ones.
func resolveCategories(cmd *cobra.Command, field string, refs []string) ([]domain.Category, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	all, err := application.Categories.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	found, missing := category.Resolve(all, refs)
	if len(missing) > 0 {
		return nil, domain.NewValidationError(field, "unknown category: "+strings.Join(missing, ", "))
	}
	return found, nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	refs, _ := cmd.Flags().GetStringSlice("category")
	text, _ := cmd.Flags().GetString("text")
	pages, _ := cmd.Flags().GetInt("pages")
	if pages < 1 {
		return usageError(errPagesFlag)
	}

	selected, err := resolveCategories(cmd, "category", refs)
	if err != nil {
		return output.FromError("search failed", err)
	}

	explore := application.Explore()
	defer explore.Close()
	for _, c := range selected {
		explore.AddCategory(c)
	}
	explore.SetText(text)

	ctx := cmd.Context()
	if _, err := explore.Search(ctx); err != nil {
		return output.FromError("search failed", err)
	}
	if err := loadMore(ctx, explore.More, func() bool { return explore.Snapshot().CanLoadMore }, pages); err != nil {
		return output.FromError("search failed", err)
	}

	snap := explore.Snapshot()
	title := "Explore"
	if desc := describeFilter(explore.ActiveFilter()); desc != "" {
		title += ": " + desc
	}
	if err := renderCards(title, snap.Posts, snap.CanLoadMore); err != nil {
		return err
	}
	printer.PrintHints("explore")
	return nil
}

func describeFilter(f domain.Filter) string {
	switch f.Kind() {
	case domain.FilterCategories:
		return strings.Join(f.Categories, ", ")
	case domain.FilterText:
		return "\"" + strings.TrimSpace(f.Text) + "\""
	default:
		return ""
	}
}

func runCategories(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if query, _ := cmd.Flags().GetString("suggest"); query != "" {
		sugg, err := application.Categories.Suggest(ctx, query, nil)
		if err != nil {
			return output.FromError("listing categories failed", err)
		}
		return renderCategories(sugg)
	}

	cats, err := application.Categories.List(ctx)
	if err != nil {
		return output.FromError("listing categories failed", err)
	}
	if err := renderCategories(cats); err != nil {
		return err
	}
	printer.PrintHints("categories")
	return nil
}
