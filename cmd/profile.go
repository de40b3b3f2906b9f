package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bloggera/bloggera/internal/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile [email]",
	Short: "Show a user's profile and posts",
	Long: `Show a profile and the user's posts. Without an email, shows your own.

Examples:
  bloggera profile
  bloggera profile alice@example.com`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: guarded(),
	RunE:        runProfile,
}

var followCmd = &cobra.Command{
	Use:         "follow <email>",
	Short:       "Follow or unfollow a user",
	Long:        `Toggle whether you follow a user. You cannot follow yourself.`,
	Args:        cobra.ExactArgs(1),
	Annotations: guarded(),
	RunE:        runFollow,
}

func init() {
	rootCmd.AddCommand(profileCmd, followCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	viewer, err := application.RequireSession(ctx)
	if err != nil {
		return output.FromError("loading profile failed", err)
	}
	email := ""
	if len(args) == 1 {
		email = args[0]
	}

	profile := application.Profile(viewer, email)
	if err := profile.Load(ctx); err != nil {
		return output.FromError("loading profile failed", err)
	}

	snap := profile.Snapshot()
	if ok, err := printer.Encode(snap); ok {
		return err
	}

	u := snap.User
	printer.Header(u.Username)
	table := printer.NewTable("FIELD", "VALUE")
	table.AddRow("email", u.Email)
	if u.Bio != "" {
		table.AddRow("bio", u.Bio)
	}
	table.AddRow("followers", strconv.Itoa(u.FollowerCount))
	table.AddRow("following", strconv.Itoa(u.FollowingCount))
	if !snap.Own {
		table.AddRow("status", printer.FollowMark(u.FollowStatus))
	}
	if err := table.Render(); err != nil {
		return err
	}

	if err := renderCards("Posts", snap.Posts, false); err != nil {
		return err
	}
	if snap.CanFollow {
		printer.PrintHints("profile")
	}
	return nil
}

func runFollow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	viewer, err := application.RequireSession(ctx)
	if err != nil {
		return output.FromError("follow failed", err)
	}

	profile := application.Profile(viewer, args[0])
	if err := profile.Load(ctx); err != nil {
		return output.FromError("follow failed", err)
	}
	res, err := profile.ToggleFollow(ctx)
	if err != nil {
		return output.FromError("follow failed", err)
	}
	state, err := res.Wait(ctx)
	if err != nil {
		return output.FromError("follow failed", err)
	}
	return renderToggle(args[0], state, printer.FollowMark)
}
