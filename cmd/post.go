package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bloggera/bloggera/internal/compose"
	"github.com/bloggera/bloggera/internal/output"
	"github.com/bloggera/bloggera/internal/toggle"
)

var postCmd = &cobra.Command{
	Use:         "post",
	Short:       "Read and write posts",
	Annotations: guarded(),
}

var postShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post with its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostShow,
}

var postCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a new post",
	Long: `Write a new post. A post needs a title, non-empty content and at least one
category; the image is optional and must be a JPEG or PNG.

Content is HTML. Use --content-file - to read it from stdin.

Examples:
  bloggera post create --title Lisbon --content "<p>Trams</p>" -c Travel
  bloggera post create --title Lisbon --content-file post.html -c Travel -c Food --image tram.jpg`,
	Args: cobra.NoArgs,
	RunE: runPostCreate,
}

var likeCmd = &cobra.Command{
	Use:         "like <post-id>",
	Short:       "Like or unlike a post",
	Long:        `Toggle your like on a post. The change shows at once and is rolled back if the server refuses it.`,
	Args:        cobra.ExactArgs(1),
	Annotations: guarded(),
	RunE:        runLike,
}

var commentCmd = &cobra.Command{
	Use:         "comment <post-id> <text>...",
	Short:       "Comment on a post",
	Args:        cobra.MinimumNArgs(2),
	Annotations: guarded(),
	RunE:        runComment,
}

func init() {
	rootCmd.AddCommand(postCmd, likeCmd, commentCmd)
	postCmd.AddCommand(postShowCmd, postCreateCmd)

	postCreateCmd.Flags().String("title", "", "post title")
	postCreateCmd.Flags().String("content", "", "post content (HTML)")
	postCreateCmd.Flags().String("content-file", "", "read content from a file, - for stdin")
	postCreateCmd.Flags().StringSliceP("category", "c", nil, "category id or name (repeatable)")
	postCreateCmd.Flags().String("image", "", "path to a JPEG or PNG image")
}

func runPostShow(cmd *cobra.Command, args []string) error {
	post := application.Post(args[0])
	if err := post.Load(cmd.Context()); err != nil {
		return output.FromError("loading post failed", err)
	}
	if err := renderPost(post.Snapshot()); err != nil {
		return err
	}
	printer.PrintHints("post show")
	return nil
}

func runPostCreate(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	content, _ := cmd.Flags().GetString("content")
	contentFile, _ := cmd.Flags().GetString("content-file")
	refs, _ := cmd.Flags().GetStringSlice("category")
	imagePath, _ := cmd.Flags().GetString("image")

	if contentFile != "" {
		if content != "" {
			return usageError(errors.New("--content and --content-file are mutually exclusive"))
		}
		var err error
		if content, err = readContent(cmd.InOrStdin(), contentFile); err != nil {
			return usageError(err)
		}
	}

	composer, err := application.Composer()
	if err != nil {
		return err
	}
	composer.SetTitle(title)
	composer.SetContent(content)

	cats, err := resolveCategories(cmd, "category", refs)
	if err != nil {
		return output.FromError("post not created", err)
	}
	for _, c := range cats {
		composer.AddCategory(c)
	}

	if imagePath != "" {
		img, err := compose.LoadImage(imagePath)
		if err != nil {
			return usageError(err)
		}
		composer.SetImage(img)
	}

	postID, err := composer.Submit(cmd.Context())
	if err != nil {
		return output.FromError("post not created", err)
	}

	if ok, err := printer.Encode(map[string]string{"postId": postID}); ok {
		return err
	}
	printer.Success("Post %s created", printer.Bold(postID))
	printer.PrintHints("post create")
	return nil
}

func readContent(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return string(data), nil
}

func runLike(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	post := application.Post(args[0])
	if err := post.Load(ctx); err != nil {
		return output.FromError("like failed", err)
	}

	res, err := post.ToggleLike(ctx)
	if err != nil {
		return output.FromError("like failed", err)
	}
	state, err := res.Wait(ctx)
	if err != nil {
		return output.FromError("like failed", err)
	}

	// The server's own count wins over the optimistic one when it can be read.
	if err := post.Reconcile(ctx); err != nil {
		application.Logger.WarnContext(ctx, "like status check failed", "post_id", args[0], "error", err)
	} else if d, ok := post.Detail(); ok {
		state = toggle.State{Active: d.ViewerHasLiked, Count: d.LikeCount}
	}
	return renderToggle(args[0], state, printer.LikeMark)
}

func runComment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.Join(args[1:], " ")

	post := application.Post(args[0])
	if err := post.Load(ctx); err != nil {
		return output.FromError("comment failed", err)
	}
	if _, err := post.AddComment(ctx, text); err != nil {
		return output.FromError("comment failed", err)
	}

	snap := post.Snapshot()
	if ok, err := printer.Encode(snap); ok {
		return err
	}
	printer.Success("Comment added to %s (%d comments)", args[0], snap.Post.CommentCount)
	return nil
}
