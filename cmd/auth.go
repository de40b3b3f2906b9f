package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/output"
	"github.com/bloggera/bloggera/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	Long: `Log in to Bloggera. The session is saved so later commands, other
terminals and 'bloggera serve' share it.

Without --password the password is read from the first line of stdin.

Examples:
  bloggera login -u alice -p secret1
  echo secret1 | bloggera login -u alice`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, "login", application.Sessions.Login)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Long: `Register a new Bloggera account, then log in with the same credentials.

Examples:
  bloggera register -u carol -p hunter22`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, "register", application.Sessions.Register)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:         "whoami",
	Short:       "Show the logged-in user",
	Args:        cobra.NoArgs,
	Annotations: guarded(),
	RunE:        runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("username", "u", "", "username")
		c.Flags().StringP("password", "p", "", "password (read from stdin when omitted)")
		_ = c.MarkFlagRequired("username")
	}
}

type authFunc func(ctx context.Context, username, password string) (*domain.Session, error)

func runAuth(cmd *cobra.Command, name string, fn authFunc) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		if password, err = readPassword(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	sess, err := fn(cmd.Context(), username, password)
	if err != nil {
		return output.FromError(name+" failed", err)
	}

	printer.Success("Logged in as %s", printer.Bold(sess.Username))
	printer.PrintHints(name)
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if _, ok := application.Sessions.Current(); !ok {
		printer.Info("Not logged in")
		return nil
	}
	if err := application.Sessions.Logout(cmd.Context()); err != nil {
		return output.FromError("logout failed", err)
	}
	printer.Success("Logged out")
	printer.PrintHints("logout")
	return nil
}

type whoami struct {
	UserID    string `json:"userId" yaml:"userId"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email" yaml:"email"`
	AvatarURL string `json:"profilePicture,omitempty" yaml:"profilePicture,omitempty"`
	Expires   string `json:"expires,omitempty" yaml:"expires,omitempty"`
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sess, err := application.RequireSession(cmd.Context())
	if err != nil {
		return output.FromError("whoami failed", err)
	}

	info := whoami{UserID: sess.UserID, Username: sess.Username, Email: sess.Email, AvatarURL: sess.AvatarURL}
	if claims, err := session.InspectToken(sess.Token); err == nil && !claims.ExpiresAt.IsZero() {
		info.Expires = claims.ExpiresAt.Format("2006-01-02 15:04")
	}

	if ok, err := printer.Encode(info); ok {
		return err
	}

	table := printer.NewTable("FIELD", "VALUE")
	table.AddRow("user", printer.Bold(info.Username))
	table.AddRow("id", info.UserID)
	table.AddRow("email", info.Email)
	if info.Expires != "" {
		table.AddRow("expires", info.Expires)
	}
	return table.Render()
}
