// Package cmd contains all CLI commands for bloggera
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bloggera/bloggera/internal/app"
	"github.com/bloggera/bloggera/internal/config"
	"github.com/bloggera/bloggera/internal/output"
)

// guardedAnnotation marks commands that need a logged-in session
const guardedAnnotation = "guarded"

var (
	cfgFile     string
	verbose     bool
	quiet       bool
	colorFlag   string
	formatFlag  string
	cfg         *config.Config
	application *app.App
	printer     *output.Printer
	version     = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bloggera",
	Short: "Bloggera blogging client",
	Long: `bloggera is a command line client for the Bloggera blogging platform.

It reads the home feed, explores posts by category or text, writes posts,
likes and comments on them, and follows other writers. 'bloggera serve'
starts a local web companion on top of the same session.

Example usage:
  bloggera login -u alice          # Log in and remember the session
  bloggera feed --pages 2          # Show two pages of the home feed
  bloggera explore -c Travel       # Posts in the Travel category
  bloggera post show p12           # Read a post and its comments
  bloggera serve                   # Start the web companion`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initApp(cmd); err != nil {
			return err
		}
		return requireSession(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// Execute runs the command tree, cancelling on SIGINT or SIGTERM, and prints any error.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportError(err)
		_ = closeApp()
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return output.ExitSuccess
	}
	return output.FromError("command failed", err).ExitCode
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .bloggera.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "color output: auto, always, never")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "output", "o", "", "output format: table, json, yaml (default from config)")
}

// initApp loads configuration and builds the shared components.
func initApp(cmd *cobra.Command) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Check .bloggera.yaml and BLOGGERA_* environment variables",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	mode, err := output.ParseColorMode(colorFlag)
	if err != nil {
		return usageError(err)
	}
	format := cfg.Output.Format
	if formatFlag != "" {
		format = formatFlag
	}
	parsed, err := output.ParseFormat(format)
	if err != nil {
		return usageError(err)
	}

	printer = output.NewPrinter(output.PrinterOptions{
		ColorMode:    mode,
		ConfigColors: cfg.Output.Colors,
		Quiet:        quiet,
		Format:       parsed,
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
	})

	application, err = app.New(cmd.Context(), cfg, app.Options{
		Version:   version,
		LogOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return &output.CLIError{Summary: "startup failed", Detail: err.Error(), ExitCode: output.ExitConfigError, Err: err}
	}
	return nil
}

// requireSession is the route guard for CLI commands.
func requireSession(cmd *cobra.Command) error {
	if !isGuarded(cmd) {
		return nil
	}
	if _, err := application.RequireSession(cmd.Context()); err != nil {
		return output.NotLoggedIn()
	}
	return nil
}

func isGuarded(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[guardedAnnotation] == "true" {
			return true
		}
	}
	return false
}

func guarded() map[string]string {
	return map[string]string{guardedAnnotation: "true"}
}

func closeApp() error {
	if application == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := application.Close(ctx)
	application = nil
	return err
}

func usageError(err error) *output.CLIError {
	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError, Err: err}
}

func reportError(err error) {
	p := printer
	if p == nil {
		p = output.NewPrinter(output.PrinterOptions{Out: rootCmd.OutOrStdout(), Err: rootCmd.ErrOrStderr()})
	}
	p.FormatError(output.FromError("command failed", err))
}
