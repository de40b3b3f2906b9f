// Package output renders bloggera command results to the terminal
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode selects when colors are used
type ColorMode int

const (
	// ColorAuto follows NO_COLOR, TERM and the configured default
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on
	ColorAlways
	// ColorNever forces colors off
	ColorNever
)

// Format selects how structured results are written
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// PrinterOptions configures a Printer
type PrinterOptions struct {
	ColorMode    ColorMode
	ConfigColors bool // output.colors from .bloggera.yaml
	Quiet        bool
	Format       Format
	Out          io.Writer // defaults to os.Stdout
	Err          io.Writer // defaults to os.Stderr
}

// Printer writes human and machine output
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
	format    Format
}

// ParseColorMode parses auto, always or never
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ParseFormat parses table, json or yaml
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return FormatTable, fmt.Errorf("invalid output format %q: must be table, json, or yaml", s)
	}
}

// ResolveColors decides whether to emit ANSI colors
func ResolveColors(mode ColorMode, configColors bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return configColors
	}
}

// NewPrinter creates a printer from options
func NewPrinter(opts PrinterOptions) *Printer {
	p := &Printer{
		out:       opts.Out,
		err:       opts.Err,
		useColors: ResolveColors(opts.ColorMode, opts.ConfigColors),
		quiet:     opts.Quiet,
		format:    opts.Format,
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.err == nil {
		p.err = os.Stderr
	}
	if p.format == "" {
		p.format = FormatTable
	}
	return p
}

// Out returns the primary writer
func (p *Printer) Out() io.Writer {
	return p.out
}

// Format returns the configured structured output format
func (p *Printer) Format() Format {
	return p.format
}

// IsQuiet reports whether informational output is suppressed
func (p *Printer) IsQuiet() bool {
	return p.quiet
}

// Info prints an informational line
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a confirmation line
func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

// Warning prints to stderr
func (p *Printer) Warning(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

// Error prints to stderr, even in quiet mode
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Print prints a plain line
func (p *Printer) Print(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints an underlined section title
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	width := len([]rune(title))
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", strings.Repeat("─", width))
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", width))
}

// LikeMark renders the viewer's like state
func (p *Printer) LikeMark(liked bool) string {
	if !p.useColors {
		if liked {
			return "[liked]"
		}
		return "[ ]"
	}
	if liked {
		return color.RedString("♥")
	}
	return color.WhiteString("♡")
}

// FollowMark renders the viewer's follow state
func (p *Printer) FollowMark(following bool) string {
	label := "not following"
	if following {
		label = "following"
	}
	if !p.useColors {
		return "[" + label + "]"
	}
	if following {
		return color.GreenString(label)
	}
	return color.WhiteString(label)
}

// Bold returns text in bold
func (p *Printer) Bold(text string) string {
	if p.useColors {
		return color.New(color.Bold).Sprint(text)
	}
	return text
}

// Dim returns dimmed text
func (p *Printer) Dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}
