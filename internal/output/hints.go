package output

import (
	"fmt"
	"strings"
)

// CommandHints maps a command to follow-ups worth suggesting
var CommandHints = map[string][]string{
	"login":       {"feed", "whoami"},
	"register":    {"feed", "post create"},
	"logout":      {"login"},
	"feed":        {"feed --pages 2", "post show <id>", "like <id>"},
	"explore":     {"categories", "post show <id>"},
	"categories":  {"explore --category <name>"},
	"post show":   {"like <id>", "comment <id> <text>"},
	"post create": {"feed"},
	"profile":     {"follow <email>"},
}

// PrintHints prints "See also" hints. No-op in quiet mode, for machine formats, or without hints.
func (p *Printer) PrintHints(command string) {
	if p.quiet || p.format != FormatTable {
		return
	}
	hints, ok := CommandHints[command]
	if !ok || len(hints) == 0 {
		return
	}

	cmds := make([]string, len(hints))
	for i, h := range hints {
		cmds[i] = "bloggera " + h
	}
	fmt.Fprintf(p.out, "\nSee also: %s\n", strings.Join(cmds, ", "))
}
