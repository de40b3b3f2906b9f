package output

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Encode writes v as JSON or YAML according to the printer's format.
// It reports false for the table format so the caller renders its own table.
func (p *Printer) Encode(v any) (bool, error) {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("encoding json: %w", err)
		}
		return true, nil
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("encoding yaml: %w", err)
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}
