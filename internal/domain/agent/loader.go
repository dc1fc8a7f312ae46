package agent

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// overlayFile is the agents.yaml document shape.
type overlayFile struct {
	Agents []Definition `yaml:"agents"`
}

// LoadTable builds the agent table from the builtins plus the optional
// overlay file. A missing file yields the builtin table; a malformed file
// is an error so a typo never silently drops an operator's definitions.
func LoadTable(file string) (*Table, error) {
	table := Builtin()
	if file == "" {
		return table, nil
	}

	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent definitions %s: %w", file, err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse agent definitions %s: %w", file, err)
	}

	for i, def := range overlay.Agents {
		if def.Type == "" {
			return nil, fmt.Errorf("agent definitions %s: entry %d has no type", file, i)
		}
		table.merge(def)
	}
	return table, nil
}

// merge overlays def onto an existing entry of the same type, or appends a
// new entry. Scalar fields and lists replace only when set; env vars merge
// key by key.
func (t *Table) merge(def Definition) {
	existing, ok := t.defs[def.Type]
	if !ok {
		if def.DisplayName == "" {
			def.DisplayName = string(def.Type)
		}
		t.put(def)
		return
	}

	if def.DisplayName != "" {
		existing.DisplayName = def.DisplayName
	}
	if def.Icon != "" {
		existing.Icon = def.Icon
	}
	if def.Color != "" {
		existing.Color = def.Color
	}
	if len(def.Executables) > 0 {
		existing.Executables = def.Executables
	}
	if def.DefaultArgs != nil {
		existing.DefaultArgs = def.DefaultArgs
	}
	if len(def.Env) > 0 {
		if existing.Env == nil {
			existing.Env = make(map[string]string, len(def.Env))
		}
		for k, v := range def.Env {
			existing.Env[k] = v
		}
	}
	existing.TerminalBased = existing.TerminalBased || def.TerminalBased
	existing.SendCursorReport = existing.SendCursorReport || def.SendCursorReport
	t.put(existing)
}
