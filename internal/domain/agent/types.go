package agent

import (
	"fmt"
	"sort"
	"strings"
)

// Type identifies an agent CLI variant. The canonical forms are the ones
// the frontend and the session records serialize.
type Type string

const (
	ClaudeCode Type = "ClaudeCode"
	Codex      Type = "Codex"
	Custom     Type = "Custom"
)

// Definition describes one agent variant: display metadata for the UI,
// how to locate and launch the CLI, and the terminal quirks it needs.
type Definition struct {
	Type        Type              `json:"type" yaml:"type"`
	DisplayName string            `json:"displayName" yaml:"display_name"`
	Icon        string            `json:"icon" yaml:"icon"`
	Color       string            `json:"color" yaml:"color"`
	Executables []string          `json:"executables" yaml:"executables"`
	DefaultArgs []string          `json:"defaultArgs" yaml:"default_args"`
	Env         map[string]string `json:"env,omitempty" yaml:"env"`

	// TerminalBased marks CLIs that render a full interactive terminal UI.
	TerminalBased bool `json:"terminalBased" yaml:"terminal_based"`

	// SendCursorReport requests a synthetic cursor-position reply shortly
	// after spawn, for CLIs that query the cursor on startup and stall
	// until the terminal answers.
	SendCursorReport bool `json:"sendCursorReport" yaml:"send_cursor_report"`
}

// DefaultExecutable returns the preferred executable name.
func (d Definition) DefaultExecutable() string {
	if len(d.Executables) == 0 {
		return ""
	}
	return d.Executables[0]
}

// builtins returns the compiled-in agent table.
func builtins() []Definition {
	return []Definition{
		{
			Type:          ClaudeCode,
			DisplayName:   "Claude Code",
			Icon:          "brain",
			Color:         "purple",
			Executables:   []string{"claude", "claude-code", "claude_code"},
			TerminalBased: true,
		},
		{
			Type:        Codex,
			DisplayName: "Codex",
			Icon:        "code",
			Color:       "green",
			Executables: []string{"codex", "openai-codex"},
			DefaultArgs: []string{"--no-alt-screen"},
			Env: map[string]string{
				"NO_COLOR":                   "0",
				"CODEX_DISABLE_CURSOR_QUERY": "1",
			},
			TerminalBased:    true,
			SendCursorReport: true,
		},
		{
			Type:        Custom,
			DisplayName: "Custom Agent",
			Icon:        "cpu",
			Color:       "blue",
			Executables: []string{"agent"},
		},
	}
}

// Table holds the agent definitions. Built once at startup and read-only
// afterwards; safe for concurrent use.
type Table struct {
	defs    map[Type]Definition
	aliases map[string]Type
	order   []Type
}

// Builtin returns a table with only the compiled-in definitions.
func Builtin() *Table {
	t := &Table{
		defs:    make(map[Type]Definition),
		aliases: make(map[string]Type),
	}
	for _, def := range builtins() {
		t.put(def)
	}
	return t
}

func (t *Table) put(def Definition) {
	if _, exists := t.defs[def.Type]; !exists {
		t.order = append(t.order, def.Type)
	}
	t.defs[def.Type] = def
	t.aliases[normalize(string(def.Type))] = def.Type
	t.aliases[normalize(def.DisplayName)] = def.Type
	for _, name := range def.Executables {
		if _, taken := t.aliases[normalize(name)]; !taken {
			t.aliases[normalize(name)] = def.Type
		}
	}
}

// Lookup returns the definition for a type.
func (t *Table) Lookup(typ Type) (Definition, bool) {
	def, ok := t.defs[typ]
	return def, ok
}

// Parse maps a raw agent-type string to a known type. Accepts the
// canonical form, display names, and executable names, all
// case-insensitively and ignoring separator style ("claude-code",
// "claude_code", "Claude Code" are equivalent).
func (t *Table) Parse(raw string) (Type, error) {
	if typ, ok := t.aliases[normalize(raw)]; ok {
		return typ, nil
	}
	return "", fmt.Errorf("unknown agent type %q", raw)
}

// Definitions returns all definitions in stable order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, 0, len(t.order))
	for _, typ := range t.order {
		out = append(out, t.defs[typ])
	}
	return out
}

// Types returns the known type names, sorted.
func (t *Table) Types() []string {
	out := make([]string, 0, len(t.defs))
	for typ := range t.defs {
		out = append(out, string(typ))
	}
	sort.Strings(out)
	return out
}

// normalize lowercases and strips separator characters so alias matching
// ignores spacing and hyphen/underscore style.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '-', '_':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
