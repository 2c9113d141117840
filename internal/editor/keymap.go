package editor

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Keystroke is either a named key (tmux key name or xdotool chord such as
// "ctrl+shift+s") or literal text. Text may reference {{.Path}} and
// {{.EscapedPath}} in save sequences.
type Keystroke struct {
	Key  string `yaml:"key,omitempty"`
	Text string `yaml:"text,omitempty"`
}

func (k Keystroke) validate() error {
	hasKey := strings.TrimSpace(k.Key) != ""
	hasText := k.Text != ""
	switch {
	case hasKey && hasText:
		return fmt.Errorf("keystroke sets both key %q and text", k.Key)
	case !hasKey && !hasText:
		return fmt.Errorf("keystroke needs key or text")
	}
	return nil
}

// Keymap lists the key sequences that make up each editor interaction.
type Keymap struct {
	Setup       []Keystroke `yaml:"setup,omitempty"`
	Clear       []Keystroke `yaml:"clear,omitempty"`
	BeginInsert []Keystroke `yaml:"begin_insert,omitempty"`
	EndInsert   []Keystroke `yaml:"end_insert,omitempty"`
	SaveAs      []Keystroke `yaml:"save_as,omitempty"`
	// PathEntry is sent once a save dialog has taken focus.
	PathEntry   []Keystroke `yaml:"path_entry,omitempty"`
	Confirm     []Keystroke `yaml:"confirm,omitempty"`
	NewDocument []Keystroke `yaml:"new_document,omitempty"`
	Quit        []Keystroke `yaml:"quit,omitempty"`
}

// Merge returns k with every non-empty sequence of override applied.
func (k Keymap) Merge(override Keymap) Keymap {
	pick := func(base, over []Keystroke) []Keystroke {
		if len(over) > 0 {
			return append([]Keystroke(nil), over...)
		}
		return base
	}
	return Keymap{
		Setup:       pick(k.Setup, override.Setup),
		Clear:       pick(k.Clear, override.Clear),
		BeginInsert: pick(k.BeginInsert, override.BeginInsert),
		EndInsert:   pick(k.EndInsert, override.EndInsert),
		SaveAs:      pick(k.SaveAs, override.SaveAs),
		PathEntry:   pick(k.PathEntry, override.PathEntry),
		Confirm:     pick(k.Confirm, override.Confirm),
		NewDocument: pick(k.NewDocument, override.NewDocument),
		Quit:        pick(k.Quit, override.Quit),
	}
}

// Validate checks every keystroke in the map.
func (k Keymap) Validate() error {
	groups := map[string][]Keystroke{
		"setup":        k.Setup,
		"clear":        k.Clear,
		"begin_insert": k.BeginInsert,
		"end_insert":   k.EndInsert,
		"save_as":      k.SaveAs,
		"path_entry":   k.PathEntry,
		"confirm":      k.Confirm,
		"new_document": k.NewDocument,
		"quit":         k.Quit,
	}
	for name, strokes := range groups {
		for i, stroke := range strokes {
			if err := stroke.validate(); err != nil {
				return fmt.Errorf("keymap %s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

// DefaultKeymap returns the built-in sequences for a backend. The tmux map
// targets vim; the xdotool map targets GTK editors such as mousepad or gedit.
func DefaultKeymap(backend string) Keymap {
	if backend == BackendXdotool {
		return Keymap{
			Clear:       []Keystroke{{Key: "ctrl+a"}, {Key: "Delete"}},
			SaveAs:      []Keystroke{{Key: "ctrl+shift+s"}},
			PathEntry:   []Keystroke{{Key: "ctrl+a"}, {Text: "{{.Path}}"}},
			Confirm:     []Keystroke{{Key: "Return"}},
			NewDocument: []Keystroke{{Key: "ctrl+n"}},
			Quit:        []Keystroke{{Key: "ctrl+q"}},
		}
	}
	return Keymap{
		Setup:       []Keystroke{{Text: ":set paste ttimeoutlen=10"}, {Key: "Enter"}},
		Clear:       []Keystroke{{Key: "Escape"}, {Text: ":%d _"}, {Key: "Enter"}},
		BeginInsert: []Keystroke{{Text: "i"}},
		EndInsert:   []Keystroke{{Key: "Escape"}},
		SaveAs:      []Keystroke{{Key: "Escape"}, {Text: ":saveas! {{.EscapedPath}}"}, {Key: "Enter"}},
		NewDocument: []Keystroke{{Key: "Escape"}, {Text: ":enew!"}, {Key: "Enter"}},
		Quit:        []Keystroke{{Key: "Escape"}, {Text: ":qa!"}, {Key: "Enter"}},
	}
}

type keyData struct {
	Path        string
	EscapedPath string
}

func newKeyData(path string) keyData {
	return keyData{Path: path, EscapedPath: escapeVimPath(path)}
}

func renderText(text string, data keyData) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("keystroke").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse keystroke %q: %w", text, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render keystroke %q: %w", text, err)
	}
	return buf.String(), nil
}

// escapeVimPath escapes a path for use on a vim command line, matching the
// character set of vim's fnameescape().
func escapeVimPath(path string) string {
	const special = " \t\n*?[{`$\\%#'\"|!<"
	var b strings.Builder
	for _, r := range path {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
