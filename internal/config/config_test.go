package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/postscribe/internal/editor"
	"github.com/kingrea/postscribe/internal/post"
)

func newTestConfig(t *testing.T, projectDir string, env map[string]string) *Config {
	t.Helper()
	return &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, StateDirName),
		Project:    defaultProjectConfig(),
		home:       "/home/ada",
		getenv:     func(k string) string { return env[k] },
	}
}

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	stateDir := filepath.Join(projectDir, StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	c := newTestConfig(t, t.TempDir(), nil)
	if err := c.load(); err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if c.Project.Source.Count != 10 {
		t.Fatalf("expected default count 10, got %d", c.Project.Source.Count)
	}
	if c.OutputDir() != "/home/ada/Desktop/tjm-project" {
		t.Fatalf("unexpected output dir %s", c.OutputDir())
	}
	if c.Project.Editor.Backend != editor.BackendTmux {
		t.Fatalf("expected tmux backend, got %s", c.Project.Editor.Backend)
	}
	if c.Project.Output.Format != post.FormatPlain {
		t.Fatalf("expected plain format, got %s", c.Project.Output.Format)
	}
}

func TestInitDirWritesLoadableDefaults(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	for _, dir := range []string{"logs", "reports"} {
		if _, err := os.Stat(filepath.Join(projectDir, StateDirName, dir)); err != nil {
			t.Fatalf("expected %s dir: %v", dir, err)
		}
	}
	c := newTestConfig(t, projectDir, nil)
	if err := c.load(); err != nil {
		t.Fatalf("default config must load: %v", err)
	}
	if c.Project.Timing.KeyDelay != 20*time.Millisecond {
		t.Fatalf("expected key delay 20ms, got %s", c.Project.Timing.KeyDelay)
	}
	if c.Project.Interface != InterfaceAuto {
		t.Fatalf("expected auto interface, got %s", c.Project.Interface)
	}

	// A second InitDir must not clobber user edits.
	writeConfig(t, projectDir, "version: 1\nsource:\n  count: 3\n")
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("InitDir again: %v", err)
	}
	data, _ := os.ReadFile(c.ProjectConfigPath())
	if !strings.Contains(string(data), "count: 3") {
		t.Fatalf("config was overwritten: %s", data)
	}
}

func TestLoadParsesYamlAndResolvesPaths(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
source:
  url: http://localhost:9000/posts
  count: 5
  timeout: 2s
output:
  dir: out/posts
  format: BLOG
editor:
  backend: xdotool
  command: [gedit, --new-window]
  keymap:
    quit:
      - key: ctrl+w
timing:
  ready_timeout: 1m
  poll_interval: 50ms
interface: plain
`)
	c := newTestConfig(t, projectDir, nil)
	if err := c.load(); err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	p := c.Project
	if p.Source.URL != "http://localhost:9000/posts" || p.Source.Count != 5 || p.Source.Timeout != 2*time.Second {
		t.Fatalf("unexpected source: %+v", p.Source)
	}
	if c.OutputDir() != filepath.Join(projectDir, "out", "posts") {
		t.Fatalf("expected relative dir resolved against project, got %s", c.OutputDir())
	}
	if p.Output.Format != post.FormatBlog {
		t.Fatalf("expected blog format, got %s", p.Output.Format)
	}
	opts := c.EditorOptions()
	if strings.Join(opts.Command, " ") != "gedit --new-window" {
		t.Fatalf("unexpected command %v", opts.Command)
	}
	if len(opts.Keymap.Quit) != 1 || opts.Keymap.Quit[0].Key != "ctrl+w" {
		t.Fatalf("unexpected keymap override %+v", opts.Keymap.Quit)
	}
	if opts.ReadyTimeout != time.Minute || opts.PollInterval != 50*time.Millisecond {
		t.Fatalf("unexpected timing %+v", opts)
	}
	if opts.SaveTimeout != 10*time.Second {
		t.Fatalf("expected default save timeout, got %s", opts.SaveTimeout)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"POSTSCRIBE_SOURCE_URL":     "https://example.test/posts",
		"POSTSCRIBE_OUTPUT_DIR":     "~/notes",
		"POSTSCRIBE_EDITOR_BACKEND": "XDOTOOL",
	}
	c := newTestConfig(t, t.TempDir(), env)
	if err := c.load(); err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if c.Project.Source.URL != "https://example.test/posts" {
		t.Fatalf("url override ignored: %s", c.Project.Source.URL)
	}
	if c.OutputDir() != "/home/ada/notes" {
		t.Fatalf("dir override ignored: %s", c.OutputDir())
	}
	if c.Project.Editor.Backend != editor.BackendXdotool {
		t.Fatalf("backend override ignored: %s", c.Project.Editor.Backend)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad backend":   "editor:\n  backend: applescript\n",
		"bad format":    "output:\n  format: markdown\n",
		"bad url":       "source:\n  url: ftp://example.test\n",
		"bad count":     "source:\n  count: -1\n",
		"bad interface": "interface: gui\n",
		"bad keymap":    "editor:\n  keymap:\n    quit:\n      - key: a\n        text: b\n",
		"bad yaml":      "source: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			projectDir := t.TempDir()
			writeConfig(t, projectDir, body)
			c := newTestConfig(t, projectDir, nil)
			if err := c.load(); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}
