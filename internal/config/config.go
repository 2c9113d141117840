// internal/config/config.go
//
// This package handles configuration and the .postscribe directory structure.
// Every directory postscribe runs in gets a .postscribe/ folder holding the
// config file, the automation log and run reports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/postscribe/internal/editor"
	"github.com/kingrea/postscribe/internal/post"
	"github.com/kingrea/postscribe/internal/source"
)

const (
	// StateDirName is the name of the directory we create in the working directory
	StateDirName = ".postscribe"

	defaultCount     = 10
	defaultOutputDir = "~/Desktop/tjm-project"
)

// Interface modes.
const (
	InterfaceAuto  = "auto"
	InterfacePlain = "plain"
	InterfaceTUI   = "tui"
)

const defaultProjectConfigYAML = `# postscribe configuration
version: 1

source:
  url: https://jsonplaceholder.typicode.com/posts
  count: 10
  timeout: 30s

output:
  # Created if missing. "~" expands to your home directory.
  dir: ~/Desktop/tjm-project
  # plain: title, blank line, body. blog: banner layout with author and source.
  format: plain

editor:
  # tmux drives a terminal editor (vim by default) in a tmux window.
  # xdotool drives a GUI editor (mousepad by default) on an X11 display.
  backend: tmux
  # command: [vim, -N, -n, -u, NONE, -i, NONE]
  # keymap:
  #   quit:
  #     - key: Escape
  #     - text: ":qa!"
  #     - key: Enter

timing:
  ready_timeout: 15s
  save_timeout: 10s
  poll_interval: 200ms
  key_delay: 20ms

# auto picks the TUI when stdout is a terminal.
interface: auto
`

// SourceConfig describes the upstream endpoint.
type SourceConfig struct {
	URL     string        `yaml:"url"`
	Count   int           `yaml:"count"`
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig describes where and how posts are written.
type OutputConfig struct {
	Dir    string      `yaml:"dir"`
	Format post.Format `yaml:"format"`
}

// EditorConfig selects the automation backend and editor.
type EditorConfig struct {
	Backend string        `yaml:"backend"`
	Command []string      `yaml:"command,omitempty"`
	Keymap  editor.Keymap `yaml:"keymap,omitempty"`
}

// TimingConfig bounds every wait on the editor.
type TimingConfig struct {
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	SaveTimeout  time.Duration `yaml:"save_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	KeyDelay     time.Duration `yaml:"key_delay"`
}

// ProjectConfig models .postscribe/config.yaml.
type ProjectConfig struct {
	Version   int          `yaml:"version"`
	Source    SourceConfig `yaml:"source"`
	Output    OutputConfig `yaml:"output"`
	Editor    EditorConfig `yaml:"editor"`
	Timing    TimingConfig `yaml:"timing"`
	Interface string       `yaml:"interface"`
}

// Config holds the runtime configuration for postscribe.
type Config struct {
	// ProjectDir is the directory where the user ran `postscribe` from
	ProjectDir string

	// StateDir is ProjectDir/.postscribe
	StateDir string

	Project ProjectConfig

	home   string
	getenv func(string) string
}

// InitDir creates the .postscribe directory structure in the given directory
// and writes a default config file if none exists.
//
// Structure created:
// .postscribe/
// ├── config.yaml
// ├── logs/      <- automation.log
// └── reports/   <- one YAML report per run
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, StateDirName)
	for _, dir := range []string{
		filepath.Join(stateDir, "logs"),
		filepath.Join(stateDir, "reports"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// New loads .postscribe/config.yaml from projectDir, applies environment
// overrides and validates the result. A missing file yields the defaults.
func New(projectDir string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve home dir: %w", err)
	}
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, StateDirName),
		Project:    defaultProjectConfig(),
		home:       home,
		getenv:     os.Getenv,
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// LogPath returns the automation log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "automation.log")
}

// ReportsDir returns the directory that holds run reports
func (c *Config) ReportsDir() string {
	return filepath.Join(c.StateDir, "reports")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// OutputDir returns the resolved destination directory for saved posts.
func (c *Config) OutputDir() string {
	return c.Project.Output.Dir
}

// EditorOptions converts the editor and timing sections into backend options.
func (c *Config) EditorOptions() editor.Options {
	return editor.Options{
		Command:      append([]string(nil), c.Project.Editor.Command...),
		Keymap:       c.Project.Editor.Keymap,
		ReadyTimeout: c.Project.Timing.ReadyTimeout,
		SaveTimeout:  c.Project.Timing.SaveTimeout,
		PollInterval: c.Project.Timing.PollInterval,
		KeyDelay:     c.Project.Timing.KeyDelay,
	}
}

func (c *Config) load() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var parsed ProjectConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		c.Project = parsed
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	c.Project.applyDefaults()
	c.Project.applyEnv(c.getenv)
	c.Project.normalize(c.ProjectDir, c.home)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Source.URL == "" {
		pc.Source.URL = source.DefaultURL
	}
	if pc.Source.Count == 0 {
		pc.Source.Count = defaultCount
	}
	if pc.Source.Timeout == 0 {
		pc.Source.Timeout = 30 * time.Second
	}
	if pc.Output.Dir == "" {
		pc.Output.Dir = defaultOutputDir
	}
	if pc.Output.Format == "" {
		pc.Output.Format = post.FormatPlain
	}
	if pc.Editor.Backend == "" {
		pc.Editor.Backend = editor.BackendTmux
	}
	if pc.Timing.ReadyTimeout == 0 {
		pc.Timing.ReadyTimeout = 15 * time.Second
	}
	if pc.Timing.SaveTimeout == 0 {
		pc.Timing.SaveTimeout = 10 * time.Second
	}
	if pc.Timing.PollInterval == 0 {
		pc.Timing.PollInterval = 200 * time.Millisecond
	}
	if pc.Interface == "" {
		pc.Interface = InterfaceAuto
	}
}

// applyEnv lets a few settings be overridden without editing the file.
func (pc *ProjectConfig) applyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := strings.TrimSpace(getenv("POSTSCRIBE_SOURCE_URL")); v != "" {
		pc.Source.URL = v
	}
	if v := strings.TrimSpace(getenv("POSTSCRIBE_OUTPUT_DIR")); v != "" {
		pc.Output.Dir = v
	}
	if v := strings.TrimSpace(getenv("POSTSCRIBE_EDITOR_BACKEND")); v != "" {
		pc.Editor.Backend = v
	}
}

func (pc *ProjectConfig) normalize(base, home string) {
	pc.Source.URL = strings.TrimSpace(pc.Source.URL)
	pc.Output.Dir = resolvePath(base, home, pc.Output.Dir)
	pc.Output.Format = post.Format(strings.ToLower(strings.TrimSpace(string(pc.Output.Format))))
	pc.Editor.Backend = strings.ToLower(strings.TrimSpace(pc.Editor.Backend))
	pc.Interface = strings.ToLower(strings.TrimSpace(pc.Interface))
	cmd := pc.Editor.Command[:0]
	for _, arg := range pc.Editor.Command {
		if strings.TrimSpace(arg) != "" {
			cmd = append(cmd, arg)
		}
	}
	pc.Editor.Command = cmd
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if !strings.HasPrefix(pc.Source.URL, "http://") && !strings.HasPrefix(pc.Source.URL, "https://") {
		return fmt.Errorf("source.url must be an http(s) URL, got %q", pc.Source.URL)
	}
	if pc.Source.Count < 1 {
		return fmt.Errorf("source.count must be >= 1")
	}
	if pc.Source.Timeout < 0 {
		return fmt.Errorf("source.timeout must not be negative")
	}
	if !pc.Output.Format.Valid() {
		return fmt.Errorf("output.format must be 'plain' or 'blog'")
	}
	switch pc.Editor.Backend {
	case editor.BackendTmux, editor.BackendXdotool:
	default:
		return fmt.Errorf("editor.backend must be 'tmux' or 'xdotool'")
	}
	if err := pc.Editor.Keymap.Validate(); err != nil {
		return fmt.Errorf("editor.%w", err)
	}
	if pc.Timing.ReadyTimeout < 0 || pc.Timing.SaveTimeout < 0 || pc.Timing.PollInterval < 0 || pc.Timing.KeyDelay < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	switch pc.Interface {
	case InterfaceAuto, InterfacePlain, InterfaceTUI:
	default:
		return fmt.Errorf("interface must be 'auto', 'plain' or 'tui'")
	}
	return nil
}

func resolvePath(base, home, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if trimmed == "~" {
		return filepath.Clean(home)
	}
	if strings.HasPrefix(trimmed, "~/") {
		return filepath.Clean(filepath.Join(home, trimmed[2:]))
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
