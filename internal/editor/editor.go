// Package editor drives a native text editor through synthetic keyboard input.
//
// A Launcher starts one editor instance and returns a Session once the editor
// is ready to receive input. The session types text, runs the editor's
// "save as" interaction and opens fresh documents between posts. Two backends
// ship with the package:
//
//   - tmux: a terminal editor in a detached tmux window, fed with send-keys.
//   - xdotool: a GUI editor on an X11 display, fed with xdotool key/type.
//
// Readiness is detected by polling (pane command, visible window, active
// window, file on disk) instead of fixed sleeps.
package editor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	BackendTmux    = "tmux"
	BackendXdotool = "xdotool"

	defaultReadyTimeout = 15 * time.Second
	defaultSaveTimeout  = 10 * time.Second
	defaultPollInterval = 200 * time.Millisecond
)

// Session is one running editor instance.
type Session interface {
	// Type reproduces text verbatim, newlines included, replacing whatever the
	// current document holds.
	Type(ctx context.Context, text string) error
	// SaveAs runs the save-as interaction and waits until path exists.
	SaveAs(ctx context.Context, path string) error
	// NewDocument discards the current buffer and starts an empty one.
	NewDocument(ctx context.Context) error
	// Close quits the editor and releases its window.
	Close() error
}

// Launcher starts an editor and waits for it to become ready.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Options configures a backend.
type Options struct {
	// Command is the editor argv. Empty selects the backend default.
	Command []string
	// Keymap overrides individual key sequences of the backend default.
	Keymap Keymap

	ReadyTimeout time.Duration
	SaveTimeout  time.Duration
	PollInterval time.Duration
	// KeyDelay is slept between keystroke batches; xdotool also uses it as
	// the per-key typing delay.
	KeyDelay time.Duration

	Run   CommandRunner
	Start ProcessStarter
	Logf  func(format string, args ...any)
}

func (o Options) withDefaults(backend string) Options {
	if len(o.Command) == 0 {
		o.Command = DefaultCommand(backend)
	}
	o.Keymap = DefaultKeymap(backend).Merge(o.Keymap)
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = defaultSaveTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Run == nil {
		o.Run = ExecRunner
	}
	if o.Start == nil {
		o.Start = ExecStarter
	}
	if o.Logf == nil {
		o.Logf = func(string, ...any) {}
	}
	return o
}

// DefaultCommand returns the editor argv used when none is configured.
func DefaultCommand(backend string) []string {
	switch backend {
	case BackendXdotool:
		return []string{"mousepad"}
	default:
		return []string{"vim", "-N", "-n", "-u", "NONE", "-i", "NONE"}
	}
}

// commandName is the process name the editor reports once running.
func commandName(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	name := strings.TrimSpace(argv[0])
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func windowName(now time.Time) string {
	return fmt.Sprintf("postscribe-%d", now.UnixNano())
}
