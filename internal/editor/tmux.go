package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type tmuxLauncher struct {
	opts Options
	now  func() time.Time
}

// NewTmux returns a launcher that runs a terminal editor in a detached tmux
// window of the current session.
func NewTmux(opts Options) Launcher {
	return &tmuxLauncher{opts: opts.withDefaults(BackendTmux), now: time.Now}
}

func (l *tmuxLauncher) Launch(ctx context.Context) (Session, error) {
	if len(l.opts.Command) == 0 {
		return nil, &LaunchError{Backend: BackendTmux, Err: errors.New("editor command is empty")}
	}
	name := windowName(l.now())
	args := []string{"new-window", "-d", "-P", "-F", "#{pane_id}", "-n", name, "--"}
	args = append(args, l.opts.Command...)
	out, err := l.opts.Run(ctx, "tmux", args...)
	if err != nil {
		return nil, &LaunchError{Backend: BackendTmux, Err: fmt.Errorf("new-window: %w", err)}
	}
	pane := strings.TrimSpace(string(out))
	if pane == "" {
		return nil, &LaunchError{Backend: BackendTmux, Err: errors.New("new-window returned no pane id")}
	}
	s := &tmuxSession{opts: l.opts, pane: pane, window: name}
	l.opts.Logf("editor window %s (pane %s) started: %s", name, pane, strings.Join(l.opts.Command, " "))

	if err := s.waitReady(ctx); err != nil {
		s.kill()
		return nil, &LaunchError{Backend: BackendTmux, Err: err}
	}
	if err := s.send(ctx, s.opts.Keymap.Setup, keyData{}); err != nil {
		s.kill()
		return nil, &LaunchError{Backend: BackendTmux, Err: fmt.Errorf("setup keys: %w", err)}
	}
	return s, nil
}

type tmuxSession struct {
	opts   Options
	pane   string
	window string
}

func (s *tmuxSession) waitReady(ctx context.Context) error {
	want := commandName(s.opts.Command)
	err := poll(ctx, s.opts.PollInterval, s.opts.ReadyTimeout, func() (bool, error) {
		out, err := s.opts.Run(ctx, "tmux", "display-message", "-p", "-t", s.pane, "#{pane_current_command}")
		if err != nil {
			return false, fmt.Errorf("pane %s gone: %w", s.pane, err)
		}
		return strings.TrimSpace(string(out)) == want, nil
	})
	if errors.Is(err, errTimeout) {
		return fmt.Errorf("%s not ready after %s", want, s.opts.ReadyTimeout)
	}
	return err
}

func (s *tmuxSession) Type(ctx context.Context, text string) error {
	if err := s.typeText(ctx, text); err != nil {
		return &SaveError{Stage: "type", Err: err}
	}
	return nil
}

func (s *tmuxSession) typeText(ctx context.Context, text string) error {
	km := s.opts.Keymap
	if err := s.send(ctx, km.Clear, keyData{}); err != nil {
		return err
	}
	if err := s.send(ctx, km.BeginInsert, keyData{}); err != nil {
		return err
	}
	// Terminal editors terminate the last line on write, so a trailing
	// newline is left to the editor.
	lines := splitLines(text)
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, line := range lines {
		if i > 0 {
			if err := s.key(ctx, "Enter"); err != nil {
				return err
			}
		}
		if err := s.literal(ctx, line); err != nil {
			return err
		}
	}
	return s.send(ctx, km.EndInsert, keyData{})
}

func (s *tmuxSession) SaveAs(ctx context.Context, path string) error {
	if err := prepareTarget(path); err != nil {
		return &SaveError{Stage: "save", Path: path, Err: err}
	}
	data := newKeyData(path)
	km := s.opts.Keymap
	for _, group := range [][]Keystroke{km.SaveAs, km.PathEntry, km.Confirm} {
		if err := s.send(ctx, group, data); err != nil {
			return &SaveError{Stage: "save", Path: path, Err: err}
		}
	}
	if err := waitForFile(ctx, path, s.opts.PollInterval, s.opts.SaveTimeout); err != nil {
		return &SaveError{Stage: "save", Path: path, Err: err}
	}
	return nil
}

func (s *tmuxSession) NewDocument(ctx context.Context) error {
	return s.send(ctx, s.opts.Keymap.NewDocument, keyData{})
}

func (s *tmuxSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	err := s.send(ctx, s.opts.Keymap.Quit, keyData{})
	s.kill()
	return err
}

func (s *tmuxSession) kill() {
	// The window may already be gone once the editor exits.
	_, _ = s.opts.Run(context.Background(), "tmux", "kill-window", "-t", s.pane)
}

func (s *tmuxSession) send(ctx context.Context, strokes []Keystroke, data keyData) error {
	for _, stroke := range strokes {
		if stroke.Key != "" {
			if err := s.key(ctx, stroke.Key); err != nil {
				return err
			}
			continue
		}
		text, err := renderText(stroke.Text, data)
		if err != nil {
			return err
		}
		if err := s.literal(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func (s *tmuxSession) key(ctx context.Context, key string) error {
	if _, err := s.opts.Run(ctx, "tmux", "send-keys", "-t", s.pane, key); err != nil {
		return fmt.Errorf("send-keys %s: %w", key, err)
	}
	return sleepCtx(ctx, s.opts.KeyDelay)
}

func (s *tmuxSession) literal(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if _, err := s.opts.Run(ctx, "tmux", "send-keys", "-t", s.pane, "-l", "--", tmuxLiteral(text)); err != nil {
		return fmt.Errorf("send-keys -l: %w", err)
	}
	return sleepCtx(ctx, s.opts.KeyDelay)
}

// tmuxLiteral escapes a trailing semicolon, which tmux would otherwise treat
// as a command separator.
func tmuxLiteral(text string) string {
	if strings.HasSuffix(text, ";") {
		return text[:len(text)-1] + `\;`
	}
	return text
}
