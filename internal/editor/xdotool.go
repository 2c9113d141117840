package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type xdotoolLauncher struct {
	opts Options
}

// NewXdotool returns a launcher that starts a GUI editor on the current X11
// display and drives it with xdotool.
func NewXdotool(opts Options) Launcher {
	return &xdotoolLauncher{opts: opts.withDefaults(BackendXdotool)}
}

func (l *xdotoolLauncher) Launch(ctx context.Context) (Session, error) {
	if len(l.opts.Command) == 0 {
		return nil, &LaunchError{Backend: BackendXdotool, Err: errors.New("editor command is empty")}
	}
	proc, err := l.opts.Start(l.opts.Command[0], l.opts.Command[1:]...)
	if err != nil {
		return nil, &LaunchError{Backend: BackendXdotool, Err: fmt.Errorf("start %s: %w", l.opts.Command[0], err)}
	}
	s := &xdotoolSession{opts: l.opts, proc: proc}
	l.opts.Logf("editor process %d started: %s", proc.Pid(), strings.Join(l.opts.Command, " "))

	window, err := s.findWindow(ctx)
	if err != nil {
		s.kill()
		return nil, &LaunchError{Backend: BackendXdotool, Err: err}
	}
	s.window = window
	if err := s.activate(ctx); err != nil {
		s.kill()
		return nil, &LaunchError{Backend: BackendXdotool, Err: err}
	}
	if err := s.send(ctx, s.opts.Keymap.Setup, keyData{}); err != nil {
		s.kill()
		return nil, &LaunchError{Backend: BackendXdotool, Err: fmt.Errorf("setup keys: %w", err)}
	}
	return s, nil
}

type xdotoolSession struct {
	opts   Options
	proc   Process
	window string
}

func (s *xdotoolSession) findWindow(ctx context.Context) (string, error) {
	pid := strconv.Itoa(s.proc.Pid())
	var window string
	err := poll(ctx, s.opts.PollInterval, s.opts.ReadyTimeout, func() (bool, error) {
		// search exits non-zero while no window matches yet.
		out, err := s.opts.Run(ctx, "xdotool", "search", "--onlyvisible", "--pid", pid)
		if err != nil {
			return false, nil
		}
		fields := strings.Fields(string(out))
		if len(fields) == 0 {
			return false, nil
		}
		window = fields[0]
		return true, nil
	})
	if errors.Is(err, errTimeout) {
		return "", fmt.Errorf("no window for pid %s after %s", pid, s.opts.ReadyTimeout)
	}
	return window, err
}

func (s *xdotoolSession) activate(ctx context.Context) error {
	if _, err := s.opts.Run(ctx, "xdotool", "windowactivate", "--sync", s.window); err != nil {
		return fmt.Errorf("activate window %s: %w", s.window, err)
	}
	return nil
}

func (s *xdotoolSession) activeWindow(ctx context.Context) (string, error) {
	out, err := s.opts.Run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *xdotoolSession) Type(ctx context.Context, text string) error {
	if err := s.typeText(ctx, text); err != nil {
		return &SaveError{Stage: "type", Err: err}
	}
	return nil
}

func (s *xdotoolSession) typeText(ctx context.Context, text string) error {
	km := s.opts.Keymap
	if err := s.activate(ctx); err != nil {
		return err
	}
	if err := s.send(ctx, km.Clear, keyData{}); err != nil {
		return err
	}
	if err := s.send(ctx, km.BeginInsert, keyData{}); err != nil {
		return err
	}
	for i, line := range splitLines(text) {
		if i > 0 {
			if err := s.key(ctx, "Return"); err != nil {
				return err
			}
		}
		if err := s.typeLine(ctx, line); err != nil {
			return err
		}
	}
	return s.send(ctx, km.EndInsert, keyData{})
}

func (s *xdotoolSession) SaveAs(ctx context.Context, path string) error {
	if err := s.saveAs(ctx, path); err != nil {
		return &SaveError{Stage: "save", Path: path, Err: err}
	}
	return nil
}

func (s *xdotoolSession) saveAs(ctx context.Context, path string) error {
	if err := prepareTarget(path); err != nil {
		return err
	}
	km := s.opts.Keymap
	data := newKeyData(path)
	if err := s.activate(ctx); err != nil {
		return err
	}
	if err := s.send(ctx, km.SaveAs, data); err != nil {
		return err
	}
	if len(km.PathEntry) > 0 {
		if err := s.waitForDialog(ctx); err != nil {
			return err
		}
		if err := s.send(ctx, km.PathEntry, data); err != nil {
			return err
		}
	}
	if err := s.send(ctx, km.Confirm, data); err != nil {
		return err
	}
	if err := waitForFile(ctx, path, s.opts.PollInterval, s.opts.SaveTimeout); err != nil {
		return err
	}
	if err := s.activate(ctx); err != nil {
		s.opts.Logf("refocus after save of %s: %v", path, err)
	}
	return nil
}

// waitForDialog polls until a window other than the editor has focus.
func (s *xdotoolSession) waitForDialog(ctx context.Context) error {
	err := poll(ctx, s.opts.PollInterval, s.opts.SaveTimeout, func() (bool, error) {
		active, err := s.activeWindow(ctx)
		if err != nil {
			return false, nil
		}
		return active != "" && active != s.window, nil
	})
	if errors.Is(err, errTimeout) {
		return fmt.Errorf("save dialog did not appear after %s", s.opts.SaveTimeout)
	}
	return err
}

func (s *xdotoolSession) NewDocument(ctx context.Context) error {
	if len(s.opts.Keymap.NewDocument) == 0 {
		return nil
	}
	if err := s.activate(ctx); err != nil {
		return err
	}
	return s.send(ctx, s.opts.Keymap.NewDocument, keyData{})
}

func (s *xdotoolSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	var err error
	if s.window != "" {
		if err = s.activate(ctx); err == nil {
			err = s.send(ctx, s.opts.Keymap.Quit, keyData{})
		}
	}
	s.kill()
	return err
}

func (s *xdotoolSession) kill() {
	if s.proc == nil {
		return
	}
	_ = s.proc.Kill()
	_ = s.proc.Wait()
	s.proc = nil
}

func (s *xdotoolSession) send(ctx context.Context, strokes []Keystroke, data keyData) error {
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
		if err := s.typeLine(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func (s *xdotoolSession) key(ctx context.Context, chord string) error {
	if _, err := s.opts.Run(ctx, "xdotool", "key", "--clearmodifiers", chord); err != nil {
		return fmt.Errorf("key %s: %w", chord, err)
	}
	return sleepCtx(ctx, s.opts.KeyDelay)
}

func (s *xdotoolSession) typeLine(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	args := []string{"type", "--clearmodifiers"}
	if ms := s.opts.KeyDelay.Milliseconds(); ms > 0 {
		args = append(args, "--delay", strconv.FormatInt(ms, 10))
	}
	args = append(args, "--", text)
	if _, err := s.opts.Run(ctx, "xdotool", args...); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	return nil
}
