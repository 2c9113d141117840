// cmd/postscribe/main.go
//
// This is the entry point for the postscribe CLI.
// When you run `postscribe` from any directory, this is what executes.
//
// Flow:
// 1. Create .postscribe/ and load its config
// 2. For the tmux backend, make sure we are inside a tmux session (start one
//    and re-run ourselves inside it if not, relaying its exit code)
// 3. Fetch posts, drive the editor, and write the run report

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/postscribe/internal/automation"
	"github.com/kingrea/postscribe/internal/config"
	"github.com/kingrea/postscribe/internal/editor"
	"github.com/kingrea/postscribe/internal/logbook"
	"github.com/kingrea/postscribe/internal/source"
	"github.com/kingrea/postscribe/internal/tui"
)

func main() {
	code := run()
	if path := os.Getenv(exitFileEnv); path != "" {
		if err := writeExitCode(path, code); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording exit code: %v\n", err)
		}
	}
	holdIfRequested()
	os.Exit(code)
}

func run() int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		return 1
	}
	if err := config.InitDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s directory: %v\n", config.StateDirName, err)
		return 1
	}
	cfg, err := config.New(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	// tmux sets TMUX env var when you're inside a session
	if cfg.Project.Editor.Backend == editor.BackendTmux && os.Getenv("TMUX") == "" {
		return startTmuxSession(cwd, cfg.StateDir)
	}

	useTUI := wantTUI(cfg.Project.Interface)
	var mirror io.Writer
	if !useTUI {
		mirror = os.Stderr
	}
	lb, err := logbook.New(cfg.LogPath(), logbook.WithMirror(mirror))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source.New(cfg.Project.Source.URL, cfg.Project.Source.Timeout, source.WithLogger(lb.Info))
	opts := cfg.EditorOptions()
	opts.Logf = lb.Info
	launcher, err := editor.DefaultRegistry().Resolve(cfg.Project.Editor.Backend, opts)
	if err != nil {
		lb.Error("%v", err)
		return 1
	}
	settings := automation.Settings{
		Count:     cfg.Project.Source.Count,
		OutputDir: cfg.OutputDir(),
		Format:    cfg.Project.Output.Format,
		SourceURL: cfg.Project.Source.URL,
		Backend:   cfg.Project.Editor.Backend,
	}

	var report *automation.Report
	if useTUI {
		report, err = runWithTUI(ctx, src, launcher, settings, lb)
	} else {
		report, err = automation.New(src, launcher, settings, automation.WithLogbook(lb)).Run(ctx)
	}
	if report == nil {
		fmt.Fprintf(os.Stderr, "Run aborted: %v\n", err)
		return 1
	}
	if path, saveErr := report.Save(cfg.ReportsDir()); saveErr != nil {
		lb.Warn("%v", saveErr)
	} else {
		lb.Info("report written to %s", path)
	}
	fmt.Println(report.Summary())
	for _, o := range report.Outcomes {
		if o.Status == automation.PostSaved {
			fmt.Printf("  %s (%d bytes)\n", o.File, o.Bytes)
		}
	}
	return report.ExitCode()
}

// runWithTUI runs the automation on one goroutine and the progress view on
// another. The view reads events until the runner closes the channel.
func runWithTUI(ctx context.Context, src source.Fetcher, launcher editor.Launcher, settings automation.Settings, lb *logbook.Logbook) (*automation.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan automation.Event)
	uiDone := make(chan struct{})
	observer := func(ev automation.Event) {
		select {
		case events <- ev:
		case <-uiDone:
		}
	}
	runner := automation.New(src, launcher, settings,
		automation.WithLogbook(lb),
		automation.WithObserver(observer),
	)
	app := tui.NewApp(events, tui.WithCancel(cancel), tui.WithLogTail(lb.Tail))
	program := tea.NewProgram(app)

	var (
		report *automation.Report
		runErr error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(events)
		report, runErr = runner.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		defer close(uiDone)
		_, err := program.Run()
		cancel()
		return err
	})
	if err := g.Wait(); err != nil {
		lb.Warn("tui: %v", err)
	}
	return report, runErr
}

func wantTUI(mode string) bool {
	switch mode {
	case config.InterfaceTUI:
		return true
	case config.InterfacePlain:
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func holdIfRequested() {
	if os.Getenv(holdEnv) == "" {
		return
	}
	fmt.Print("Press Enter to close...")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}
