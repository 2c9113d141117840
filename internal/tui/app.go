// internal/tui/app.go
//
// This is the progress view shown while a run types posts into the editor.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the run state mirrored from automation events
// 2. Update: folds each event (or key press) into the model
// 3. View: renders the post list, progress bar and log tail
//
// Events arrive on a channel fed by the runner goroutine; the model reads one
// event per command so bubbletea stays in charge of scheduling.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/postscribe/internal/automation"
)

const logTailLines = 6

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	logBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

type eventMsg automation.Event

type eventsClosedMsg struct{}

type postRow struct {
	id      int
	title   string
	status  automation.PostStatus
	err     string
	current bool
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithCancel is called when the user asks to stop a run in progress.
func WithCancel(cancel func()) AppOption {
	return func(a *App) {
		a.cancel = cancel
	}
}

// WithLogTail lets the view show the latest automation log lines.
func WithLogTail(tail func(int) ([]string, int)) AppOption {
	return func(a *App) {
		a.logTail = tail
	}
}

// App is the bubbletea model for a run.
type App struct {
	events  <-chan automation.Event
	cancel  func()
	logTail func(int) ([]string, int)

	spinner  spinner.Model
	progress progress.Model

	phase      string
	total      int
	done       int
	rows       []postRow
	report     *automation.Report
	cancelling bool
	closed     bool
	width      int
}

// NewApp creates the model reading from events.
func NewApp(events <-chan automation.Event, opts ...AppOption) *App {
	app := &App{
		events:   events,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient()),
		phase:    "starting",
		width:    80,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Report returns the final report once the run has finished.
func (a *App) Report() *automation.Report {
	return a.report
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.waitForEvent())
}

func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if a.closed {
				return a, tea.Quit
			}
			if !a.cancelling && a.cancel != nil {
				a.cancelling = true
				a.phase = "stopping after the current post"
				a.cancel()
			}
		}
		return a, nil

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.progress.Width = max(10, msg.Width-12)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case eventMsg:
		a.apply(automation.Event(msg))
		return a, a.waitForEvent()

	case eventsClosedMsg:
		a.closed = true
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) apply(ev automation.Event) {
	switch ev.Kind {
	case automation.EventFetching:
		a.phase = "fetching posts"
	case automation.EventFetched:
		a.total = ev.Total
		a.phase = fmt.Sprintf("fetched %d posts", ev.Total)
	case automation.EventLaunching:
		a.phase = "launching editor"
	case automation.EventLaunched:
		a.phase = "editor ready"
	case automation.EventPostStarted:
		a.total = ev.Total
		a.phase = fmt.Sprintf("typing post %d (%d/%d)", ev.Post.ID, ev.Index+1, ev.Total)
		a.setRow(postRow{id: ev.Post.ID, title: ev.Post.Title, current: true})
	case automation.EventPostFinished:
		row := postRow{id: ev.Post.ID, title: ev.Post.Title}
		if ev.Outcome != nil {
			row.status = ev.Outcome.Status
			row.err = ev.Outcome.Error
		}
		a.setRow(row)
		a.done++
	case automation.EventRunFinished:
		a.report = ev.Report
		if ev.Report != nil {
			a.phase = ev.Report.Summary()
		}
	}
}

func (a *App) setRow(row postRow) {
	for i := range a.rows {
		if a.rows[i].id == row.id {
			a.rows[i] = row
			return
		}
	}
	a.rows = append(a.rows, row)
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("postscribe"))
	b.WriteString("\n\n")

	if a.report == nil {
		b.WriteString(a.spinner.View() + " " + a.phase)
	} else if a.report.ExitCode() == 0 {
		b.WriteString(okStyle.Render(a.phase))
	} else {
		b.WriteString(failStyle.Render(a.phase))
	}
	b.WriteString("\n\n")

	if a.total > 0 {
		b.WriteString(a.progress.ViewAs(float64(a.done) / float64(a.total)))
		b.WriteString(fmt.Sprintf(" %d/%d\n\n", a.done, a.total))
	}

	for _, row := range a.rows {
		b.WriteString(renderRow(row))
		b.WriteString("\n")
	}

	if a.logTail != nil {
		if lines, _ := a.logTail(logTailLines); len(lines) > 0 {
			b.WriteString("\n")
			b.WriteString(logBox.Width(max(20, a.width-4)).Render(mutedStyle.Render(strings.Join(lines, "\n"))))
			b.WriteString("\n")
		}
	}

	footer := "q: stop after the current post"
	if a.closed || a.report != nil {
		footer = "q: quit"
	}
	b.WriteString("\n" + mutedStyle.Render(footer))
	return b.String()
}

func renderRow(row postRow) string {
	label := fmt.Sprintf("post %d", row.id)
	switch {
	case row.current:
		return fmt.Sprintf("  … %-9s %s", label, row.title)
	case row.status == automation.PostSaved:
		return okStyle.Render(fmt.Sprintf("  ✓ %-9s %s", label, row.title))
	case row.status == automation.PostSaveFailed:
		return failStyle.Render(fmt.Sprintf("  ✗ %-9s %s", label, row.err))
	default:
		return mutedStyle.Render(fmt.Sprintf("  - %-9s skipped", label))
	}
}
