package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/postscribe/internal/automation"
	"github.com/kingrea/postscribe/internal/post"
)

func feed(t *testing.T, app *App, events ...automation.Event) {
	t.Helper()
	for _, ev := range events {
		model, cmd := app.Update(eventMsg(ev))
		if cmd == nil {
			t.Fatalf("expected follow-up command after %s", ev.Kind)
		}
		app = model.(*App)
	}
}

func TestAppTracksPostProgress(t *testing.T) {
	app := NewApp(make(chan automation.Event))
	p1 := post.Post{ID: 1, Title: "first"}
	p2 := post.Post{ID: 2, Title: "second"}
	feed(t, app,
		automation.Event{Kind: automation.EventFetching},
		automation.Event{Kind: automation.EventFetched, Total: 2},
		automation.Event{Kind: automation.EventLaunching, Total: 2},
		automation.Event{Kind: automation.EventLaunched, Total: 2},
		automation.Event{Kind: automation.EventPostStarted, Index: 0, Total: 2, Post: p1},
		automation.Event{Kind: automation.EventPostFinished, Index: 0, Total: 2, Post: p1,
			Outcome: &automation.Outcome{PostID: 1, Status: automation.PostSaved}},
		automation.Event{Kind: automation.EventPostStarted, Index: 1, Total: 2, Post: p2},
	)

	if app.done != 1 || app.total != 2 {
		t.Fatalf("done/total = %d/%d, want 1/2", app.done, app.total)
	}
	if len(app.rows) != 2 || !app.rows[1].current {
		t.Fatalf("expected second row in progress, got %+v", app.rows)
	}
	view := app.View()
	for _, want := range []string{"typing post 2 (2/2)", "✓ post 1", "first", "1/2"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestAppShowsFailureAndSummary(t *testing.T) {
	app := NewApp(make(chan automation.Event))
	p := post.Post{ID: 3, Title: "third"}
	report := &automation.Report{RunID: "r1", Status: automation.RunPartial,
		Outcomes: []automation.Outcome{{PostID: 3, Status: automation.PostSaveFailed}}}
	feed(t, app,
		automation.Event{Kind: automation.EventPostFinished, Total: 1, Post: p,
			Outcome: &automation.Outcome{PostID: 3, Status: automation.PostSaveFailed, Error: "editor: save: timed out"}},
		automation.Event{Kind: automation.EventRunFinished, Report: report},
	)
	if app.Report() != report {
		t.Fatalf("expected report to be captured")
	}
	view := app.View()
	if !strings.Contains(view, "✗ post 3") || !strings.Contains(view, "timed out") {
		t.Fatalf("failure row missing:\n%s", view)
	}
	if !strings.Contains(view, "run r1 partial") {
		t.Fatalf("summary missing:\n%s", view)
	}
}

func TestQuitKeyCancelsRunningRun(t *testing.T) {
	cancelled := 0
	app := NewApp(make(chan automation.Event), WithCancel(func() { cancelled++ }))

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cancelled != 1 {
		t.Fatalf("cancel called %d times, want 1", cancelled)
	}
	if !app.cancelling {
		t.Fatalf("expected cancelling state")
	}
}

func TestClosedChannelQuits(t *testing.T) {
	events := make(chan automation.Event)
	close(events)
	app := NewApp(events)

	msg := app.waitForEvent()()
	if _, ok := msg.(eventsClosedMsg); !ok {
		t.Fatalf("expected eventsClosedMsg, got %T", msg)
	}
	_, cmd := app.Update(msg)
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestLogTailIsRendered(t *testing.T) {
	tail := func(n int) ([]string, int) {
		return []string{"2024-01-01T00:00:00Z INFO saved post 1.txt"}, 1
	}
	app := NewApp(make(chan automation.Event), WithLogTail(tail))
	if !strings.Contains(app.View(), "saved post 1.txt") {
		t.Fatalf("log tail missing:\n%s", app.View())
	}
}
