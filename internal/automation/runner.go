// Package automation runs the fetch, launch, type and save sequence and
// collects a per-post outcome for every fetched post.
package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/postscribe/internal/editor"
	"github.com/kingrea/postscribe/internal/logbook"
	"github.com/kingrea/postscribe/internal/post"
	"github.com/kingrea/postscribe/internal/source"
)

// Settings are the values a run needs from the configuration.
type Settings struct {
	Count     int
	OutputDir string
	Format    post.Format
	SourceURL string
	Backend   string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(r *Runner) {
		r.observer = obs
	}
}

// WithLogbook records progress in lb.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(r *Runner) {
		r.log = lb
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunID overrides run id generation.
func WithRunID(newID func() string) Option {
	return func(r *Runner) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// Runner executes one automation run.
type Runner struct {
	source   source.Fetcher
	launcher editor.Launcher
	settings Settings
	log      *logbook.Logbook
	observer Observer
	now      func() time.Time
	newID    func() string
}

// New wires a runner from its collaborators.
func New(src source.Fetcher, launcher editor.Launcher, settings Settings, opts ...Option) *Runner {
	r := &Runner{
		source:   src,
		launcher: launcher,
		settings: settings,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs the whole sequence. A fetch or launch failure ends the run
// before any file is written and is returned as the error; per-post save
// failures are recorded in the report and do not stop the loop. The report is
// never nil.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     r.newID(),
		Source:    r.settings.SourceURL,
		Backend:   r.settings.Backend,
		OutputDir: r.settings.OutputDir,
		StartedAt: r.now(),
	}
	defer func() {
		report.FinishedAt = r.now()
		r.log.Info("%s", report.Summary())
		r.emit(Event{Kind: EventRunFinished, Report: report})
	}()
	r.log.Info("run %s started: %d posts from %s via %s", report.RunID, r.settings.Count, r.settings.SourceURL, r.settings.Backend)

	r.emit(Event{Kind: EventFetching})
	posts, err := r.source.Fetch(ctx, r.settings.Count)
	if err != nil {
		r.log.Error("fetch failed: %v", err)
		report.fail(failure(ctx, RunFetchFailed), err)
		return report, err
	}
	r.log.Info("fetched %d posts", len(posts))
	r.emit(Event{Kind: EventFetched, Total: len(posts)})

	r.emit(Event{Kind: EventLaunching, Total: len(posts)})
	sess, err := r.launcher.Launch(ctx)
	if err != nil {
		r.log.Error("editor launch failed: %v", err)
		report.fail(failure(ctx, RunLaunchFailed), err)
		return report, err
	}
	// Paths of posts that were attempted but not confirmed. They are removed
	// only once the editor is closed, so a late write cannot leave a file.
	var unconfirmed []string
	defer func() {
		if err := sess.Close(); err != nil {
			r.log.Warn("closing editor: %v", err)
		}
		for _, path := range unconfirmed {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				r.log.Warn("removing unconfirmed %s: %v", path, err)
			}
		}
	}()
	r.log.Info("editor ready")
	r.emit(Event{Kind: EventLaunched, Total: len(posts)})

	for i, p := range posts {
		if ctx.Err() != nil {
			report.Outcomes = append(report.Outcomes, r.skip(p, i, len(posts)))
			continue
		}
		outcome := r.process(ctx, sess, p, i, len(posts))
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Status != PostSaved {
			unconfirmed = append(unconfirmed, filepath.Join(r.settings.OutputDir, p.FileName()))
		}
		if i < len(posts)-1 && ctx.Err() == nil {
			if err := sess.NewDocument(ctx); err != nil {
				r.log.Warn("new document after post %d: %v", p.ID, err)
			}
		}
	}

	switch {
	case ctx.Err() != nil:
		report.fail(RunCancelled, ctx.Err())
		return report, ctx.Err()
	case report.Count(PostSaveFailed) > 0:
		report.Status = RunPartial
	default:
		report.Status = RunOK
	}
	return report, nil
}

func (r *Runner) process(ctx context.Context, sess editor.Session, p post.Post, index, total int) Outcome {
	r.emit(Event{Kind: EventPostStarted, Index: index, Total: total, Post: p})
	path := filepath.Join(r.settings.OutputDir, p.FileName())
	r.log.Info("post %d (%d/%d): %s", p.ID, index+1, total, p.Title)

	outcome := Outcome{PostID: p.ID, Title: p.Title, File: path, Status: PostSaved}
	if err := r.typeAndSave(ctx, sess, p, path); err != nil {
		// A post interrupted by cancellation counts as skipped, not failed.
		if ctx.Err() != nil {
			outcome.Status = PostSkipped
		} else {
			outcome.Status = PostSaveFailed
		}
		outcome.Err = err
		outcome.Error = err.Error()
		outcome.File = ""
		r.log.Error("post %d not saved: %v", p.ID, err)
	} else {
		if info, statErr := os.Stat(path); statErr == nil {
			outcome.Bytes = info.Size()
		}
		r.log.Info("saved %s (%d bytes)", path, outcome.Bytes)
	}
	r.emit(Event{Kind: EventPostFinished, Index: index, Total: total, Post: p, Outcome: &outcome})
	return outcome
}

func (r *Runner) typeAndSave(ctx context.Context, sess editor.Session, p post.Post, path string) error {
	text, err := p.Render(r.settings.Format, r.settings.SourceURL)
	if err != nil {
		return &editor.SaveError{Stage: "render", Path: path, Err: err}
	}
	if err := sess.Type(ctx, text); err != nil {
		return asSaveError("type", path, err)
	}
	if err := sess.SaveAs(ctx, path); err != nil {
		return asSaveError("save", path, err)
	}
	return nil
}

func (r *Runner) skip(p post.Post, index, total int) Outcome {
	outcome := Outcome{PostID: p.ID, Title: p.Title, Status: PostSkipped}
	r.emit(Event{Kind: EventPostFinished, Index: index, Total: total, Post: p, Outcome: &outcome})
	return outcome
}

func (r *Runner) emit(ev Event) {
	if r.observer == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = r.now()
	}
	r.observer(ev)
}

// failure reports a run aborted by cancellation as cancelled rather than as
// the failing step.
func failure(ctx context.Context, status RunStatus) RunStatus {
	if ctx.Err() != nil {
		return RunCancelled
	}
	return status
}

func asSaveError(stage, path string, err error) error {
	var saveErr *editor.SaveError
	if errors.As(err, &saveErr) {
		return err
	}
	return &editor.SaveError{Stage: stage, Path: path, Err: err}
}
