package automation

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	RunOK           RunStatus = "ok"
	RunPartial      RunStatus = "partial"
	RunFetchFailed  RunStatus = "fetch-failed"
	RunLaunchFailed RunStatus = "launch-failed"
	RunCancelled    RunStatus = "cancelled"
)

// PostStatus is the outcome of a single post.
type PostStatus string

const (
	PostSaved      PostStatus = "saved"
	PostSaveFailed PostStatus = "save-failed"
	PostSkipped    PostStatus = "skipped"
)

// Outcome records what happened to one post.
type Outcome struct {
	PostID int        `yaml:"post_id"`
	Title  string     `yaml:"title"`
	File   string     `yaml:"file,omitempty"`
	Bytes  int64      `yaml:"bytes,omitempty"`
	Status PostStatus `yaml:"status"`
	Error  string     `yaml:"error,omitempty"`
	Err    error      `yaml:"-"`
}

// Report collects every outcome of a run.
type Report struct {
	RunID      string    `yaml:"run_id"`
	Source     string    `yaml:"source"`
	Backend    string    `yaml:"backend"`
	OutputDir  string    `yaml:"output_dir"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Status     RunStatus `yaml:"status"`
	Error      string    `yaml:"error,omitempty"`
	Err        error     `yaml:"-"`
	Outcomes   []Outcome `yaml:"outcomes"`
}

func (r *Report) fail(status RunStatus, err error) {
	r.Status = status
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// Count returns how many outcomes have the given status.
func (r *Report) Count(status PostStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Summary is a one-line description of the run.
func (r *Report) Summary() string {
	switch r.Status {
	case RunFetchFailed, RunLaunchFailed:
		return fmt.Sprintf("run %s %s: %s", r.RunID, r.Status, r.Error)
	}
	return fmt.Sprintf("run %s %s: %d saved, %d failed, %d skipped in %s",
		r.RunID, r.Status,
		r.Count(PostSaved), r.Count(PostSaveFailed), r.Count(PostSkipped),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

// ExitCode maps the run status to a process exit code: 0 ok, 2 partial or
// cancelled, 1 fatal.
func (r *Report) ExitCode() int {
	switch r.Status {
	case RunOK:
		return 0
	case RunPartial, RunCancelled:
		return 2
	default:
		return 1
	}
}

// Save writes the report as <dir>/<run-id>.yaml and returns the path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("automation: ensure report dir: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("automation: encode report: %w", err)
	}
	path := filepath.Join(dir, r.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("automation: write report: %w", err)
	}
	return path, nil
}
