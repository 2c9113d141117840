package editor

import "fmt"

// LaunchError reports that the editor could not be started or never became
// ready. It is fatal for a run.
type LaunchError struct {
	Backend string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("editor: launch %s: %v", e.Backend, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// SaveError reports a failed type/save sequence for a single document.
type SaveError struct {
	// Stage is "render", "type" or "save".
	Stage string
	Path  string
	Err   error
}

func (e *SaveError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("editor: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("editor: %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
