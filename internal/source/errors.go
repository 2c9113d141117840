package source

import "fmt"

// FetchError reports a failed or unusable upstream response. It is fatal for
// a run.
type FetchError struct {
	URL string
	// Op is the failing stage: request, status, read, decode or validate.
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
