package automation

import (
	"time"

	"github.com/kingrea/postscribe/internal/post"
)

// EventKind names a step of a run.
type EventKind string

const (
	EventFetching     EventKind = "fetching"
	EventFetched      EventKind = "fetched"
	EventLaunching    EventKind = "launching"
	EventLaunched     EventKind = "launched"
	EventPostStarted  EventKind = "post-started"
	EventPostFinished EventKind = "post-finished"
	EventRunFinished  EventKind = "run-finished"
)

// Event reports run progress to an observer.
type Event struct {
	Kind EventKind
	At   time.Time
	// Index is zero-based and only meaningful for post events.
	Index   int
	Total   int
	Post    post.Post
	Outcome *Outcome
	Report  *Report
}

// Observer receives events synchronously on the runner goroutine.
type Observer func(Event)
