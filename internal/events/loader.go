package events

import "time"

// LoaderBatch is emitted once per batch fetch issued by a batch loader,
// after the fetch returns.
type LoaderBatch struct {
	Loader   string
	Keys     int
	Start    time.Time
	Duration time.Duration
	Err      error
}
