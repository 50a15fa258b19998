package events

import "time"

// StoreQuery is emitted after a statement is executed against the backing store.
type StoreQuery struct {
	Backend    string // sqlite, postgres, mysql, neo4j
	Collection string
	Op         string
	Start      time.Time
	Duration   time.Duration
	Err        error
}
