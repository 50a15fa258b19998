package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL endpoint receives a request. The
// publishing context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published once the response has been written.
type HTTPFinish struct {
	Request *http.Request
	Status  int
	// Operations counts the GraphQL operations the request carried: one for
	// a single request, the batch length for a batch, zero when the request
	// was rejected before parsing or served GraphiQL.
	Operations int
	Duration   time.Duration
}
