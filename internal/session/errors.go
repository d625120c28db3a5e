package session

import "errors"

// Session errors.
var (
	// ErrLandingPageDown means the landing page stayed unreachable after
	// every retry, either during domain resolution or on the root fetch
	// of a traversal phase. The session records the condition and aborts.
	ErrLandingPageDown = errors.New("landing page is down")
)
