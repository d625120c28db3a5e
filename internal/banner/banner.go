package banner

import (
	"context"

	"github.com/consentscan/consentscan/internal/driver"
)

// Outcome selects which consent choice a heuristic should click.
type Outcome int

const (
	// Accept asks the heuristic to accept all cookies.
	Accept Outcome = iota + 1

	// Reject asks the heuristic to reject all non-essential cookies.
	Reject
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Status reports how a heuristic run ended. The zero value means failure so
// an unset status never reads as a success.
type Status int

const (
	// StatusFail means no banner was found or no matching control could
	// be clicked.
	StatusFail Status = iota

	// StatusClicked means a control matching the requested outcome was
	// clicked directly on the banner's first layer.
	StatusClicked

	// StatusClickedInSettings means the outcome was reached through the
	// banner's settings layer (open settings, then reject and save).
	StatusClickedInSettings
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusClicked:
		return "clicked"
	case StatusClickedInSettings:
		return "clicked via settings"
	default:
		return "failed"
	}
}

// Succeeded reports whether the status is any success variant.
func (s Status) Succeeded() bool {
	return s == StatusClicked || s == StatusClickedInSettings
}

// Heuristic resolves a generic consent banner toward an outcome. It is a
// black box to the traversal engine: the engine passes a live driver and
// records whatever status comes back.
//
// Implementations must not navigate away from url; the engine owns page
// state around the call.
type Heuristic interface {
	Run(ctx context.Context, d driver.Driver, domain, url string, outcome Outcome) (Status, error)
}
