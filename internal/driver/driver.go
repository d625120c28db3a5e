package driver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/consentscan/consentscan/internal/model"
)

// Driver errors.
var (
	// ErrNavigateTimeout is returned when a page failed to load within
	// the attempt's timeout. The traversal engine retries these with
	// backoff; any other navigation error is treated the same way.
	ErrNavigateTimeout = errors.New("navigation timed out")

	// ErrNotInteractable is returned by Click when the element exists
	// but cannot receive the click (covered, zero-size, detached, or
	// off-screen). Clickstream generation retries a different selector;
	// replay aborts and counts the failure.
	ErrNotInteractable = errors.New("element not interactable")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("driver is closed")
)

// RequestHook mutates one outgoing request before it leaves the browser.
// It runs for every request the page makes, including sub-resources.
type RequestHook func(req *model.Request)

// Driver is the opaque browser contract.
//
// All methods block until the browser responds; a session therefore runs
// strictly sequentially. Implementations must be safe to Close at any
// point, including concurrently with a blocked call, because the worker's
// termination handler closes the driver from a signal goroutine.
type Driver interface {
	// Navigate loads url and waits for the load event, up to timeout.
	// Timeout failures return ErrNavigateTimeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// CurrentURL returns the post-redirect URL of the active page.
	CurrentURL(ctx context.Context) (string, error)

	// RunScript evaluates JavaScript in the active page synchronously
	// and returns the JSON-encoded result.
	RunScript(ctx context.Context, script string) (json.RawMessage, error)

	// Click clicks the element addressed by the CSS selector.
	Click(ctx context.Context, selector string) error

	// Back navigates one step back in history.
	Back(ctx context.Context) error

	// SetRequestHook installs hook for all subsequent requests.
	// A nil hook uninstalls interception.
	SetRequestHook(hook RequestHook)

	// Exchanges returns the network log accumulated since the last
	// Navigate, in arrival order.
	Exchanges(ctx context.Context) (model.ExchangeLog, error)

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// CloseExtraTabs closes every tab except the session's own.
	// Pages opened by target=_blank links accumulate otherwise.
	CloseExtraTabs(ctx context.Context) error

	// Close tears down the browser process. Idempotent.
	Close() error
}

// Factory creates a fresh Driver for one session.
type Factory func(ctx context.Context) (Driver, error)
