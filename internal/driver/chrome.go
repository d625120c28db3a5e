package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/consentscan/consentscan/internal/model"
)

// userAgent identifies the crawler honestly in request logs while keeping
// the rendering path identical to a desktop browser.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// clickTimeout bounds one click attempt. An element that cannot be clicked
// within this window is reported as not interactable rather than letting a
// covered element stall the whole clickstream.
const clickTimeout = 5 * time.Second

// Chrome drives one headless Chrome process over the DevTools protocol.
type Chrome struct {
	// allocCancel tears down the exec allocator (the browser process).
	allocCancel context.CancelFunc

	// cancel tears down the DevTools session.
	cancel context.CancelFunc

	// ctx is the chromedp browser context; it outlives individual calls
	// and carries the DevTools session.
	ctx context.Context

	// mu guards hook, exchanges, and closed.
	mu sync.Mutex

	// hook is the installed request mutation hook, nil when off.
	hook RequestHook

	// exchanges accumulates the network log since the last Navigate,
	// keyed by DevTools request id with arrival order preserved.
	exchanges map[network.RequestID]*model.Exchange
	order     []network.RequestID

	// closed is set once Close ran.
	closed bool
}

// NewChrome starts a headless Chrome and enables request interception and
// network capture. The returned Chrome is ready to Navigate.
//
// Allocator flags follow the usual headless-crawling set: sandboxing stays
// on, GPU and first-run chrome are off, and the window is a fixed desktop
// size so screenshots are comparable across sessions.
func NewChrome(ctx context.Context) (Driver, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-popup-blocking", false),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1366, 768),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		allocCancel: allocCancel,
		cancel:      cancel,
		ctx:         browserCtx,
		exchanges:   make(map[network.RequestID]*model.Exchange),
	}

	chromedp.ListenTarget(browserCtx, c.handleEvent)

	// Starting the browser and enabling the domains in one Run keeps a
	// half-initialized browser from ever being returned.
	if err := chromedp.Run(browserCtx,
		network.Enable(),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: "*", RequestStage: fetch.RequestStageRequest},
		}),
	); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return c, nil
}

// handleEvent dispatches DevTools events to the interception and network
// bookkeeping. Continuing a paused request must not run on the event
// goroutine, so that part is handed off.
func (c *Chrome) handleEvent(ev any) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		go c.continueRequest(ev)
	case *network.EventRequestWillBeSent:
		c.recordRequest(ev)
	case *network.EventResponseReceived:
		c.recordResponse(ev)
	case *network.EventResponseReceivedExtraInfo:
		c.recordSetCookies(ev)
	}
}

// continueRequest applies the installed hook to a paused request and
// releases it with the (possibly mutated) headers.
func (c *Chrome) continueRequest(ev *fetch.EventRequestPaused) {
	c.mu.Lock()
	hook := c.hook
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	executor := cdp.WithExecutor(c.ctx, chromedp.FromContext(c.ctx).Target)

	if hook == nil {
		_ = fetch.ContinueRequest(ev.RequestID).Do(executor)
		return
	}

	req := &model.Request{
		Method: ev.Request.Method,
		URL:    ev.Request.URL,
		Header: headerFromCDP(ev.Request.Headers),
	}
	hook(req)

	entries := make([]*fetch.HeaderEntry, 0, len(req.Header))
	for name, values := range req.Header {
		for _, value := range values {
			entries = append(entries, &fetch.HeaderEntry{Name: name, Value: value})
		}
	}

	if err := fetch.ContinueRequest(ev.RequestID).WithHeaders(entries).Do(executor); err != nil {
		// The page may have navigated away; the request is gone either way.
		return
	}
}

// recordRequest opens an exchange for an outgoing request.
func (c *Chrome) recordRequest(ev *network.EventRequestWillBeSent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.exchanges[ev.RequestID]; ok {
		return // redirect hop; keep the original entry
	}
	c.exchanges[ev.RequestID] = &model.Exchange{
		URL:            ev.Request.URL,
		Method:         ev.Request.Method,
		RequestHeaders: headerFromCDP(ev.Request.Headers),
	}
	c.order = append(c.order, ev.RequestID)
}

// recordResponse fills in the response half of an exchange.
func (c *Chrome) recordResponse(ev *network.EventResponseReceived) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exchange, ok := c.exchanges[ev.RequestID]
	if !ok {
		return
	}
	exchange.Status = int(ev.Response.Status)
	exchange.ResponseHeaders = headerFromCDP(ev.Response.Headers)
}

// recordSetCookies captures Set-Cookie values, which Chrome only reports
// through the extra-info event because they are filtered from the regular
// response headers.
func (c *Chrome) recordSetCookies(ev *network.EventResponseReceivedExtraInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exchange, ok := c.exchanges[ev.RequestID]
	if !ok {
		return
	}
	for name, value := range ev.Headers {
		if !strings.EqualFold(name, "set-cookie") {
			continue
		}
		if s, ok := value.(string); ok {
			// Multiple cookies arrive newline-joined in one value.
			for _, line := range strings.Split(s, "\n") {
				if line != "" {
					exchange.SetCookies = append(exchange.SetCookies, line)
				}
			}
		}
	}
}

// headerFromCDP converts DevTools headers to http.Header.
func headerFromCDP(headers network.Headers) http.Header {
	result := make(http.Header, len(headers))
	for name, value := range headers {
		if s, ok := value.(string); ok {
			result.Set(name, s)
		}
	}
	return result
}

// Navigate loads url and waits for the load event.
// The network log restarts at every navigation.
func (c *Chrome) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	c.mu.Lock()
	c.exchanges = make(map[network.RequestID]*model.Exchange)
	c.order = nil
	c.mu.Unlock()

	runCtx, cancel := context.WithTimeout(c.runCtx(ctx), timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", ErrNavigateTimeout, url)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the post-redirect URL of the active page.
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}

	var url string
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	return url, nil
}

// RunScript evaluates JavaScript synchronously and returns the JSON result.
func (c *Chrome) RunScript(ctx context.Context, script string) (json.RawMessage, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	var result json.RawMessage
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Evaluate(script, &result)); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	return result, nil
}

// Click clicks the first element matching the CSS selector.
// Elements that exist but cannot receive the click within clickTimeout are
// reported as ErrNotInteractable.
func (c *Chrome) Click(ctx context.Context, selector string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(c.runCtx(ctx), clickTimeout)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", ErrNotInteractable, selector)
		}
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Back navigates one step back in history.
func (c *Chrome) Back(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := chromedp.Run(c.runCtx(ctx), chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

// SetRequestHook installs hook for all subsequent requests.
func (c *Chrome) SetRequestHook(hook RequestHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook
}

// Exchanges returns the network log accumulated since the last Navigate.
func (c *Chrome) Exchanges(_ context.Context) (model.ExchangeLog, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log := make(model.ExchangeLog, 0, len(c.order))
	for _, id := range c.order {
		log = append(log, *c.exchanges[id])
	}
	return log, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	var buf []byte
	if err := chromedp.Run(c.runCtx(ctx), chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// CloseExtraTabs closes every page target except the session's own.
func (c *Chrome) CloseExtraTabs(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	infos, err := chromedp.Targets(c.ctx)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}

	own := chromedp.FromContext(c.ctx).Target.TargetID
	executor := cdp.WithExecutor(c.ctx, chromedp.FromContext(c.ctx).Browser)
	for _, info := range infos {
		if info.Type != "page" || info.TargetID == own {
			continue
		}
		if err := target.CloseTarget(info.TargetID).Do(executor); err != nil {
			return fmt.Errorf("close tab %s: %w", info.TargetID, err)
		}
	}
	return nil
}

// Close tears down the DevTools session and the browser process.
func (c *Chrome) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.allocCancel()
	return nil
}

// checkOpen fails calls made after Close.
func (c *Chrome) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// runCtx derives a chromedp-compatible context that also respects the
// caller's cancellation.
func (c *Chrome) runCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return c.ctx
	}
	// chromedp actions need the browser context; caller cancellation is
	// propagated by watching it alongside.
	merged, cancel := context.WithCancel(c.ctx)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}
