package banner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/consentscan/consentscan/internal/driver"
)

// Phrase tables for matching banner controls by visible text. Matching is
// case-insensitive substring over the element's own text, so "Accept all
// cookies" matches "accept". Reject phrases include the "only necessary"
// family because many banners phrase rejection as keeping essentials.
var (
	acceptPhrases = []string{
		"accept", "agree", "allow", "got it", "i understand", "consent", "ok",
	}
	rejectPhrases = []string{
		"reject", "decline", "deny", "refuse", "disagree",
		"only necessary", "only essential", "necessary only",
		"necessary cookies", "continue without",
	}
	settingsPhrases = []string{
		"settings", "preferences", "manage", "options", "customize",
		"customise", "choices", "more information",
	}
	savePhrases = []string{
		"save", "confirm", "apply", "submit", "reject", "decline",
	}
)

// findControlsScript locates clickable elements whose own text contains one
// of the given phrases and returns a stable CSS selector for each. The
// phrase list is spliced in as a JSON array.
//
// Selectors are built as nth-of-type paths from the root so they survive a
// page re-render as long as the DOM shape does. Invisible elements are
// skipped because a click on them would fail anyway.
const findControlsScript = `((phrases) => {
	const path = (el) => {
		const parts = [];
		while (el && el.nodeType === Node.ELEMENT_NODE && el.tagName !== "HTML") {
			let i = 1;
			let sib = el;
			while ((sib = sib.previousElementSibling)) {
				if (sib.tagName === el.tagName) i++;
			}
			parts.unshift(el.tagName.toLowerCase() + ":nth-of-type(" + i + ")");
			el = el.parentElement;
		}
		return "html > " + parts.join(" > ");
	};
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const out = [];
	const seen = new Set();
	const candidates = document.querySelectorAll(
		'button, a, input[type="button"], input[type="submit"], [role="button"]');
	for (const el of candidates) {
		if (!visible(el)) continue;
		const text = ((el.innerText || el.value || "") + " " +
			(el.getAttribute("aria-label") || "")).toLowerCase();
		if (!phrases.some((p) => text.includes(p))) continue;
		const sel = path(el);
		if (seen.has(sel)) continue;
		seen.add(sel);
		out.push(sel);
	}
	return out;
})(%s)`

// Wordlist is a text-matching consent heuristic. It finds banner controls
// by visible text and clicks the first clickable match.
//
// Design decision: rejection falls back to the settings layer when no
// first-layer reject control exists, because:
//  1. Many banners offer accept-all up front but hide rejection behind a
//     "manage preferences" dialog.
//  2. Treating that as failure would over-count non-compliant sites: the
//     reject path exists, it is just one click deeper.
//  3. One settings hop is cheap; deeper dialog trees are out of reach for
//     text matching and genuinely count as failures.
type Wordlist struct {
	logger *slog.Logger
}

// NewWordlist creates a Wordlist heuristic. A nil logger disables logging.
func NewWordlist(logger *slog.Logger) *Wordlist {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Wordlist{logger: logger}
}

// Run implements Heuristic.
func (w *Wordlist) Run(ctx context.Context, d driver.Driver, domain, url string, outcome Outcome) (Status, error) {
	direct := acceptPhrases
	if outcome == Reject {
		direct = rejectPhrases
	}

	clicked, err := w.clickFirst(ctx, d, direct)
	if err != nil {
		return StatusFail, err
	}
	if clicked {
		w.logger.Debug("banner control clicked", "domain", domain, "outcome", outcome.String())
		return StatusClicked, nil
	}
	if outcome != Reject {
		return StatusFail, nil
	}

	// Second layer: open settings, then reject or save inside it.
	opened, err := w.clickFirst(ctx, d, settingsPhrases)
	if err != nil {
		return StatusFail, err
	}
	if !opened {
		return StatusFail, nil
	}
	saved, err := w.clickFirst(ctx, d, savePhrases)
	if err != nil {
		return StatusFail, err
	}
	if !saved {
		return StatusFail, nil
	}
	w.logger.Debug("banner rejected via settings", "domain", domain)
	return StatusClickedInSettings, nil
}

// clickFirst finds controls matching phrases and clicks the first one that
// accepts the click. Not-interactable matches are skipped; any other click
// failure aborts.
func (w *Wordlist) clickFirst(ctx context.Context, d driver.Driver, phrases []string) (bool, error) {
	encoded, err := json.Marshal(phrases)
	if err != nil {
		return false, fmt.Errorf("encode phrases: %w", err)
	}

	raw, err := d.RunScript(ctx, fmt.Sprintf(findControlsScript, encoded))
	if err != nil {
		return false, fmt.Errorf("find banner controls: %w", err)
	}
	var selectors []string
	if err := json.Unmarshal(raw, &selectors); err != nil {
		return false, fmt.Errorf("decode banner controls: %w", err)
	}

	for _, selector := range selectors {
		err := d.Click(ctx, selector)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, driver.ErrNotInteractable) {
			continue
		}
		return false, fmt.Errorf("click banner control: %w", err)
	}
	return false, nil
}
