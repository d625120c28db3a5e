package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consentscan/consentscan/internal/driver"
	"github.com/consentscan/consentscan/internal/intercept"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/urlkit"
)

// Classification phase names. A clickstream directory holds
// <phase>-<index>.png screenshots for all three phases plus one
// features.json; index 0 is the pre-action state.
const (
	phaseBaseline     = "baseline"
	phaseControl      = "control"
	phaseExperimental = "experimental"
)

// featuresFileName is the per-clickstream feature snapshot artifact.
const featuresFileName = "features.json"

// clickableScript enumerates the visible interactable elements of the page
// with a stable nth-of-type CSS path and the element's tag name.
const clickableScript = `(() => {
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
	const out = [];
	const candidates = document.querySelectorAll(
		'a[href], button, input, select, textarea, [role="button"], [onclick]');
	for (const el of candidates) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		out.push({selector: path(el), element_type: el.tagName.toLowerCase()});
	}
	return out;
})()`

// featureScript snapshots the page's visible-word, link-target, and
// image-source frequency tables.
const featureScript = `(() => {
	const freq = (items) => {
		const table = {};
		for (const item of items) table[item] = (table[item] || 0) + 1;
		return table;
	};
	return {
		innerText: freq((document.body ? document.body.innerText : "")
			.split(/\s+/).filter((w) => w.length > 0)),
		links: freq(Array.from(document.querySelectorAll("a[href]")).map((a) => a.href)),
		img: freq(Array.from(document.querySelectorAll("img[src]")).map((i) => i.src)),
	};
})()`

// clickable is one interactable element as reported by clickableScript.
type clickable struct {
	Selector    string `json:"selector"`
	ElementType string `json:"element_type"`
}

// streamRun parameterizes one clickstream execution.
type streamRun struct {
	// phase names the artifacts (baseline, control, experimental).
	phase string

	// dir is the clickstream's artifact directory.
	dir string

	// snap accumulates feature snapshots across all phases of the
	// clickstream.
	snap model.FeatureSnapshot

	// hook, when non-nil, mutates every outgoing request for the whole
	// run. The experimental phase strips the blocklisted cookie classes
	// through it; the control phase installs a passthrough so both
	// replays share the interception path.
	hook intercept.Interceptor

	// replay, when non-nil, is the exact action sequence to follow.
	// Nil means generate: pick random untried clickables, falling back
	// to going back in history once the page is exhausted.
	replay model.Clickstream

	// length is the number of actions to generate. Ignored for replay,
	// which is bounded by the replayed stream itself.
	length int
}

// runClickstream executes one clickstream and returns the actions actually
// performed. Generation always returns exactly run.length actions; a replay
// aborted by a dead element returns the prefix that ran.
func (s *Session) runClickstream(ctx context.Context, st *site, run streamRun) (model.Clickstream, error) {
	if run.hook != nil {
		s.installHook(st, run.hook)
	} else {
		st.d.SetRequestHook(nil)
	}
	defer st.d.SetRequestHook(nil)

	if err := s.fetchWithBackoff(ctx, st, st.root.String()); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, ErrLandingPageDown
	}
	if err := s.afterAction(ctx, st, run, 0); err != nil {
		return nil, err
	}

	length := run.length
	if run.replay != nil {
		length = len(run.replay)
	}

	tried := make(map[string]bool)
	var performed model.Clickstream
	for i := 1; i <= length; i++ {
		if err := ctx.Err(); err != nil {
			return performed, err
		}

		var (
			action  model.Action
			aborted bool
			err     error
		)
		if run.replay != nil {
			action, aborted, err = s.replayAction(ctx, st, run.replay[i-1])
		} else {
			action, err = s.generateAction(ctx, st, tried)
		}
		if err != nil {
			return performed, err
		}
		if aborted {
			st.events.printf("%s clickstream aborted at action %d", run.phase, i)
			break
		}
		performed = append(performed, action)

		if err := s.afterAction(ctx, st, run, i); err != nil {
			return performed, err
		}
	}
	return performed, nil
}

// generateAction picks a random untried clickable and clicks it. Selectors
// already tried during this stream are excluded, elements that refuse the
// click are dropped and another is drawn, and an exhausted page degrades to
// going back in history so the stream always advances.
func (s *Session) generateAction(ctx context.Context, st *site, tried map[string]bool) (model.Action, error) {
	all, err := s.clickables(ctx, st)
	if err != nil {
		return nil, err
	}
	candidates := make([]clickable, 0, len(all))
	for _, c := range all {
		if !tried[c.Selector] {
			candidates = append(candidates, c)
		}
	}

	for len(candidates) > 0 {
		i := s.rng.Intn(len(candidates))
		candidate := candidates[i]
		candidates = append(candidates[:i], candidates[i+1:]...)
		tried[candidate.Selector] = true

		err := st.d.Click(ctx, candidate.Selector)
		if err == nil {
			return model.SelectorAction{
				Selector:    candidate.Selector,
				ElementType: candidate.ElementType,
			}, nil
		}
		if errors.Is(err, driver.ErrNotInteractable) {
			continue
		}
		return nil, fmt.Errorf("click %s: %w", candidate.Selector, err)
	}

	if err := st.d.Back(ctx); err != nil {
		return nil, fmt.Errorf("go back: %w", err)
	}
	return model.GoBackAction{}, nil
}

// replayAction performs one recorded action. A dead element aborts the
// replay (aborted=true) and counts against its element type; the caller
// keeps the remaining budget.
func (s *Session) replayAction(ctx context.Context, st *site, action model.Action) (model.Action, bool, error) {
	switch a := action.(type) {
	case model.SelectorAction:
		err := st.d.Click(ctx, a.Selector)
		if err == nil {
			return a, false, nil
		}
		if errors.Is(err, driver.ErrNotInteractable) {
			st.result.ClickstreamFailures[a.ElementType]++
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("replay click %s: %w", a.Selector, err)
	case model.GoBackAction:
		if err := st.d.Back(ctx); err != nil {
			return nil, false, fmt.Errorf("replay go back: %w", err)
		}
		return a, false, nil
	default:
		return nil, false, fmt.Errorf("replay: unknown action type %T", action)
	}
}

// afterAction restores the session to a measurable state and snapshots it:
// stray tabs are closed, a navigation off the registrable domain is undone,
// and the page's features and screenshot are recorded under index.
func (s *Session) afterAction(ctx context.Context, st *site, run streamRun, index int) error {
	if err := st.d.CloseExtraTabs(ctx); err != nil {
		st.events.printf("close extra tabs: %v", err)
	}
	current, err := st.d.CurrentURL(ctx)
	if err == nil && !urlkit.SameSite(current, st.registrable) {
		st.events.printf("left site to %s, going back", current)
		if err := st.d.Back(ctx); err != nil {
			return fmt.Errorf("return to site: %w", err)
		}
	}

	features, err := s.pageFeatures(ctx, st)
	if err != nil {
		return err
	}
	for _, name := range model.FeatureNames {
		run.snap.Append(name, run.phase, features[name])
	}

	shot, err := st.d.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	name := fmt.Sprintf("%s-%d.png", run.phase, index)
	if err := os.WriteFile(filepath.Join(run.dir, name), shot, 0o640); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// clickables runs clickableScript and decodes its result.
func (s *Session) clickables(ctx context.Context, st *site) ([]clickable, error) {
	raw, err := st.d.RunScript(ctx, clickableScript)
	if err != nil {
		return nil, fmt.Errorf("enumerate clickables: %w", err)
	}
	var out []clickable
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode clickables: %w", err)
	}
	return out, nil
}

// pageFeatures runs featureScript and decodes its result.
func (s *Session) pageFeatures(ctx context.Context, st *site) (map[string]model.Frequency, error) {
	raw, err := st.d.RunScript(ctx, featureScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot features: %w", err)
	}
	var out map[string]model.Frequency
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return out, nil
}

// writeFeatures persists a clickstream's accumulated feature snapshot.
func writeFeatures(dir string, snap model.FeatureSnapshot) error {
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, featuresFileName), encoded, 0o640); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	return nil
}
