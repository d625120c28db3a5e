package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/consentscan/consentscan/internal/intercept"
	"github.com/consentscan/consentscan/internal/urlkit"
)

// deadUID marks a canonical URL that must never be fetched again: its
// retries were exhausted, it redirected onto an already-visited page, or it
// left the site's registrable domain.
const deadUID = -1

// visit is one stack entry of the traversal.
type visit struct {
	canon urlkit.Canonical
	depth int
}

// crawl tracks the traversal state of one collection phase.
//
// uids maps canonical URL keys to page UIDs. UIDs are assigned in visit
// order starting at 0 and name the per-page artifact directory. A page gets
// its UID only after a successful fetch, keyed by its post-redirect
// canonical URL; the pre-redirect key aliases to the same UID so the page
// is not fetched twice through different links.
type crawl struct {
	uids       map[string]int
	discoverer map[string]string
	next       int
}

func newCrawl() *crawl {
	return &crawl{
		uids:       make(map[string]int),
		discoverer: make(map[string]string),
	}
}

// markDead records key as never-visit.
func (c *crawl) markDead(key string) {
	c.uids[key] = deadUID
}

// assign gives the next UID to key.
func (c *crawl) assign(key string) int {
	uid := c.next
	c.next++
	c.uids[key] = uid
	return uid
}

// crawlSite runs one bounded-depth depth-first collection phase rooted at
// the landing page.
//
// When phase is non-empty, every visited page persists a screenshot and its
// network log as <uid>/<phase>.png and <uid>/<phase>.json. onLanding, when
// non-nil, runs once on the landing page after its fetch; the compliance
// algorithm uses it for CMP detection and consent interaction.
//
// Fetch failures are survivable everywhere except the root: an inner page
// that exhausts its retries is pruned (directory removed, marked dead) and
// the traversal continues, while a dead root aborts with ErrLandingPageDown.
func (s *Session) crawlSite(ctx context.Context, st *site, phase string, onLanding func(context.Context) error) error {
	c := newCrawl()
	stack := []visit{{canon: st.root, depth: 0}}
	defer st.d.SetRequestHook(nil)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := top.canon.Key()
		if _, seen := c.uids[key]; seen {
			// Either already visited through another link or dead.
			continue
		}

		// Requests for a discovered page carry the discovering page as
		// Referer, so inner pages see the traversal as organic browsing.
		s.installHook(st, intercept.SpoofReferer(top.canon, c.discoverer[key]))

		if err := s.fetchWithBackoff(ctx, st, top.canon.String()); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if top.depth == 0 {
				return ErrLandingPageDown
			}
			st.events.printf("prune %s: %v", top.canon.String(), err)
			c.markDead(key)
			continue
		}

		current, err := st.d.CurrentURL(ctx)
		if err != nil {
			return fmt.Errorf("current url after fetch: %w", err)
		}
		post, err := urlkit.Parse(current)
		if err != nil || !urlkit.SameSite(current, st.registrable) {
			st.events.printf("prune %s: redirected off-site to %s", top.canon.String(), current)
			c.markDead(key)
			continue
		}
		postKey := post.Key()
		if _, seen := c.uids[postKey]; seen {
			st.events.printf("prune %s: duplicate of visited page", top.canon.String())
			c.markDead(key)
			continue
		}

		uid := c.assign(postKey)
		if postKey != key {
			c.uids[key] = uid
		}
		pageDir := filepath.Join(st.path, strconv.Itoa(uid))
		if err := os.MkdirAll(pageDir, 0o750); err != nil {
			return fmt.Errorf("create page directory: %w", err)
		}
		st.events.printf("visit %d %s (depth %d)", uid, current, top.depth)

		if top.depth == 0 && onLanding != nil {
			if err := onLanding(ctx); err != nil {
				return err
			}
		}

		if phase != "" {
			if err := s.persistPage(ctx, st, pageDir, phase); err != nil {
				return err
			}
		}

		if top.depth < s.cfg.Depth {
			anchors, err := s.pageAnchors(ctx, st, current)
			if err != nil {
				st.events.printf("anchors of %s: %v", current, err)
				continue
			}
			for _, anchor := range anchors {
				if !urlkit.SameSite(anchor, st.registrable) {
					continue
				}
				canon, err := urlkit.Parse(anchor)
				if err != nil {
					continue
				}
				anchorKey := canon.Key()
				if _, seen := c.uids[anchorKey]; seen {
					continue
				}
				if _, found := c.discoverer[anchorKey]; found {
					continue // already on the stack
				}
				c.discoverer[anchorKey] = current
				stack = append(stack, visit{canon: canon, depth: top.depth + 1})
			}
		}
	}
	return nil
}

// fetchWithBackoff navigates to url, retrying transient failures with
// doubling waits and a growing page-load timeout.
func (s *Session) fetchWithBackoff(ctx context.Context, st *site, url string) error {
	b := newBackoff(s.cfg)
	var lastErr error
	for attempt := 0; attempt < s.cfg.FetchAttempts; attempt++ {
		if attempt > 0 {
			if err := b.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		err := st.d.Navigate(ctx, url, b.loadTimeout(attempt))
		if err == nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		lastErr = err
		st.events.printf("fetch %s attempt %d/%d: %v", url, attempt+1, s.cfg.FetchAttempts, err)
	}
	return fmt.Errorf("retries exhausted: %w", lastErr)
}

// persistPage writes the page's screenshot and network log for a phase.
func (s *Session) persistPage(ctx context.Context, st *site, pageDir, phase string) error {
	shot, err := st.d.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(pageDir, phase+".png"), shot, 0o640); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}

	exchanges, err := st.d.Exchanges(ctx)
	if err != nil {
		return fmt.Errorf("network log: %w", err)
	}
	encoded, err := json.MarshalIndent(exchanges, "", "  ")
	if err != nil {
		return fmt.Errorf("encode network log: %w", err)
	}
	if err := os.WriteFile(filepath.Join(pageDir, phase+".json"), encoded, 0o640); err != nil {
		return fmt.Errorf("write network log: %w", err)
	}
	return nil
}
