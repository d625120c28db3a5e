package intercept

import (
	"strings"

	"github.com/consentscan/consentscan/internal/cookiedb"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/urlkit"
)

// Interceptor mutates one outgoing request in place.
type Interceptor func(req *model.Request)

// Chain returns an interceptor that applies each given interceptor in order.
func Chain(interceptors ...Interceptor) Interceptor {
	return func(req *model.Request) {
		for _, interceptor := range interceptors {
			interceptor(req)
		}
	}
}

// Passthrough leaves the request untouched. It is the experimental-phase
// control: installing it keeps the interception machinery on the wire path
// without changing any header.
func Passthrough(*model.Request) {}

// loggedHeaders are the request headers interceptors mutate.
var loggedHeaders = []string{"Cookie", "Referer"}

// Logging wraps next, recording every header mutation it performs through
// logf as original/modified line pairs. Requests next leaves untouched
// produce no lines. A nil logf returns next unwrapped.
func Logging(next Interceptor, logf func(format string, args ...any)) Interceptor {
	if logf == nil {
		return next
	}
	return func(req *model.Request) {
		before := make(map[string]string, len(loggedHeaders))
		for _, name := range loggedHeaders {
			before[name] = req.Header.Get(name)
		}

		next(req)

		for _, name := range loggedHeaders {
			after := req.Header.Get(name)
			if after == before[name] {
				continue
			}
			logf("original %s header: %q", name, before[name])
			logf("modified %s header: %q", name, after)
		}
	}
}

// RemoveByClass drops every cookie whose class is in the blocklist from the
// request's Cookie header. Requests without a Cookie header pass through
// untouched; if every cookie is dropped the header is removed entirely.
//
// The operation is idempotent: reapplying it with the same blocklist leaves
// the header unchanged.
func RemoveByClass(store *cookiedb.Store, blocklist ...cookiedb.Class) Interceptor {
	blocked := make(map[cookiedb.Class]bool, len(blocklist))
	for _, class := range blocklist {
		blocked[class] = true
	}

	return func(req *model.Request) {
		header := req.Header.Get("Cookie")
		if header == "" {
			return
		}

		kept := make([]string, 0, 8)
		for _, pair := range strings.Split(header, "; ") {
			name, _, found := strings.Cut(pair, "=")
			if !found {
				// Not a name=value pair; keep it rather than guess.
				kept = append(kept, pair)
				continue
			}
			if blocked[store.Lookup(name)] {
				continue
			}
			kept = append(kept, pair)
		}

		if len(kept) == 0 {
			req.Header.Del("Cookie")
			return
		}
		req.Header.Set("Cookie", strings.Join(kept, "; "))
	}
}

// RemoveAll drops the Cookie header entirely.
func RemoveAll(req *model.Request) {
	req.Header.Del("Cookie")
}

// SpoofReferer overwrites the Referer header on the navigation request for
// target, making a programmatic visit indistinguishable from a click on the
// discovering page. Sub-resource requests (anything whose canonical URL is
// not the navigation target) pass through untouched.
//
// An empty referer means the target was the seed of the traversal; the
// request then carries no Referer at all.
func SpoofReferer(target urlkit.Canonical, referer string) Interceptor {
	return func(req *model.Request) {
		canonical, err := urlkit.Parse(req.URL)
		if err != nil || !canonical.Equal(target) {
			return
		}

		req.Header.Del("Referer")
		if referer != "" {
			req.Header.Set("Referer", referer)
		}
	}
}
