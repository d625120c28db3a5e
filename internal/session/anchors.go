package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// anchorScript collects the absolute target URL of every anchor on the
// page. The href property (not the attribute) is already resolved against
// the document base URL by the browser.
const anchorScript = `(() =>
	Array.from(document.querySelectorAll("a[href]")).map((a) => a.href)
)()`

// outerHTMLScript captures the rendered DOM for the parser fallback.
const outerHTMLScript = `document.documentElement.outerHTML`

// pageAnchors enumerates the syntactically valid anchor targets of the
// current page. The injected script is the primary path; when it fails or
// returns garbage, the rendered DOM is parsed instead, which is slower but
// survives pages that break script evaluation.
func (s *Session) pageAnchors(ctx context.Context, st *site, baseURL string) ([]string, error) {
	raw, err := st.d.RunScript(ctx, anchorScript)
	if err == nil {
		var hrefs []string
		if jerr := json.Unmarshal(raw, &hrefs); jerr == nil {
			return filterAnchors(hrefs), nil
		}
	}

	raw, err = st.d.RunScript(ctx, outerHTMLScript)
	if err != nil {
		return nil, fmt.Errorf("capture dom: %w", err)
	}
	var dom string
	if err := json.Unmarshal(raw, &dom); err != nil {
		return nil, fmt.Errorf("decode dom: %w", err)
	}
	return parseAnchors(baseURL, dom)
}

// parseAnchors extracts anchor targets from an HTML document, resolving
// relative hrefs against baseURL.
func parseAnchors(baseURL, document string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse dom: %w", err)
	}

	var hrefs []string
	for node := range root.Descendants() {
		if node.Type != html.ElementNode || node.Data != "a" {
			continue
		}
		for _, attr := range node.Attr {
			if attr.Key != "href" {
				continue
			}
			ref, err := url.Parse(strings.TrimSpace(attr.Val))
			if err != nil {
				break
			}
			hrefs = append(hrefs, base.ResolveReference(ref).String())
			break
		}
	}
	return filterAnchors(hrefs), nil
}

// filterAnchors drops targets that cannot be traversed: non-HTTP schemes
// (mailto, javascript, tel) and empty or fragment-only hrefs.
func filterAnchors(hrefs []string) []string {
	valid := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if u.Host == "" {
			continue
		}
		valid = append(valid, href)
	}
	return valid
}
