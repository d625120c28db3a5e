package urlkit

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Canonical is the equivalence class of a raw URL.
//
// Two URLs are equivalent iff their hostname, percent-decoded path, and
// unordered query-parameter set match. Scheme, port, credentials, and
// fragment never participate in equality.
//
// Design decision: We keep the original raw URL alongside the canonical
// parts because:
//  1. Navigation must use the raw URL (the canonical form drops the scheme)
//  2. Artifact logs should show what was actually fetched
//  3. Equality and hashing only ever consult the canonical parts
type Canonical struct {
	// raw is the URL as it was discovered, unmodified.
	raw string

	// host is the lowercased hostname with port and credentials removed.
	host string

	// path is the percent-decoded path. "+" decodes to a space, matching
	// form-style encoding commonly found in anchor targets.
	path string

	// query is the canonical key() of the unordered query-parameter set.
	query string
}

// Parse canonicalizes a raw URL.
// It returns an error if the URL cannot be parsed at all; a URL without a
// scheme is still accepted because anchors frequently omit it.
func Parse(raw string) (Canonical, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Canonical{}, fmt.Errorf("canonicalize %q: %w", raw, err)
	}

	path := u.Path
	if decoded, err := url.QueryUnescape(strings.ReplaceAll(path, "+", "%20")); err == nil {
		path = decoded
	}

	return Canonical{
		raw:   raw,
		host:  strings.ToLower(u.Hostname()),
		path:  path,
		query: canonicalQuery(u.Query()),
	}, nil
}

// MustParse is Parse for URLs known to be valid, typically in tests.
// It panics on error.
func MustParse(raw string) Canonical {
	c, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// canonicalQuery renders an unordered query-parameter set in a stable order.
// Values for a repeated key are sorted as well, so ?a=2&a=1 and ?a=1&a=2
// canonicalize equal.
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

// Equal reports whether two URLs belong to the same equivalence class.
func (c Canonical) Equal(other Canonical) bool {
	return c.Key() == other.Key()
}

// Key returns a stable string that is identical for equivalent URLs and
// distinct otherwise. It is suitable as a map key.
func (c Canonical) Key() string {
	return c.host + "\x00" + c.path + "\x00" + c.query
}

// Hostname returns the canonical hostname (lowercased, no port).
func (c Canonical) Hostname() string {
	return c.host
}

// String returns the original raw URL.
func (c Canonical) String() string {
	return c.raw
}

// RegistrableDomain returns the second-level domain plus public suffix of a
// raw URL (e.g. "news.bbc.co.uk" -> "bbc.co.uk"). It is the key used to
// scope a traversal to one site.
func RegistrableDomain(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("registrable domain of %q: %w", raw, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		// Bare domains such as "example.com" parse with an empty host.
		host = strings.ToLower(strings.SplitN(strings.TrimPrefix(raw, "//"), "/", 2)[0])
	}
	if host == "" {
		return "", fmt.Errorf("registrable domain of %q: no hostname", raw)
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("registrable domain of %q: %w", raw, err)
	}
	return domain, nil
}

// SameSite reports whether a raw URL belongs to the given registrable domain.
// URLs that fail to parse are never same-site.
func SameSite(raw, registrable string) bool {
	domain, err := RegistrableDomain(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(domain, registrable)
}
