package model

import "net/http"

// Request is an outgoing browser request as seen by the driver's
// per-request mutation hook. Interceptors mutate Header in place before the
// request leaves the browser.
type Request struct {
	// Method is the HTTP method.
	Method string `json:"method"`

	// URL is the raw request URL.
	URL string `json:"url"`

	// Header holds the outgoing headers. The driver applies whatever is
	// here after the hook returns, so deleting a key removes the header.
	Header http.Header `json:"header"`
}

// Exchange is one request/response pair captured from the driver's network
// log for the current navigation.
type Exchange struct {
	// URL is the request URL.
	URL string `json:"url"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Status is the HTTP response status code. 0 means the request never
	// completed (blocked, aborted, or still in flight at capture time).
	Status int `json:"status"`

	// RequestHeaders are the headers as they left the browser, after any
	// interceptor mutation.
	RequestHeaders http.Header `json:"request_headers"`

	// ResponseHeaders are the response headers.
	ResponseHeaders http.Header `json:"response_headers"`

	// SetCookies are the Set-Cookie values from the response, split out
	// because the compliance analysis keys on them.
	SetCookies []string `json:"set_cookies,omitempty"`
}

// ExchangeLog is the network log of one navigation, in arrival order.
type ExchangeLog []Exchange

// CookiesSet returns every cookie name set by any response in the log.
// Duplicates are preserved in arrival order.
func (l ExchangeLog) CookiesSet() []string {
	var names []string
	for _, exchange := range l {
		for _, setCookie := range exchange.SetCookies {
			if name, ok := cookieName(setCookie); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// cookieName extracts the cookie name from a Set-Cookie header value.
func cookieName(setCookie string) (string, bool) {
	for i := 0; i < len(setCookie); i++ {
		switch setCookie[i] {
		case '=':
			if i == 0 {
				return "", false
			}
			return setCookie[:i], true
		case ';':
			return "", false
		}
	}
	return "", false
}
