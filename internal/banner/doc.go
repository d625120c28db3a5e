// Package banner resolves cookie consent prompts on a loaded page.
//
// It offers two routes. DetectCMPs and RejectViaCMP talk to consent
// management platforms (OneTrust, Cookiebot, Didomi, ...) through their
// programmatic APIs, which is the preferred path because it is unambiguous.
// The Heuristic interface covers everything else: a pluggable banner
// resolver that hunts for accept or reject controls on the rendered page.
// Wordlist is the built-in implementation, matching control text against
// phrase tables with a one-level settings-dialog fallback for rejection.
package banner
