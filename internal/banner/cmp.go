package banner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/consentscan/consentscan/internal/driver"
)

// ErrNoRejectPath is returned by RejectViaCMP for a CMP that was detected
// but exposes no programmatic reject call.
var ErrNoRejectPath = errors.New("cmp has no programmatic reject path")

// detectScript probes the page for well-known consent management platform
// globals. Detection is by presence only; no CMP API is called here, so
// running it cannot change consent state.
//
// The never-consent extension records the CMP it matched under the
// localStorage key "nc_cmp"; that name is surfaced too when present.
const detectScript = `(() => {
	const found = [];
	if (typeof window.__tcfapi === "function") found.push("tcf");
	if (typeof window.__cmp === "function") found.push("iab-cmp-v1");
	if (window.OneTrust || document.getElementById("onetrust-banner-sdk")) found.push("onetrust");
	if (window.Cookiebot) found.push("cookiebot");
	if (window.Didomi) found.push("didomi");
	if (window.truste || window.TRUSTe) found.push("trustarc");
	if (window._sp_) found.push("sourcepoint");
	if (window.UC_UI) found.push("usercentrics");
	if (window.Osano) found.push("osano");
	if (window.klaro) found.push("klaro");
	try {
		const nc = window.localStorage.getItem("nc_cmp");
		if (nc && !found.includes(nc)) found.push(nc);
	} catch (e) {}
	return found;
})()`

// rejectScripts maps a detected CMP name to the script invoking its
// programmatic reject-all path. The script must evaluate to true on
// success. CMPs without an entry (notably the read-only TCF API) can only
// be resolved through the generic banner heuristic.
var rejectScripts = map[string]string{
	"onetrust": `(() => {
		if (window.OneTrust && typeof window.OneTrust.RejectAll === "function") {
			window.OneTrust.RejectAll();
			return true;
		}
		return false;
	})()`,
	"cookiebot": `(() => {
		if (window.Cookiebot && typeof window.Cookiebot.submitCustomConsent === "function") {
			window.Cookiebot.submitCustomConsent(false, false, false);
			return true;
		}
		return false;
	})()`,
	"didomi": `(() => {
		if (window.Didomi && typeof window.Didomi.setUserDisagreeToAll === "function") {
			window.Didomi.setUserDisagreeToAll();
			return true;
		}
		return false;
	})()`,
	"osano": `(() => {
		if (window.Osano && window.Osano.cm && typeof window.Osano.cm.deny === "function") {
			window.Osano.cm.deny();
			return true;
		}
		return false;
	})()`,
}

// DetectCMPs returns the names of consent management platforms present on
// the active page, in probe order. An empty slice means none were found.
func DetectCMPs(ctx context.Context, d driver.Driver) ([]string, error) {
	raw, err := d.RunScript(ctx, detectScript)
	if err != nil {
		return nil, fmt.Errorf("probe cmps: %w", err)
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode cmp probe result: %w", err)
	}
	return names, nil
}

// RejectViaCMP invokes the programmatic reject-all path of the named CMP.
// ErrNoRejectPath is returned when the CMP exposes none; any other failure
// means the CMP was expected on the page but its API refused the call.
func RejectViaCMP(ctx context.Context, d driver.Driver, name string) error {
	script, ok := rejectScripts[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRejectPath, name)
	}

	raw, err := d.RunScript(ctx, script)
	if err != nil {
		return fmt.Errorf("reject via %s: %w", name, err)
	}

	var done bool
	if err := json.Unmarshal(raw, &done); err != nil {
		return fmt.Errorf("decode %s reject result: %w", name, err)
	}
	if !done {
		return fmt.Errorf("reject via %s: api not callable", name)
	}
	return nil
}

// HasRejectPath reports whether RejectViaCMP can handle the named CMP.
func HasRejectPath(name string) bool {
	_, ok := rejectScripts[name]
	return ok
}
