package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestClickstreamJSON tests that the action sum type survives persistence.
func TestClickstreamJSON(t *testing.T) {
	t.Parallel()

	t.Run("round trip preserves action kinds and order", func(t *testing.T) {
		t.Parallel()

		stream := Clickstream{
			SelectorAction{Selector: "#accept", ElementType: "button"},
			GoBackAction{},
			SelectorAction{Selector: "nav > a:nth-of-type(2)", ElementType: "a"},
		}

		data, err := json.Marshal(stream)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		var decoded Clickstream
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if len(decoded) != 3 {
			t.Fatalf("expected 3 actions, got %d", len(decoded))
		}
		first, ok := decoded[0].(SelectorAction)
		if !ok || first.Selector != "#accept" || first.ElementType != "button" {
			t.Errorf("unexpected first action: %#v", decoded[0])
		}
		if _, ok := decoded[1].(GoBackAction); !ok {
			t.Errorf("expected GoBackAction, got %#v", decoded[1])
		}
	})

	t.Run("rejects unknown action kind", func(t *testing.T) {
		t.Parallel()

		var decoded Clickstream
		err := json.Unmarshal([]byte(`[{"kind":"double_click","selector":"#x"}]`), &decoded)
		if err == nil || !strings.Contains(err.Error(), "unknown action kind") {
			t.Errorf("expected unknown-kind error, got %v", err)
		}
	})
}

// TestCrawlResultSucceeded tests the success criteria used by analysis.
func TestCrawlResultSucceeded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CrawlResult)
		want   bool
	}{
		{"resolved and clean", func(r *CrawlResult) { r.URL = "https://example.com" }, true},
		{"unresolved", func(r *CrawlResult) {}, false},
		{"landing page down", func(r *CrawlResult) {
			r.URL = "https://example.com"
			r.LandingPageDown = true
		}, false},
		{"unexpected exception", func(r *CrawlResult) {
			r.URL = "https://example.com"
			r.UnexpectedException = true
		}, false},
		{"force killed", func(r *CrawlResult) {
			r.URL = "https://example.com"
			r.ForceKilled = true
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := NewCrawlResult("example.com")
			tt.mutate(result)
			if got := result.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("new result is all-unset", func(t *testing.T) {
		t.Parallel()

		result := NewCrawlResult("example.com")
		if result.InteractStatus != InteractUnset {
			t.Errorf("expected InteractUnset, got %d", result.InteractStatus)
		}
		if result.URL != "" || result.LandingPageDown || result.UnexpectedException {
			t.Error("expected zero flags on a fresh result")
		}
	})
}

// TestExchangeLogCookiesSet tests Set-Cookie name extraction.
func TestExchangeLogCookiesSet(t *testing.T) {
	t.Parallel()

	log := ExchangeLog{
		{SetCookies: []string{"sid=abc123; Path=/; HttpOnly", "_ga=GA1.2.3; Domain=.example.com"}},
		{SetCookies: []string{"sid=def456; Path=/"}},
		{SetCookies: []string{"; Path=/", "=nameless", "novalue"}},
	}

	got := log.CookiesSet()
	want := []string{"sid", "_ga", "sid"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
