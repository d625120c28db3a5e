package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestMaskCookieHeader tests cookie-value masking.
func TestMaskCookieHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"single pair", "sid=abc123", "sid=***"},
		{"multiple pairs", "sid=abc123; _ga=GA1.2.3", "sid=***; _ga=***"},
		{"set-cookie attributes", "sid=abc; Path=/; HttpOnly", "sid=***; Path=***; HttpOnly"},
		{"value with equals", "token=a=b=c", "token=***"},
		{"empty", "", ""},
		{"no pairs", "HttpOnly", "HttpOnly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := MaskCookieHeader(tt.header); got != tt.want {
				t.Errorf("MaskCookieHeader(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

// TestMaskingHandler tests that cookie attributes are masked end to end.
func TestMaskingHandler(t *testing.T) {
	t.Parallel()

	t.Run("masks cookie attribute values", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New(&buf, false)

		logger.Info("intercepted request",
			"cookie", "sid=supersecret; _ga=GA1.2.3",
			"url", "https://example.com/page",
		)

		out := buf.String()
		if strings.Contains(out, "supersecret") {
			t.Errorf("cookie value leaked into log output: %s", out)
		}
		if !strings.Contains(out, "sid=***") || !strings.Contains(out, "_ga=***") {
			t.Errorf("expected masked cookie names in output: %s", out)
		}
		if !strings.Contains(out, "https://example.com/page") {
			t.Errorf("expected non-cookie attributes untouched: %s", out)
		}
	})

	t.Run("masks attributes added via With", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New(&buf, false).With("set-cookie", "sid=supersecret; Path=/")

		logger.Info("response recorded")

		if strings.Contains(buf.String(), "supersecret") {
			t.Errorf("cookie value leaked via With: %s", buf.String())
		}
	})

	t.Run("verbose enables debug level", func(t *testing.T) {
		t.Parallel()

		var quiet, verbose bytes.Buffer
		New(&quiet, false).Debug("detail")
		New(&verbose, true).Debug("detail")

		if quiet.Len() != 0 {
			t.Errorf("expected debug suppressed without verbose: %s", quiet.String())
		}
		if verbose.Len() == 0 {
			t.Error("expected debug emitted with verbose")
		}
	})

	t.Run("masks inside groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New(&buf, false)

		logger.Info("request", slog.Group("headers", "cookie", "sid=supersecret"))

		if strings.Contains(buf.String(), "supersecret") {
			t.Errorf("cookie value leaked inside group: %s", buf.String())
		}
	})
}
