package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// MaskValue replaces cookie values in log output.
const MaskValue = "***"

// cookieKeys are attribute keys whose values hold cookie pairs.
var cookieKeys = map[string]bool{
	"cookie":     true,
	"set-cookie": true,
	"set_cookie": true,
	"cookies":    true,
}

// MaskingHandler wraps an slog.Handler and masks cookie values in records
// before they reach the underlying handler. Cookie names pass through.
//
// Design decision: We wrap a handler rather than defining a custom logger
// because:
//  1. It composes with any output handler (text, JSON)
//  2. Call sites keep using standard slog APIs
//  3. Masking happens exactly once, at the boundary
type MaskingHandler struct {
	// handler is the underlying handler that receives masked records.
	handler slog.Handler
}

// NewMaskingHandler wraps the given handler.
// A nil handler defaults to slog.Default().Handler().
func NewMaskingHandler(handler slog.Handler) *MaskingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &MaskingHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *MaskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a handler with the given attributes added, masked.
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &MaskingHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a handler with the given group name.
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute, recursing into groups.
func (h *MaskingHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	if cookieKeys[strings.ToLower(a.Key)] && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, MaskCookieHeader(a.Value.String()))
	}
	return a
}

// MaskCookieHeader rewrites every "name=value" pair in a cookie header to
// "name=***", preserving names, separators, and attribute flags.
func MaskCookieHeader(header string) string {
	parts := strings.Split(header, ";")
	for i, part := range parts {
		name, _, found := strings.Cut(part, "=")
		if !found {
			continue // bare attribute such as HttpOnly
		}
		parts[i] = name + "=" + MaskValue
	}
	return strings.Join(parts, ";")
}

// New creates a logger that writes human-readable records to w with cookie
// values masked. Verbose enables debug-level output.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewMaskingHandler(inner))
}
