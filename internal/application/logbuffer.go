package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mailwatch/internal/domain/model"
)

// LogBuffer capacity bounds; NewLogBuffer clamps requests outside the range.
const (
	minLogCapacity = 20
	maxLogCapacity = 100
)

// LogBuffer is the bounded in-memory ring of log entries behind GET /logs.
// When full, the oldest entry is evicted first. It is owned by the
// composition root and shared by reference, never a package global.
type LogBuffer struct {
	mu      sync.Mutex
	entries []model.LogEntry
	start   int
	count   int
}

// NewLogBuffer creates a LogBuffer holding at most capacity entries, clamped
// to [20, 100].
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity < minLogCapacity {
		capacity = minLogCapacity
	}
	if capacity > maxLogCapacity {
		capacity = maxLogCapacity
	}
	return &LogBuffer{entries: make([]model.LogEntry, capacity)}
}

// Append adds an entry, evicting the oldest when the buffer is full.
func (b *LogBuffer) Append(entry model.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.count) % len(b.entries)
	b.entries[idx] = entry
	if b.count < len(b.entries) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
}

// Lines returns the buffered entries rendered as strings, oldest first.
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]string, 0, b.count)
	for i := 0; i < b.count; i++ {
		lines = append(lines, b.entries[(b.start+i)%len(b.entries)].String())
	}
	return lines
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Handler returns a slog.Handler that mirrors records at or above level into
// the buffer, so ordinary slog calls feed /logs.
func (b *LogBuffer) Handler(level slog.Leveler) slog.Handler {
	return &bufferHandler{buf: b, level: level}
}

// bufferHandler adapts the LogBuffer to slog.Handler. Attrs are rendered
// inline after the message; groups are not rendered, which is fine for a
// short debug buffer.
type bufferHandler struct {
	buf   *LogBuffer
	level slog.Leveler
	attrs []slog.Attr
}

func (h *bufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *bufferHandler) Handle(_ context.Context, rec slog.Record) error {
	var sb strings.Builder
	sb.WriteString(rec.Message)

	for _, a := range h.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	rec.Attrs(func(a slog.Attr) bool {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
		return true
	})

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	h.buf.Append(model.LogEntry{
		Time:    ts,
		Level:   rec.Level.String(),
		Message: sb.String(),
	})
	return nil
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &bufferHandler{buf: h.buf, level: h.level, attrs: merged}
}

func (h *bufferHandler) WithGroup(string) slog.Handler {
	return h
}

// FanoutHandler duplicates records to multiple handlers. The composition
// root uses it to keep stderr logging while mirroring into the ring buffer.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler creates a FanoutHandler over the given handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *FanoutHandler) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: next}
}

func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &FanoutHandler{handlers: next}
}
