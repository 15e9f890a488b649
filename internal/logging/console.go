package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// shortRunIDLen trims UUID run ids in console output; the full id stays in
// JSON logs and the ledger.
const shortRunIDLen = 8

// consoleHandler writes one line per record:
//
//	2026-01-02T15:04:05Z INFO [1a2b3c4d movie.srt] timing: cues synthesized cues=3
//
// The bracketed prefix carries the run id and input file name when present,
// and a component attribute becomes the "name: " label before the message.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Level
	addSource bool
	color     bool

	// run, input and component are lifted out of attrs so they render once
	// in fixed positions instead of as trailing key=value pairs.
	run       string
	input     string
	component string
	attrs     []string
	group     string
}

func newConsoleHandler(w io.Writer, level slog.Level, addSource, color bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource, color: color}
}

// colorEnabled reports whether w is a terminal that should get coloured level
// labels. NO_COLOR disables colouring.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	line := *h
	line.attrs = append([]string(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		line.absorb(h.group, attr)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	label := levelLabel(record.Level)
	if h.color {
		label = levelColor(record.Level) + label + colorReset
	}
	b.WriteString(label)
	b.WriteByte(' ')
	if prefix := line.prefix(); prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	if line.component != "" {
		b.WriteString(line.component)
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if h.addSource && record.PC != 0 {
		src, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
	for _, pair := range line.attrs {
		b.WriteByte(' ')
		b.WriteString(pair)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]string(nil), h.attrs...)
	for _, attr := range attrs {
		next.absorb(h.group, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

// absorb routes one attribute either into a fixed slot or onto the trailing
// key=value list. Groups flatten into dotted keys.
func (h *consoleHandler) absorb(group string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		nested := group
		if attr.Key != "" {
			nested = joinKey(group, attr.Key)
		}
		for _, inner := range attr.Value.Group() {
			h.absorb(nested, inner)
		}
		return
	}
	if group == "" {
		switch attr.Key {
		case FieldRunID:
			h.run = attr.Value.String()
			return
		case FieldSource:
			h.input = attr.Value.String()
			return
		case FieldComponent:
			if h.component == "" {
				h.component = attr.Value.String()
			}
			return
		}
	}
	h.attrs = append(h.attrs, joinKey(group, attr.Key)+"="+formatValue(attr.Value))
}

func (h *consoleHandler) prefix() string {
	var parts []string
	if h.run != "" {
		id := h.run
		if len(id) > shortRunIDLen {
			id = id[:shortRunIDLen]
		}
		parts = append(parts, id)
	}
	if h.input != "" {
		parts = append(parts, filepath.Base(h.input))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func joinKey(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	return s == "" || strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

const colorReset = "\x1b[0m"

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\x1b[31m"
	case level >= slog.LevelWarn:
		return "\x1b[33m"
	case level >= slog.LevelInfo:
		return "\x1b[32m"
	default:
		return "\x1b[90m"
	}
}
