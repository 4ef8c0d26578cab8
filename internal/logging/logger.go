// Package logging carries the two log streams of the toolkit: leveled
// operational output on stderr via slog, and an append-only JSONL trace
// of optimisation sweeps under the project directory.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug and enables per-step sweep logging, one
// record per threshold or resolution candidate.
const LevelTrace = slog.LevelDebug - 4

// sweepFile is the JSONL trace file name inside the project directory.
const sweepFile = "sweeps.jsonl"

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text slog.Logger on w filtered at the named level.
// Levels are "info", "debug" and "trace", case-insensitive; anything
// else falls back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// slog prints custom levels as DEBUG-4 otherwise.
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	})
	return slog.New(h)
}

// SweepLogger appends sweep events to sweeps.jsonl, one JSON object per
// line, so an optimisation run can be replayed after the fact. It is
// safe for concurrent use, and a nil *SweepLogger discards everything,
// which lets callers thread it through unconditionally.
type SweepLogger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewSweepLogger opens dir/sweeps.jsonl for append when the level is
// "debug" or "trace". At "info", or when the file cannot be opened, it
// returns nil and nothing is written.
func NewSweepLogger(dir, level string) *SweepLogger {
	if parseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, sweepFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &SweepLogger{f: f, enc: json.NewEncoder(f)}
}

// Log appends one event, stamping it with the current UTC time. The
// caller's map is left untouched. No-op on a nil or closed logger.
func (l *SweepLogger) Log(event map[string]any) {
	if l == nil {
		return
	}
	entry := make(map[string]any, len(event)+1)
	maps.Copy(entry, event)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enc == nil {
		return
	}
	_ = l.enc.Encode(entry)
}

// Close releases the trace file. Later Log calls are no-ops. No-op on a
// nil logger.
func (l *SweepLogger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	l.f.Close()
	l.f, l.enc = nil, nil
}
