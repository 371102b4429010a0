// Package vmlog holds the layer's logger. Output is discarded unless the
// embedding runtime calls Init, so library consumers never see stray output
// on stderr.
package vmlog

import (
	"io"
	"log/slog"
	"os"
)

// L is the shared logger. It discards everything until Init is called.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures logger initialization.
type Options struct {
	// Writer receives log output. Default: os.Stderr.
	Writer io.Writer

	// Level is the minimum level emitted. Default: slog.LevelInfo.
	Level slog.Level
}

// Init routes the layer's log output to the given writer at the given level.
// Call once from the runtime entry point before creating the OS layer.
func Init(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level}))
}
