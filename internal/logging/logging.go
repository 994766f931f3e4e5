// Package logging builds the zap logger shared by every command and the
// field helpers that keep account identifiers masked in log lines.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bgricker/checkin/internal/credential"
)

// Options control logger construction.
type Options struct {
	Verbose bool
	Color   bool
}

// New returns a console logger writing to w. Terminal files are wrapped so
// colored levels render on every platform.
func New(w io.Writer, opts Options) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}

	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.Color {
		config.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if f, ok := w.(*os.File); ok {
			w = colorable.NewColorable(f)
		}
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.AddSync(w),
		level,
	))
}

// Account is the only way an account should appear in a log line.
func Account(c credential.Credential) zap.Field {
	return zap.String("account", c.Label())
}
