// Package logger builds the zap loggers used by the wpsctl binary.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to w at level. development switches to
// the human readable console encoder. A nil w writes to stderr.
func New(w io.Writer, level string, development bool) (*zap.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	opts := []zap.Option{zap.AddCaller()}
	if development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}
