// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select level and an optional rotated file sink.
type Options struct {
	Level string // debug, info, warn, error; empty means info
	File  string // rotated JSON file teed with stderr when set
}

// New returns a JSON production logger writing to stderr and, optionally, a rotated file.
func New(o Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if o.Level != "" {
		if err := lvl.UnmarshalText([]byte(o.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", o.Level, err)
		}
	}

	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl),
	}
	if o.File != "" {
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(rotator(o.File)), lvl))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func rotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
}
