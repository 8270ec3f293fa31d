// Package logging builds the zap logger from config.
package logging

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console logger when development is set.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid log level", goerr.V("level", level))
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build logger")
	}
	return logger, nil
}

// ErrorFields returns the error plus the goerr values attached along the wrap chain.
func ErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var ge *goerr.Error
	if errors.As(err, &ge) {
		if vals := ge.Values(); len(vals) > 0 {
			fields = append(fields, zap.Any("values", vals))
		}
	}
	return fields
}
