package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loggerName = "checkpointviewer"

// NewSugaredLogger returns the process logger. Verbose selects the console
// development encoder at debug level, which also surfaces resolver stage
// transitions; otherwise JSON at info level. Both write to stderr so command
// output on stdout stays machine readable.
func NewSugaredLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger (verbose=%t): %w", verbose, err)
	}
	return l.Named(loggerName).Sugar(), nil
}
