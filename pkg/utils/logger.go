package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// NewSugaredLogger builds the process-wide sugared logger. Verbose selects
// zap's development preset (console encoding, debug level) for local indexer
// runs; otherwise the production JSON preset is used.
func NewSugaredLogger(verbose bool) (*zap.SugaredLogger, error) {
	build := zap.NewProduction
	if verbose {
		build = zap.NewDevelopment
	}

	l, err := build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l.Sugar(), nil
}
