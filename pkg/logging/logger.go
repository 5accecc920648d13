package logging

import "go.uber.org/zap"

// NewLogger builds the process logger for the given environment.
// Local and development environments get the console encoder; everything
// else gets production JSON output.
func NewLogger(env string) (*zap.Logger, error) {
	switch env {
	case "local", "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
