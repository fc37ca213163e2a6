package logger

import "go.uber.org/zap"

// New builds the process logger: human-readable output for development and
// local runs, JSON everywhere else.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "development", "local", "test":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
