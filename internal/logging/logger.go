package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithRunID returns a logger with sync_run_id field
func WithRunID(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String("sync_run_id", runID))
}

// WithTenant returns a logger with tenant identity fields
func WithTenant(logger *zap.Logger, tenantName, schema string) *zap.Logger {
	return logger.With(
		zap.String("tenant", tenantName),
		zap.String("schema", schema),
	)
}
