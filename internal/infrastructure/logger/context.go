package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

// ExportIDKey is the context key for the export run identifier
const ExportIDKey contextKey = "export_id"

// WithExportID adds an export run identifier to context and returns a
// logger enriched with it. Queries traced through GormLogger pick the
// identifier up from the context, tying SQL logs to the export run.
func WithExportID(ctx context.Context, logger *zap.Logger, exportID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ExportIDKey, exportID)
	return ctx, logger.With(zap.String("export_id", exportID))
}

// GetExportID retrieves the export run identifier from context
func GetExportID(ctx context.Context) string {
	if exportID, ok := ctx.Value(ExportIDKey).(string); ok {
		return exportID
	}
	return ""
}
