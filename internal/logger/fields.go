package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured log field keys shared by the matching pipeline.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldCohort   = "cohort_id"
	FieldRun      = "run_id"
	FieldMode     = "mode"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace and
// omitting entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithProvider tags logger with the AI provider and model serving a component.
func WithProvider(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}

// WithRun tags logger with the cohort, run id and mode of a matching run.
func WithRun(logger *zap.Logger, cohortID, runID, mode string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldCohort, Value: cohortID},
		StringField{Key: FieldRun, Value: runID},
		StringField{Key: FieldMode, Value: mode},
	)...)
}
