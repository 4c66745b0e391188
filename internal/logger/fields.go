package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldMissionID   = "mission_id"
	FieldCandidateID = "candidate_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MissionFields returns the fields identifying a mission.
func MissionFields(missionID string) []zap.Field {
	return StringFields(StringField{Key: FieldMissionID, Value: missionID})
}

// AssignmentFields returns the fields identifying a mission and a candidate.
// Empty values are skipped.
func AssignmentFields(missionID, candidateID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldMissionID, Value: missionID},
		StringField{Key: FieldCandidateID, Value: candidateID},
	)
}
