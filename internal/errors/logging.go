package errors

import (
	"github.com/sirupsen/logrus"
)

// LogError logs an error through the given logger, flattening AppError
// structure into logrus fields.
func LogError(logger *logrus.Logger, err error, message string, fields ...logrus.Fields) {
	entry := entryFor(logger, err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Error(message)
}

// LogWarn logs a warning with the same structured treatment as LogError.
func LogWarn(logger *logrus.Logger, err error, message string, fields ...logrus.Fields) {
	entry := entryFor(logger, err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Warn(message)
}

func entryFor(logger *logrus.Logger, err error) *logrus.Entry {
	entry := logger.WithError(err)
	if appErr, ok := err.(*AppError); ok {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"retryable":  appErr.Retryable,
		})
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}
	return entry
}
