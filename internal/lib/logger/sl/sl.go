// Package sl holds small slog helpers shared across the project.
package sl

import "log/slog"

// Err wraps an error as a uniform slog attribute.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
