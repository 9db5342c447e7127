package logging

import "log/slog"

// WithTable returns a logger tagged with a table name.
//
//	log := logging.WithTable("cpu")
//	log.Info("table loaded", "rows", n)
func WithTable(name string) *slog.Logger {
	return GetLogger().With("table", name)
}

// WithComponent returns a logger tagged with a subsystem name, such as
// "optimizer" or "executor".
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError returns a logger carrying err as a structured field.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
