package logging

import (
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to use JSON output at the given level.
// Every record carries the service name so log streams from the api and the
// migrator stay distinguishable.
func SetupJSON(service string, level slog.Level) {
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	).With(slog.String("service", service))
	slog.SetDefault(logger)
}
