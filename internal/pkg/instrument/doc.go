// Package instrument wires OpenTelemetry tracing, metrics and logs, and
// installs the process-wide slog logger.
//
// Log records are JSON on stdout, tagged with the request correlation ID and
// scrubbed of configured secret fields. When instrumentation is enabled the
// same records are also exported over OTLP.
package instrument
