// Package observer provides tracer.Observer implementations: a host sink
// adapter, a slog logger, a recorder adapter and a fan-out.
package observer
