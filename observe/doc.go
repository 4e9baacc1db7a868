// Package observe adapts attrcache.Observer events to Prometheus metrics and
// OpenTelemetry traces.
package observe
