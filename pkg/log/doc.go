// Package log provides structured logging built on zerolog.
//
// A single global Logger is configured once via Init; components obtain
// child loggers scoped to themselves via WithComponent and friends so
// that every line carries enough context to trace back to its source
// without repeating fields at every call site.
package log
