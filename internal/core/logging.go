package core

import "github.com/rs/zerolog"

// zlog is the package logger. Defaults to a no-op logger; the daemon installs
// a real one at startup.
var zlog = zerolog.Nop()

// SetLogger installs the structured logger used for verbose request and
// buffer-lifecycle tracing.
func SetLogger(l zerolog.Logger) { zlog = l }
