// Package osutils reports platform conditions that keep the global hook or
// synthetic clicks from working.
package osutils

import "log/slog"

// Warnings lists problems with the current session, one line each. An empty
// result means nothing is known to be wrong.
func Warnings() []string {
	return platformWarnings()
}

// LogWarnings writes every warning to the default logger and reports whether
// there were any.
func LogWarnings() bool {
	ws := Warnings()
	for _, w := range ws {
		slog.Warn("[osutils] " + w)
	}
	return len(ws) > 0
}
