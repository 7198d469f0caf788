package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the table loaders,
// the aggregation pipeline and the renderers. It defaults to log.Printf but
// may be replaced by SetLogger so tests can capture or mute ingestion noise.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
