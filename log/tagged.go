package log

// Tagged prefixes every message with a component tag, i.e.:
// [2022-01-01 10:00:00]  WAR  [table:pipe.ingress.fwd] skipping read only field: counter
type Tagged struct {
	prefix string
}

// NewTagged returns a logger for the given component and object name.
// The name can be empty.
func NewTagged(component, name string) Tagged {
	if name == "" {
		return Tagged{prefix: "[" + component + "] "}
	}
	return Tagged{prefix: "[" + component + ":" + name + "] "}
}

// Debug logs a debug message with the tag.
func (t Tagged) Debug(format string, args ...interface{}) {
	Log(DEBUG, t.prefix+format, args...)
}

// Info logs an informative message with the tag.
func (t Tagged) Info(format string, args ...interface{}) {
	Log(INFO, t.prefix+format, args...)
}

// Warning logs a non-critical error with the tag.
func (t Tagged) Warning(format string, args ...interface{}) {
	Log(WARNING, t.prefix+format, args...)
}

// Error logs an error with the tag.
func (t Tagged) Error(format string, args ...interface{}) {
	Log(ERROR, t.prefix+format, args...)
}
