package elmanrnn

import "fmt"

// A ShapeError indicates a tensor whose rank or axis
// sizes do not match the configured sizes.
type ShapeError struct {
	Op     string
	Reason string
}

func shapeErrorf(op, format string, args ...interface{}) *ShapeError {
	return &ShapeError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// Error returns a human-readable message.
func (s *ShapeError) Error() string {
	return s.Op + ": " + s.Reason
}

// A ConfigError indicates invalid construction
// parameters, such as a non-positive size or an unknown
// nonlinearity.
type ConfigError struct {
	Field  string
	Reason string
}

// Error returns a human-readable message.
func (c *ConfigError) Error() string {
	return "invalid " + c.Field + ": " + c.Reason
}
