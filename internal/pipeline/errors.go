package pipeline

import "fmt"

// InputError marks a client-caused failure (bad upload, unknown chain,
// out-of-range count). The API maps it to a 422.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// NewInputError builds an InputError with printf formatting
func NewInputError(format string, args ...interface{}) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// ConfigError marks a deployment-caused failure (missing model install,
// missing runtime identifier). Fatal for the request, never defaulted away.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError builds a ConfigError with printf formatting
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// ExecutionError carries the diagnostics of a failed external step.
// Returncode is 124 when the step hit its timeout.
type ExecutionError struct {
	Message    string
	Returncode int
	Stdout     string
	Stderr     string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s (returncode=%d)", e.Message, e.Returncode)
}

// BusyError signals admission rejection; the job itself never started.
type BusyError struct {
	MaxConcurrent int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("busy: %d design jobs already running", e.MaxConcurrent)
}
