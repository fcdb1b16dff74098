package task

import "errors"

// Domain errors for tasks.
var (
	// ErrTaskNotFound indicates no task matches the given (project, sequence) key.
	ErrTaskNotFound = errors.New("task not found")

	// ErrProjectNotFound indicates the project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrConfiguration indicates a malformed trigger configuration. A task
	// with a configuration error is blocked until the config is corrected.
	ErrConfiguration = errors.New("invalid task configuration")
)

// ConfigurationError provides detail about a malformed trigger configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid task configuration: " + e.Reason
}

// Is allows errors.Is to work with ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
