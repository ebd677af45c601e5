package errors

import (
	"errors"
	"fmt"
)

// Exit codes for dsmr-provision
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitMissingTool     = 2
	ExitInvalidInput    = 3
	ExitDialectRejected = 4
	ExitDeviceError     = 5
	ExitContainerFailed = 6
	ExitConfigError     = 7
	ExitInstallFailed   = 8
)

// ProvisionError is the base error type for dsmr-provision
type ProvisionError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ProvisionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProvisionError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *ProvisionError) ExitCode() int {
	return e.Code
}

// New creates a new ProvisionError
func New(code int, message string) *ProvisionError {
	return &ProvisionError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a ProvisionError
func Wrap(code int, message string, cause error) *ProvisionError {
	return &ProvisionError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// MissingTool returns an error for a required external command that is not installed
func MissingTool(name string) *ProvisionError {
	return New(ExitMissingTool, fmt.Sprintf("required command not found: %s", name))
}

// InvalidInput returns an error for invalid user input
func InvalidInput(message string) *ProvisionError {
	return New(ExitInvalidInput, message)
}

// DialectRejected returns an error when no pct configuration syntax was accepted
func DialectRejected(cause error) *ProvisionError {
	return Wrap(ExitDialectRejected, "no supported pct configuration syntax found", cause)
}

// DeviceError returns an error for device resolution or passthrough failures
func DeviceError(op string, cause error) *ProvisionError {
	return Wrap(ExitDeviceError, fmt.Sprintf("device %s failed", op), cause)
}

// ContainerFailed returns an error for container operations
func ContainerFailed(op string, cause error) *ProvisionError {
	return Wrap(ExitContainerFailed, fmt.Sprintf("container %s failed", op), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *ProvisionError {
	return Wrap(ExitConfigError, message, cause)
}

// InstallFailed returns an error for the in-container install/compose pipeline
func InstallFailed(step string, cause error) *ProvisionError {
	return Wrap(ExitInstallFailed, fmt.Sprintf("install step %q failed", step), cause)
}

// TemplateNotFound returns an error for a missing container template
func TemplateNotFound(name string) *ProvisionError {
	return New(ExitContainerFailed, fmt.Sprintf("container template not found: %s", name))
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var perr *ProvisionError
	if errors.As(err, &perr) {
		return perr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
