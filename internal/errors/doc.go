// Package errors provides typed errors with exit codes for dsmr-provision.
//
// # Error Types
//
// ProvisionError is the base error type that wraps an error with an exit code:
//
//	type ProvisionError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// Defined exit codes for different error categories:
//
//	ExitSuccess          = 0  // Success
//	ExitGeneralError     = 1  // General/unknown errors
//	ExitMissingTool      = 2  // Required external command not found
//	ExitInvalidInput     = 3  // Invalid user input
//	ExitDialectRejected  = 4  // No pct configuration dialect accepted
//	ExitDeviceError      = 5  // Device resolution or passthrough failed
//	ExitContainerFailed  = 6  // Container operation failed
//	ExitConfigError      = 7  // Configuration error
//	ExitInstallFailed    = 8  // In-container install/compose pipeline failed
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.MissingTool("pct")
//	errors.DeviceError("resolve", err)
//	errors.ContainerFailed("start", err)
//	errors.InstallFailed("podman-compose up", err)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
