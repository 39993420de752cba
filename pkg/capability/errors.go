package capability

import "fmt"

// RegistrationError represents a failure to register a capability.
type RegistrationError struct {
	Name  string // Capability name being registered
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("capability registration error [name=%s]: %v", e.Name, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RegistrationError) Unwrap() error {
	return e.Cause
}

// NewRegistrationError creates a new RegistrationError.
func NewRegistrationError(name string, cause error) *RegistrationError {
	return &RegistrationError{
		Name:  name,
		Cause: cause,
	}
}

// HookDiagnostic records a recovered hook failure. Hook failures never
// abort execution; they accumulate here so they are testable instead of
// being printed.
type HookDiagnostic struct {
	// Phase is "pre" or "post".
	Phase string

	// Capability is the call being dispatched when the hook failed.
	Capability string

	// Message describes the failure.
	Message string
}
