package audit

import "fmt"

// StorageError represents a failure in the persistence backend.
type StorageError struct {
	Backend   string // Storage backend type ("jsonl", "sqlite", "memory")
	Operation string // Operation that failed ("append", "query", "delete")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// CallbackError represents a failure in an alert callback.
type CallbackError struct {
	AlertID string // Alert being delivered
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("alert callback error [alert_id=%s]: %v", e.AlertID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CallbackError) Unwrap() error {
	return e.Cause
}

// NewCallbackError creates a new CallbackError.
func NewCallbackError(alertID string, cause error) *CallbackError {
	return &CallbackError{
		AlertID: alertID,
		Cause:   cause,
	}
}

// RetentionError represents a failure during retention pruning.
type RetentionError struct {
	RetentionDays int   // Configured retention period
	Cause         error // Underlying error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("audit retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}
