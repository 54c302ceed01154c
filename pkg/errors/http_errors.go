package errors

import "fmt"

// FromError converts a standard error to an AppError
// If the error wraps an AppError, that one is returned
// Otherwise, it is wrapped as an internal server error
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := As(err); ok {
		return appErr
	}

	return NewInternalServerError(
		CodeInternal,
		fmt.Sprintf("An unexpected error occurred: %s", err.Error()),
	).WithCause(err)
}

// GetErrorCode extracts the error code, returns "UNKNOWN_ERROR" if not an AppError
func GetErrorCode(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorMessage extracts the user-facing message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return err.Error()
}
