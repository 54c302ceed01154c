package provider

import (
	"context"
	"errors"
	"strings"

	apperrors "roleplay-chat/backend/pkg/errors"
)

// MapError converts a backend failure into the user-facing provider error.
// Errors that already are provider AppErrors pass through.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ProviderError(err.Error()).WithCause(err)
	}
	if appErr, ok := apperrors.As(err); ok {
		switch appErr.Code {
		case apperrors.CodeInvalidCredentials, apperrors.CodeQuotaExceeded,
			apperrors.CodeSafetyBlocked, apperrors.CodeEmptyResponse, apperrors.CodeProviderError:
			return appErr
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "API_KEY_INVALID"):
		return apperrors.ErrInvalidCredentials.WithCause(err)
	case strings.Contains(msg, "QUOTA_EXCEEDED"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return apperrors.ErrQuotaExceeded.WithCause(err)
	case strings.Contains(msg, "SAFETY"):
		return apperrors.ErrSafetyBlocked.WithCause(err)
	default:
		return apperrors.ProviderError(msg).WithCause(err)
	}
}

// Reason is the message stored in the conversation error field
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := apperrors.As(MapError(err)); ok {
		return appErr.Message
	}
	return err.Error()
}
