package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "roleplay-chat/backend/pkg/errors"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		in   error
		want *apperrors.AppError
	}{
		{errors.New("googleapi: Error 400: API_KEY_INVALID"), apperrors.ErrInvalidCredentials},
		{errors.New("429 QUOTA_EXCEEDED for project"), apperrors.ErrQuotaExceeded},
		{errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), apperrors.ErrQuotaExceeded},
		{errors.New("candidate blocked: SAFETY"), apperrors.ErrSafetyBlocked},
		{fmt.Errorf("wrapped: %w", apperrors.ErrEmptyResponse), apperrors.ErrEmptyResponse},
	}
	for _, tc := range cases {
		got := MapError(tc.in)
		assert.True(t, apperrors.Is(got, tc.want), tc.in.Error())
	}
}

func TestMapErrorKeepsRawMessage(t *testing.T) {
	got := MapError(errors.New("connection reset by peer"))
	appErr, ok := apperrors.As(got)
	assert.True(t, ok)
	assert.Equal(t, apperrors.CodeProviderError, appErr.Code)
	assert.Equal(t, "connection reset by peer", appErr.Message)
}

func TestMapErrorContext(t *testing.T) {
	got := MapError(context.DeadlineExceeded)
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.Equal(t, apperrors.CodeProviderError, apperrors.GetErrorCode(got))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "AI provider quota exceeded. Please try again later.", Reason(errors.New("QUOTA_EXCEEDED")))
	assert.Equal(t, "", Reason(nil))
	assert.Nil(t, MapError(nil))
}
