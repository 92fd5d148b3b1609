package goerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		err        error
		wantType   goerror.Type
		wantCode   goerror.Code
		wantStatus int
		wantMsg    string
	}{
		{
			name: "server", err: goerror.NewServer(cause),
			wantType: goerror.TypeServer, wantCode: goerror.CodeInternal,
			wantStatus: http.StatusInternalServerError, wantMsg: "Internal server error",
		},
		{
			name: "business unauthorized", err: goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized),
			wantType: goerror.TypeBusiness, wantCode: goerror.CodeUnauthorized,
			wantStatus: http.StatusUnauthorized, wantMsg: "Authentication required",
		},
		{
			name: "business unavailable", err: goerror.NewBusiness("down", goerror.CodeUnavailable),
			wantType: goerror.TypeBusiness, wantCode: goerror.CodeUnavailable,
			wantStatus: http.StatusServiceUnavailable, wantMsg: "down",
		},
		{
			name: "invalid format default", err: goerror.NewInvalidFormat(),
			wantType: goerror.TypeValidation, wantCode: goerror.CodeInvalidFormat,
			wantStatus: http.StatusBadRequest, wantMsg: "Invalid request body",
		},
		{
			name: "invalid format custom", err: goerror.NewInvalidFormat("Unsupported content type"),
			wantType: goerror.TypeValidation, wantCode: goerror.CodeInvalidFormat,
			wantStatus: http.StatusBadRequest, wantMsg: "Unsupported content type",
		},
		{
			name: "invalid input odd pairs", err: goerror.NewInvalidInput(nil, "to"),
			wantType: goerror.TypeValidation, wantCode: goerror.CodeInvalidFormat,
			wantStatus: http.StatusBadRequest, wantMsg: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge, ok := goerror.As(fmt.Errorf("wrapped: %w", tt.err))

			require.True(t, ok)
			assert.Equal(t, tt.wantType, ge.Type())
			assert.Equal(t, tt.wantCode, ge.Code())
			assert.Equal(t, tt.wantStatus, ge.StatusCode())
			assert.Equal(t, tt.wantMsg, ge.Msg())
		})
	}
}

func TestNewInvalidInput_Fields(t *testing.T) {
	err := goerror.NewInvalidInput(nil, "smtpHost", "smtpHost is a required field")

	ge, ok := goerror.As(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"smtpHost": "smtpHost is a required field"}, ge.Fields())
	assert.Equal(t, http.StatusUnprocessableEntity, ge.StatusCode())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	err := goerror.NewServer(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dial tcp: refused", err.Error())
	assert.Contains(t, err.(fmt.Stringer).String(), "ERROR_CODE_INTERNAL")
}

func TestAs_NotGoerror(t *testing.T) {
	_, ok := goerror.As(errors.New("plain"))
	assert.False(t, ok)
}
