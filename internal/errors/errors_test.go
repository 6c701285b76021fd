package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("agent not found")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Contains(t, err.Error(), "not_found")
}

func TestUnavailableError(t *testing.T) {
	err := UnavailableError("no agent available")

	assert.Equal(t, TypeUnavailable, err.Type)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "no agent available")
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("store connection failed")
	err := InternalError("failed to save agent", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "failed to save agent")
	assert.Contains(t, err.Error(), "store connection failed")
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.Nil(t, err.Cause)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestExternalError(t *testing.T) {
	cause := fmt.Errorf("redis timeout")
	err := ExternalError("store unavailable", cause)

	assert.Equal(t, TypeExternal, err.Type)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
	assert.Contains(t, err.Error(), "external")
	assert.Contains(t, err.Error(), "redis timeout")
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := InternalError("wrapped", cause)

	assert.ErrorIs(t, err, cause)
}

func TestWithField(t *testing.T) {
	err := NotFoundError("conversation not found").
		WithField("conversation_id", "conv-123").
		WithField("agent_id", "a-1")

	assert.Len(t, err.Context, 2)
	assert.Equal(t, "conv-123", err.Context["conversation_id"])
	assert.Equal(t, "a-1", err.Context["agent_id"])
}

func TestWithContextNilMap(t *testing.T) {
	err := &Error{Type: TypeValidation, Message: "test"}
	err = err.WithContext("k", "v")

	require.NotNil(t, err.Context)
	assert.Equal(t, "v", err.Context["k"])
}

func TestToResponse(t *testing.T) {
	err := ValidationError("bad score").WithField("score", 2.0)
	resp := err.ToResponse()

	assert.Equal(t, "bad score", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, 2.0, resp.Context["score"])
}

func TestAsStructuredError(t *testing.T) {
	structured := NotFoundError("gone")
	assert.Same(t, structured, AsStructuredError(structured))

	wrapped := fmt.Errorf("outer: %w", structured)
	assert.Same(t, structured, AsStructuredError(wrapped))

	plain := AsStructuredError(errors.New("boom"))
	assert.Equal(t, TypeInternal, plain.Type)
	assert.Equal(t, "internal server error", plain.Message)

	assert.Nil(t, AsStructuredError(nil))
}
