package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrNotFound, "user not found")

	assert.Equal(t, "user not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("handler: %w", ErrDuplicateUsername)
	assert.Equal(t, ErrDuplicateUsername.Code, FromError(wrapped).Code)

	plain := errors.New("boom")
	got := FromError(plain)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.ErrorIs(t, got, plain)
	assert.Equal(t, "internal server error", got.Message)
}

func TestJSONShape(t *testing.T) {
	err := WithFields(ErrValidation, map[string]string{"duration": "must be greater than 0"})

	body, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "validation failed", decoded["error"])
	assert.Equal(t, "VALIDATION_ERROR", decoded["code"])
	assert.Contains(t, decoded, "fields")
	assert.NotContains(t, decoded, "status")
	assert.Nil(t, ErrValidation.Fields)
}
