package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	tests := map[Code]Metadata{
		CodeValidation:        {http.StatusBadRequest, false, "validation failed", true},
		CodeInsufficientStock: {http.StatusBadRequest, false, "insufficient stock", true},
		CodeUnauthorized:      {http.StatusUnauthorized, false, "authentication required", false},
		CodeForbidden:         {http.StatusForbidden, false, "access denied", false},
		CodeNotFound:          {http.StatusNotFound, false, "resource not found", false},
		CodeConflict:          {http.StatusConflict, false, "conflict detected", true},
		CodeIdempotency:       {http.StatusConflict, false, "idempotency key reused", true},
		CodeRateLimit:         {http.StatusTooManyRequests, false, "rate limit exceeded", false},
		CodeInternal:          {http.StatusInternalServerError, true, "internal server error", false},
		CodeDependency:        {http.StatusServiceUnavailable, true, "dependency unavailable", true},
	}
	for code, want := range tests {
		assert.Equal(t, want, MetadataFor(code), string(code))
	}
	assert.Equal(t, tests[CodeInternal], MetadataFor("SOMETHING_UNKNOWN"))
}

func TestNewAndWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "stock insuficiente")
	assert.Equal(t, CodeInsufficientStock, err.Code())
	assert.Equal(t, "stock insuficiente", err.Message())
	assert.Nil(t, err.Details())
	assert.Equal(t, "INSUFFICIENT_STOCK: stock insuficiente", err.Error())

	details := map[string]any{"available": "2.5"}
	assert.Same(t, err, err.WithDetails(details))
	assert.Equal(t, details, err.Details())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("duplicate key")
	err := Wrap(CodeConflict, cause, "unit exists")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeConflict, err.Code())
	assert.Equal(t, "unit exists", err.Message())
}

func TestNilErrorIsSafe(t *testing.T) {
	var err *Error
	assert.Equal(t, CodeInternal, err.Code())
	assert.Empty(t, err.Message())
	assert.Nil(t, err.Details())
	assert.Nil(t, err.WithDetails("ignored"))
	assert.NoError(t, err.Unwrap())
}

func TestAsIsCodeAndMessageOf(t *testing.T) {
	err := fmt.Errorf("load item: %w", New(CodeNotFound, "item not found"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeValidation))
	assert.False(t, IsCode(nil, CodeNotFound))

	assert.Equal(t, "item not found", MessageOf(err))
	assert.Equal(t, "plain", MessageOf(stdErrors.New("plain")))
	assert.Empty(t, MessageOf(nil))
}
