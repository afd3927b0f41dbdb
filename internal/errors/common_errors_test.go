package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "invalid input", errType: ErrTypeInvalidInput, expected: "INVALID_INPUT"},
		{name: "analysis", errType: ErrTypeAnalysis, expected: "ANALYSIS"},
		{name: "cancelled", errType: ErrTypeCancelled, expected: "CANCELLED"},
		{name: "not found", errType: ErrTypeNotFound, expected: "NOT_FOUND"},
		{name: "cache corrupt", errType: ErrTypeCacheCorrupt, expected: "CACHE_CORRUPT"},
		{name: "cache write", errType: ErrTypeCacheWrite, expected: "CACHE_WRITE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	withCause := NewAnalysisError(errors.New("bad packet"))
	assert.Equal(t, "[ANALYSIS] demo analysis failed: bad packet", withCause.Error())

	withoutCause := NewNotFoundError("cache entry abc")
	assert.Equal(t, "[NOT_FOUND] cache entry abc not found", withoutCause.Error())
}

func TestAppError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("store: %w", NewCacheWriteError("abc", cause))

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrCacheWrite)
	assert.NotErrorIs(t, err, ErrCacheCorrupt)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "abc", appErr.Context["identity"])
}

func TestIsType(t *testing.T) {
	inner := NewCacheCorruptError("abc", errors.New("gzip: invalid header"))
	outer := NewAnalysisError(inner)

	assert.True(t, IsType(outer, ErrTypeAnalysis))
	assert.True(t, IsType(outer, ErrTypeCacheCorrupt))
	assert.False(t, IsType(outer, ErrTypeCacheWrite))
	assert.False(t, IsType(errors.New("plain"), ErrTypeAnalysis))
	assert.False(t, IsType(nil, ErrTypeAnalysis))
}

func TestIsCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "own kind", err: NewCancelledError("header", nil), want: true},
		{name: "context canceled", err: context.Canceled, want: true},
		{name: "wrapped deadline", err: fmt.Errorf("parse: %w", context.DeadlineExceeded), want: true},
		{name: "analysis error", err: NewAnalysisError(errors.New("eof")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCancelled(tt.err))
		})
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeInvalidInput, TypeOf(NewInvalidInputError("x.dem", nil)))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{name: "cancelled", err: context.Canceled, contains: "cancelled"},
		{name: "invalid input", err: NewInvalidInputError("x.dem", nil), contains: "not a valid demo"},
		{name: "corrupt", err: NewCacheCorruptError("abc", nil), contains: "corrupted"},
		{name: "analysis", err: NewAnalysisError(nil), contains: "analyzing"},
		{name: "generation", err: NewGenerationError("Kills", errors.New("disk full")), contains: "report could not"},
		{name: "unknown", err: errors.New("boom"), contains: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.contains)
		})
	}
	assert.Empty(t, UserMessage(nil))
}

func TestNewGenerationError(t *testing.T) {
	err := NewGenerationError("Kill Matrix", errors.New("write failed"))

	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, "Kill Matrix", err.Context["sheet"])
	assert.False(t, IsCancelled(err))
}
