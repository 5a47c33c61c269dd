package exception_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	cause := errors.New("disk full")
	err := exception.NewBatchError("parquet_writer", "failed to upload part file", cause, false, true)

	assert.Equal(t, "[parquet_writer] failed to upload part file: disk full", err.Error())
	assert.True(t, err.IsRetryable())
	assert.False(t, err.IsSkippable())
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.StackTrace)
}

func TestNewBatchErrorf_TrailingArguments(t *testing.T) {
	err := exception.NewBatchErrorf("unpivot", "column '%s' is missing", "F1961", true, false, io.EOF)

	assert.Equal(t, "column 'F1961' is missing", err.Message)
	assert.True(t, err.IsSkippable())
	assert.False(t, err.IsRetryable())
	assert.ErrorIs(t, err, io.EOF)

	plain := exception.NewBatchErrorf("unpivot", "%d rows", 62)
	assert.Equal(t, "[unpivot] 62 rows", plain.Error())
	assert.Nil(t, plain.OriginalErr)
}

func TestIsBatchError_FollowsWrapping(t *testing.T) {
	be := exception.NewBatchError("config", "bad", nil, false, false)
	wrapped := fmt.Errorf("outer: %w", be)

	assert.True(t, exception.IsBatchError(wrapped))
	assert.False(t, exception.IsBatchError(errors.New("plain")))
	assert.False(t, exception.IsBatchError(nil))
}

func TestIsFatalAndTemporary(t *testing.T) {
	assert.True(t, exception.IsFatal(exception.NewBatchError("m", "x", nil, false, false)))
	assert.False(t, exception.IsFatal(exception.NewBatchError("m", "x", nil, true, false)))
	assert.True(t, exception.IsFatal(errors.New("anything")))
	assert.False(t, exception.IsFatal(nil))

	assert.True(t, exception.IsTemporary(exception.NewBatchError("m", "x", nil, false, true)))
	assert.True(t, exception.IsTemporary(context.DeadlineExceeded))
	assert.False(t, exception.IsTemporary(errors.New("invalid year label")))
}

func TestIsErrorOfType(t *testing.T) {
	err := exception.NewBatchError("csv_extract", "read failed", fmt.Errorf("short read: %w", io.ErrUnexpectedEOF), false, false)

	assert.True(t, exception.IsErrorOfType(err, "io.ErrUnexpectedEOF"))
	assert.True(t, exception.IsErrorOfType(err, "short read"))
	assert.False(t, exception.IsErrorOfType(err, "context.Canceled"))
}

func TestRegisterErrorType(t *testing.T) {
	sentinel := errors.New("custom sentinel")
	exception.RegisterErrorType("test.CustomSentinel", sentinel)

	require.True(t, exception.IsErrorTypeRegistered("test.CustomSentinel"))
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("wrap: %w", sentinel), "test.CustomSentinel"))

	assert.Panics(t, func() { exception.RegisterErrorType("", sentinel) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil", nil) })
}

func TestOptimisticLockingFailure(t *testing.T) {
	err := exception.NewOptimisticLockingFailureException("job_repository", "version mismatch", errors.New("0 rows affected"))

	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.True(t, exception.IsFatal(err))
	assert.Equal(t, "version mismatch", exception.ExtractErrorMessage(err))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "boom", exception.ExtractErrorMessage(errors.New("boom")))
	assert.Equal(t, "short", exception.ExtractErrorMessage(fmt.Errorf("ctx: %w", exception.NewBatchError("m", "short", errors.New("long cause"), false, false))))
}
