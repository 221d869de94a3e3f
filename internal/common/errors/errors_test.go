// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// 1. StandardError Tests
// ==========================

func TestStandardError(t *testing.T) {
	t.Run("error string carries code and message", func(t *testing.T) {
		err := NewJobNotFoundError("job-42")
		assert.Equal(t, "StandardError[JOB_NOT_FOUND]: Job posting not found", err.Error())
		assert.Equal(t, "jobId: job-42", err.Details)
	})

	t.Run("IsCode matches through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("load application: %w", NewApplicationNotFoundError("app-1"))
		assert.True(t, IsCode(wrapped, ErrCodeApplicationNotFound))
		assert.False(t, IsCode(wrapped, ErrCodeJobNotFound))
	})

	t.Run("IsCode rejects plain errors", func(t *testing.T) {
		assert.False(t, IsCode(errors.New("boom"), ErrCodeValidationFailed))
	})
}

func TestConstructorRetryability(t *testing.T) {
	boom := errors.New("boom")

	retryable := []*StandardError{
		NewDatabaseConnectionFailedError(boom),
		NewQueryExecutionFailedError("update-status", boom),
		NewDatabaseInsertFailedError(boom),
		NewSearchQueryFailedError("rank-candidates", boom),
		NewNotificationSendFailedError("email", boom),
	}
	for _, err := range retryable {
		assert.True(t, err.Retryable, "code %s should be retryable", err.Code)
	}

	notRetryable := []*StandardError{
		NewInvalidTransitionError("hired", "submitted", nil),
		NewStaleStatusError("app-1", "screening"),
		NewApplicationNotFoundError("app-1"),
		NewJobNotFoundError("job-1"),
		NewCandidateNotFoundError("cand-1"),
		NewResumeNotFoundError("res-1"),
		NewValidationFailedError("jobId is required"),
		NewCommissionConfigError("overlapping tiers"),
		NewUnknownError(boom),
	}
	for _, err := range notRetryable {
		assert.False(t, err.Retryable, "code %s should not be retryable", err.Code)
	}
}

func TestNewInvalidTransitionError(t *testing.T) {
	err := NewInvalidTransitionError("hired", "submitted", []string{"onboarding"})

	assert.Equal(t, ErrCodeInvalidTransition, err.Code)
	assert.Equal(t, "from: hired, to: submitted", err.Details)
	assert.Equal(t, "hired", err.Metadata["currentStatus"])
	assert.Equal(t, "submitted", err.Metadata["requestedStatus"])
	assert.Equal(t, []string{"onboarding"}, err.Metadata["validTransitions"])
}

// ==========================
// 2. BPMN Conversion Tests
// ==========================

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable technical error keeps its budget", func(t *testing.T) {
		stdErr := NewQueryExecutionFailedError("pipeline-stats", errors.New("connection reset"))
		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, "QUERY_EXECUTION_FAILED", bpmnErr.Code)
		assert.Equal(t, "Database query execution error", bpmnErr.Message)
		assert.True(t, bpmnErr.Retryable)
		assert.Equal(t, 3, bpmnErr.Retries)
	})

	t.Run("business error gets zero retries", func(t *testing.T) {
		bpmnErr := ConvertToBPMNError(NewStaleStatusError("app-1", "screening"))

		assert.Equal(t, "STALE_APPLICATION_STATUS", bpmnErr.Code)
		assert.False(t, bpmnErr.Retryable)
		assert.Zero(t, bpmnErr.Retries)
	})

	t.Run("metadata lands in error variables", func(t *testing.T) {
		stdErr := NewInvalidTransitionError("hired", "submitted", []string{"onboarding"})
		bpmnErr := ConvertToBPMNError(stdErr)

		assert.Equal(t, "INVALID_TRANSITION", bpmnErr.ErrorVariables["originalErrorCode"])
		assert.Equal(t, []string{"onboarding"}, bpmnErr.ErrorVariables["validTransitions"])

		ts, err := time.Parse(time.RFC3339, bpmnErr.ErrorVariables["timestamp"].(string))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
	})

	t.Run("unmapped code falls back to itself", func(t *testing.T) {
		bpmnErr := ConvertToBPMNError(NewUnknownError(errors.New("boom")))
		assert.Equal(t, "UNKNOWN_ERROR", bpmnErr.Code)
		assert.Zero(t, bpmnErr.Retries)
	})
}

func TestToErrorVariables(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewDatabaseInsertFailedError(errors.New("duplicate key")))
	vars := bpmnErr.ToErrorVariables()

	assert.Equal(t, "DATABASE_INSERT_FAILED", vars["errorCode"])
	assert.Equal(t, "Database insert operation failed", vars["errorMessage"])
	assert.Equal(t, "duplicate key", vars["errorDetails"])
	assert.Equal(t, true, vars["retryable"])
	assert.Equal(t, "DATABASE_INSERT_FAILED", vars["originalErrorCode"])
}

// ==========================
// 3. Utility Tests
// ==========================

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeQueryExecutionFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseInsertFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeSearchQueryFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeNotificationSendFailed))
	assert.Equal(t, 0, GetRetryCount(ErrCodeInvalidTransition))
	assert.Equal(t, 0, GetRetryCount(ErrCodeValidationFailed))
	assert.Equal(t, 0, GetRetryCount(ErrCodeUnknown))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSearchQueryFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeNotificationSendFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeStaleStatus))
	assert.False(t, IsRetryableErrorCode(ErrCodeJobNotFound))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category string
	}{
		{ErrCodeInvalidTransition, "PIPELINE"},
		{ErrCodeStaleStatus, "PIPELINE"},
		{ErrCodeApplicationNotFound, "LOOKUP"},
		{ErrCodeCandidateNotFound, "LOOKUP"},
		{ErrCodeDatabaseConnectionFailed, "DATABASE"},
		{ErrCodeQueryExecutionFailed, "DATABASE"},
		{ErrCodeSearchQueryFailed, "SEARCH"},
		{ErrCodeNotificationSendFailed, "NOTIFICATION"},
		{ErrCodeValidationFailed, "VALIDATION"},
		{ErrCodeCommissionConfig, "VALIDATION"},
		{ErrCodeUnknown, "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.category, GetErrorCategory(tt.code), "code %s", tt.code)
	}
}
