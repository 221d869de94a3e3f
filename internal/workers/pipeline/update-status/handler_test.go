// internal/workers/pipeline/update-status/handler_test.go
package updatestatus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-redis/redismock/v9"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-referrals-workers/internal/common/config"
	cmnerrors "hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/notify"
)

const (
	applicationQuery = `SELECT id, job_id, candidate_id, recruiter_id, referrer_id, candidate_email, status FROM applications WHERE id = $1`
	updateQuery      = `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	historyQuery     = `INSERT INTO application_status_history (id, application_id, old_status, new_status, changed_by, reason, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	statsQuery       = `INSERT INTO user_stats (user_id, points, placements) VALUES ($1, $2, 1) ON CONFLICT (user_id) DO UPDATE SET points = user_stats.points + $2, placements = user_stats.placements + 1`
	referralQuery    = `UPDATE referrals SET status = 'hired', updated_at = $1 WHERE application_id = $2`
	jobTitleQuery    = `SELECT title, company_name FROM job_postings WHERE id = $1`
)

// ==========================
// Test Helper Functions
// ==========================

type fakeEmail struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeEmail) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, nil
}

type fakeSMS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSMS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

func notifierConfig() config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "noreply@example.com"
	cfg.SMS.Enabled = true
	return cfg
}

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redislib.Client, email *fakeEmail, sms *fakeSMS) *Handler {
	t.Helper()
	cfg := LoadConfig(nil)
	cfg.Timeout = 10 * time.Second
	cfg.Notifications = notifierConfig()

	var dispatcher *notify.Dispatcher
	if email != nil || sms != nil {
		var es notify.EmailSender
		var ss notify.SMSSender
		if email != nil {
			es = email
		}
		if sms != nil {
			ss = sms
		}
		dispatcher = notify.NewDispatcher(es, ss, cfg.Notifications, logger.NewTestLogger(t))
	}
	return NewHandler(cfg, db, redisClient, dispatcher, logger.NewTestLogger(t))
}

func expectApplicationRow(mock sqlmock.Sqlmock, appID, status string, recruiter, referrer, email interface{}) {
	rows := sqlmock.NewRows([]string{
		"id", "job_id", "candidate_id", "recruiter_id", "referrer_id", "candidate_email", "status",
	}).AddRow(appID, "job-1", "cand-1", recruiter, referrer, email, status)
	mock.ExpectQuery(regexp.QuoteMeta(applicationQuery)).
		WithArgs(appID).
		WillReturnRows(rows)
}

func expectStatusUpdate(mock sqlmock.Sqlmock, appID, from, to string) {
	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
		WithArgs(to, sqlmock.AnyArg(), appID, from).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(historyQuery)).
		WithArgs(sqlmock.AnyArg(), appID, from, to, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectJobTitleRow(mock sqlmock.Sqlmock) {
	rows := sqlmock.NewRows([]string{"title", "company_name"}).
		AddRow("Backend Engineer", "Acme Corp")
	mock.ExpectQuery(regexp.QuoteMeta(jobTitleQuery)).
		WithArgs("job-1").
		WillReturnRows(rows)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_SilentTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	expectApplicationRow(mock, "app-1", "submitted", nil, nil, nil)
	mock.ExpectBegin()
	expectStatusUpdate(mock, "app-1", "submitted", "screening")
	mock.ExpectCommit()

	handler := createTestHandler(t, db, redisClient, &fakeEmail{}, nil)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		NewStatus:     "screening",
		ChangedBy:     "recruiter-7",
	})
	require.NoError(t, err)

	assert.Equal(t, "submitted", output.OldStatus)
	assert.Equal(t, "screening", output.NewStatus)
	assert.Zero(t, output.PointsAwarded)
	require.NotNil(t, output.Notification)
	assert.True(t, output.Notification.Skipped)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_ShortlistSendsEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, _ := redismock.NewClientMock()

	expectApplicationRow(mock, "app-1", "screening", nil, nil, "candidate@example.com")
	mock.ExpectBegin()
	expectStatusUpdate(mock, "app-1", "screening", "shortlisted")
	mock.ExpectCommit()
	expectJobTitleRow(mock)

	email := &fakeEmail{}
	handler := createTestHandler(t, db, redisClient, email, nil)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		NewStatus:     "shortlisted",
	})
	require.NoError(t, err)

	require.NotNil(t, output.Notification)
	assert.True(t, output.Notification.EmailSent)
	assert.Equal(t, "Application Shortlisted!", output.Notification.Title)
	require.Len(t, email.inputs, 1)
	assert.Equal(t, []string{"candidate@example.com"}, email.inputs[0].Destination.ToAddresses)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_HireAwardsPointsAndSyncsReferral(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	expectApplicationRow(mock, "app-1", "offer_accepted", "recruiter-1", "referrer-1", "candidate@example.com")
	mock.ExpectBegin()
	expectStatusUpdate(mock, "app-1", "offer_accepted", "hired")
	mock.ExpectExec(regexp.QuoteMeta(statsQuery)).
		WithArgs("recruiter-1", 500).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(statsQuery)).
		WithArgs("referrer-1", 500).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(referralQuery)).
		WithArgs(sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// a hire stales the cached placement counts
	redisMock.ExpectDel("placements:recruiter-1").SetVal(1)
	redisMock.ExpectDel("placements:referrer-1").SetVal(1)

	expectJobTitleRow(mock)

	email := &fakeEmail{}
	sms := &fakeSMS{}
	handler := createTestHandler(t, db, redisClient, email, sms)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:  "app-1",
		NewStatus:      "hired",
		ChangedBy:      "recruiter-1",
		CandidatePhone: "+911234567890",
	})
	require.NoError(t, err)

	assert.Equal(t, 1000, output.PointsAwarded)
	require.NotNil(t, output.Notification)
	assert.True(t, output.Notification.EmailSent)
	assert.True(t, output.Notification.SMSSent)
	assert.Equal(t, "Welcome Aboard!", output.Notification.Title)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_NotificationFailureDoesNotFailJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, _ := redismock.NewClientMock()

	expectApplicationRow(mock, "app-1", "screening", nil, nil, "candidate@example.com")
	mock.ExpectBegin()
	expectStatusUpdate(mock, "app-1", "screening", "shortlisted")
	mock.ExpectCommit()
	expectJobTitleRow(mock)

	handler := createTestHandler(t, db, redisClient, &fakeEmail{err: assert.AnError}, nil)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		NewStatus:     "shortlisted",
	})
	require.NoError(t, err)

	assert.Equal(t, "shortlisted", output.NewStatus)
	assert.Nil(t, output.Notification)
}

// ==========================
// Error Path Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, _ := redismock.NewClientMock()

		handler := createTestHandler(t, db, redisClient, nil, nil)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "app-1"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown target status", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, _ := redismock.NewClientMock()

		handler := createTestHandler(t, db, redisClient, nil, nil)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "app-1", NewStatus: "archived"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("application not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, _ := redismock.NewClientMock()

		mock.ExpectQuery(regexp.QuoteMeta(applicationQuery)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		handler := createTestHandler(t, db, redisClient, nil, nil)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "ghost", NewStatus: "screening"})
		assert.ErrorIs(t, err, ErrApplicationNotFound)
	})

	t.Run("invalid transition", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, _ := redismock.NewClientMock()

		expectApplicationRow(mock, "app-1", "submitted", nil, nil, nil)

		handler := createTestHandler(t, db, redisClient, nil, nil)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "app-1", NewStatus: "hired"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("stale status rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, _ := redismock.NewClientMock()

		expectApplicationRow(mock, "app-1", "submitted", nil, nil, nil)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
			WithArgs("screening", sqlmock.AnyArg(), "app-1", "submitted").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		handler := createTestHandler(t, db, redisClient, nil, nil)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "app-1", NewStatus: "screening"})
		assert.ErrorIs(t, err, ErrStaleStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Error Classification Tests
// ==========================

func TestToStandardError(t *testing.T) {
	t.Run("stale status carries the taxonomy code", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", ErrStaleStatus, cmnerrors.NewStaleStatusError("app-1", "screening"))
		stdErr := toStandardError(err)
		assert.Equal(t, cmnerrors.ErrCodeStaleStatus, stdErr.Code)
		assert.False(t, stdErr.Retryable)

		bpmnErr := cmnerrors.ConvertToBPMNError(stdErr)
		assert.Equal(t, "STALE_APPLICATION_STATUS", bpmnErr.Code)
		assert.Zero(t, bpmnErr.Retries)
	})

	t.Run("lookup failures are retryable", func(t *testing.T) {
		stdErr := toStandardError(fmt.Errorf("%w: connection reset", ErrLookupFailed))
		assert.Equal(t, cmnerrors.ErrCodeQueryExecutionFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
		assert.Equal(t, 3, cmnerrors.ConvertToBPMNError(stdErr).Retries)
	})

	t.Run("invalid transition keeps the valid alternatives", func(t *testing.T) {
		inner := cmnerrors.NewInvalidTransitionError("submitted", "hired", []string{"screening", "rejected", "withdrawn"})
		stdErr := toStandardError(fmt.Errorf("%w: %w", ErrInvalidTransition, inner))
		bpmnErr := cmnerrors.ConvertToBPMNError(stdErr)
		assert.Equal(t, "INVALID_TRANSITION", bpmnErr.Code)
		assert.Equal(t, []string{"screening", "rejected", "withdrawn"}, bpmnErr.ErrorVariables["validTransitions"])
	})

	t.Run("unclassified errors fall back to unknown", func(t *testing.T) {
		stdErr := toStandardError(assert.AnError)
		assert.Equal(t, cmnerrors.ErrCodeUnknown, stdErr.Code)
		assert.False(t, stdErr.Retryable)
	})
}
