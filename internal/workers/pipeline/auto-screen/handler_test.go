// internal/workers/pipeline/auto-screen/handler_test.go
package autoscreen

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/pipeline"
)

const (
	applicationQuery = `SELECT id, job_id, candidate_id, status FROM applications WHERE id = $1`
	candidateQuery   = `SELECT id, skills, experience_years, education, location, expected_salary, willing_to_relocate, domain_experience FROM candidate_profiles WHERE id = $1`
	jobQuery         = `SELECT id, title, company_name, required_skills, preferred_skills, experience_min, experience_max, education_required, preferred_fields, location, remote_available, salary_min, salary_max FROM job_postings WHERE id = $1`
	updateQuery      = `UPDATE applications SET status = $1, screening_score = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	historyQuery     = `INSERT INTO application_status_history (id, application_id, old_status, new_status, changed_by, reason, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	t.Helper()
	cfg := LoadConfig(nil)
	cfg.Timeout = 10 * time.Second
	h, err := NewHandler(cfg, db, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func expectApplicationRow(mock sqlmock.Sqlmock, appID, status string) {
	rows := sqlmock.NewRows([]string{"id", "job_id", "candidate_id", "status"}).
		AddRow(appID, "job-1", "cand-1", status)
	mock.ExpectQuery(regexp.QuoteMeta(applicationQuery)).
		WithArgs(appID).
		WillReturnRows(rows)
}

func expectCandidateRow(mock sqlmock.Sqlmock, skills string, years int, location string) {
	rows := sqlmock.NewRows([]string{
		"id", "skills", "experience_years", "education", "location",
		"expected_salary", "willing_to_relocate", "domain_experience",
	}).AddRow("cand-1", skills, years, `[]`, location, 0.0, false, nil)
	mock.ExpectQuery(regexp.QuoteMeta(candidateQuery)).
		WithArgs("cand-1").
		WillReturnRows(rows)
}

func expectJobRow(mock sqlmock.Sqlmock, required, education, location string, expMin, expMax int) {
	rows := sqlmock.NewRows([]string{
		"id", "title", "company_name", "required_skills", "preferred_skills",
		"experience_min", "experience_max", "education_required", "preferred_fields",
		"location", "remote_available", "salary_min", "salary_max",
	}).AddRow(
		"job-1", "Backend Engineer", "Acme Corp",
		required, `[]`, expMin, expMax, education, `[]`,
		location, false, 0.0, 0.0,
	)
	mock.ExpectQuery(regexp.QuoteMeta(jobQuery)).
		WithArgs("job-1").
		WillReturnRows(rows)
}

func expectHop(mock sqlmock.Sqlmock, appID, from, to string) {
	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
		WithArgs(to, sqlmock.AnyArg(), sqlmock.AnyArg(), appID, from).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(historyQuery)).
		WithArgs(sqlmock.AnyArg(), appID, from, to, "auto-screener", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_StrongMatchIsShortlisted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectApplicationRow(mock, "app-1", "submitted")
	expectCandidateRow(mock, `["python","django"]`, 4, "Bangalore")
	expectJobRow(mock, `["python","django"]`, "", "Bangalore", 2, 6)

	// shortlisting passes through screening, so two hops land in one tx
	mock.ExpectBegin()
	expectHop(mock, "app-1", "submitted", "screening")
	expectHop(mock, "app-1", "screening", "shortlisted")
	mock.ExpectCommit()

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-1"})
	require.NoError(t, err)

	assert.Equal(t, "shortlisted", output.NewStatus)
	assert.True(t, output.StatusChanged)
	assert.Equal(t, pipeline.ScreenAutoShortlist, output.Result.Recommendation)
	assert.True(t, output.Result.AutoProcessed)
	assert.GreaterOrEqual(t, output.Result.Score, 70.0)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_WeakMatchIsRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectApplicationRow(mock, "app-2", "submitted")
	expectCandidateRow(mock, `["cobol"]`, 0, "Surat")
	expectJobRow(mock, `["rust"]`, "phd", "Kochi", 10, 12)

	mock.ExpectBegin()
	expectHop(mock, "app-2", "submitted", "rejected")
	mock.ExpectCommit()

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-2"})
	require.NoError(t, err)

	assert.Equal(t, "rejected", output.NewStatus)
	assert.Equal(t, pipeline.ScreenAutoReject, output.Result.Recommendation)
	assert.LessOrEqual(t, output.Result.Score, 30.0)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MiddleBandGoesToManualReview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectApplicationRow(mock, "app-3", "submitted")
	expectCandidateRow(mock, `["cobol"]`, 4, "Chennai")
	expectJobRow(mock, `["rust"]`, "", "Chennai", 2, 6)

	mock.ExpectBegin()
	expectHop(mock, "app-3", "submitted", "screening")
	mock.ExpectCommit()

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-3"})
	require.NoError(t, err)

	assert.Equal(t, "screening", output.NewStatus)
	assert.True(t, output.StatusChanged)
	assert.Equal(t, pipeline.ScreenManualReview, output.Result.Recommendation)
	assert.False(t, output.Result.AutoProcessed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Input Schema Tests
// ==========================

func TestValidateInput(t *testing.T) {
	assert.NoError(t, validateInput([]byte(`{"applicationId":"app-1"}`)))
	assert.NoError(t, validateInput([]byte(`{"applicationId":"app-1","extra":42}`)))

	assert.ErrorIs(t, validateInput([]byte(`{}`)), ErrInvalidInput)
	assert.ErrorIs(t, validateInput([]byte(`{"applicationId":""}`)), ErrInvalidInput)
	assert.ErrorIs(t, validateInput([]byte(`{"applicationId":7}`)), ErrInvalidInput)
}

// ==========================
// Error Path Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("missing application id", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		handler := createTestHandler(t, db)
		_, err = handler.Execute(context.Background(), &Input{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("application not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(applicationQuery)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		handler := createTestHandler(t, db)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "ghost"})
		assert.ErrorIs(t, err, ErrApplicationNotFound)
	})

	t.Run("already screened application", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectApplicationRow(mock, "app-1", "shortlisted")

		handler := createTestHandler(t, db)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "app-1"})
		assert.ErrorIs(t, err, ErrNotScreenable)
	})

	t.Run("concurrent status change rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectApplicationRow(mock, "app-1", "submitted")
		expectCandidateRow(mock, `["cobol"]`, 4, "Chennai")
		expectJobRow(mock, `["rust"]`, "", "Chennai", 2, 6)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
			WithArgs("screening", sqlmock.AnyArg(), sqlmock.AnyArg(), "app-1", "submitted").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		handler := createTestHandler(t, db)
		_, err = handler.Execute(context.Background(), &Input{ApplicationID: "app-1"})
		assert.ErrorIs(t, err, ErrNotScreenable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
