// internal/workers/pipeline/auto-screen/handler.go
package autoscreen

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cmnerrors "hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/common/metrics"
	"hiring-referrals-workers/internal/common/validation"
	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/models"
	"hiring-referrals-workers/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "auto-screen"

	actorAutoScreener = "auto-screener"
)

var (
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrCandidateNotFound   = errors.New("CANDIDATE_NOT_FOUND")
	ErrJobNotFound         = errors.New("JOB_NOT_FOUND")
	ErrLookupFailed        = errors.New("QUERY_EXECUTION_FAILED")
	ErrPersistFailed       = errors.New("DATABASE_INSERT_FAILED")
	ErrInvalidInput        = errors.New("VALIDATION_FAILED")
	ErrNotScreenable       = errors.New("INVALID_STATUS_TRANSITION")
)

// inputSchema guards against malformed process variables before any
// database work happens.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1}
	}
}`)

type Handler struct {
	config   *Config
	db       *sql.DB
	screener *pipeline.Screener
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	m, err := matching.New(config.Matching)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	return &Handler{
		config:   config,
		db:       db,
		screener: pipeline.NewScreener(m, config.Screening),
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := validateInput([]byte(job.Variables)); err != nil {
		h.failJob(client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func validateInput(raw []byte) error {
	result, err := inputSchema.ValidateBytes(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !result.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidInput, result.GetErrorMessages())
	}
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrInvalidInput)
	}

	app, err := h.loadApplication(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != string(pipeline.StatusSubmitted) {
		valid := pipeline.ValidTransitions(pipeline.Status(app.Status))
		targets := make([]string, len(valid))
		for i, s := range valid {
			targets[i] = string(s)
		}
		return nil, fmt.Errorf("%w: %w", ErrNotScreenable,
			cmnerrors.NewInvalidTransitionError(app.Status, string(pipeline.StatusScreening), targets))
	}

	candidate, err := h.loadCandidate(ctx, app.CandidateID)
	if err != nil {
		return nil, err
	}
	jobPosting, err := h.loadJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}

	result, err := h.screener.AutoScreen(*app, *jobPosting, *candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	final, err := h.applyDecision(ctx, *app, result)
	if err != nil {
		return nil, err
	}

	metrics.MatchScores.WithLabelValues(result.Recommendation).Observe(result.Score)
	h.logger.Info("application screened", map[string]interface{}{
		"applicationId":  app.ID,
		"score":          result.Score,
		"recommendation": result.Recommendation,
		"newStatus":      final,
	})

	return &Output{
		Result:        result,
		NewStatus:     final,
		StatusChanged: final != string(pipeline.StatusSubmitted),
	}, nil
}

// applyDecision walks the application to the screening decision's target.
// An auto-shortlist passes through screening since there is no direct edge
// from submitted.
func (h *Handler) applyDecision(ctx context.Context, app models.Application, result *pipeline.ScreeningResult) (string, error) {
	var hops []pipeline.Status
	switch result.TargetStatus {
	case pipeline.StatusShortlisted:
		hops = []pipeline.Status{pipeline.StatusScreening, pipeline.StatusShortlisted}
	default:
		hops = []pipeline.Status{result.TargetStatus}
	}
	reason := fmt.Sprintf("%s (score %.1f)", result.Recommendation, result.Score)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	defer tx.Rollback()

	current := app
	for _, to := range hops {
		updated, event, err := pipeline.Transition(current, to, actorAutoScreener, reason)
		if err != nil {
			return "", err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE applications SET status = $1, screening_score = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
			string(to), result.Score, updated.UpdatedAt, app.ID, string(event.OldStatus),
		)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", fmt.Errorf("%w: %w", ErrNotScreenable, cmnerrors.NewStaleStatusError(app.ID, string(event.OldStatus)))
		}

		change := updated.StatusHistory[len(updated.StatusHistory)-1]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO application_status_history (id, application_id, old_status, new_status, changed_by, reason, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			change.ID, app.ID, change.OldStatus, change.NewStatus, change.ChangedBy, change.Reason, change.Timestamp,
		)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}

		metrics.StatusTransitions.WithLabelValues(string(event.OldStatus), string(event.NewStatus)).Inc()
		current = updated
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return current.Status, nil
}

func (h *Handler) loadApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	query := `SELECT id, job_id, candidate_id, status FROM applications WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, applicationID).Scan(
		&app.ID, &app.JobID, &app.CandidateID, &app.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return &app, nil
}

func (h *Handler) loadCandidate(ctx context.Context, candidateID string) (*models.CandidateProfile, error) {
	var row candidateRow
	query := `SELECT id, skills, experience_years, education, location, expected_salary, willing_to_relocate, domain_experience FROM candidate_profiles WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, candidateID).Scan(
		&row.ID, &row.SkillsJSON, &row.ExperienceYears, &row.EducationJSON,
		&row.Location, &row.ExpectedSalary, &row.WillingToRelocate, &row.DomainExperience,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	profile := models.CandidateProfile{
		ID:                row.ID,
		ExperienceYears:   row.ExperienceYears,
		Location:          row.Location,
		ExpectedSalary:    row.ExpectedSalary,
		WillingToRelocate: row.WillingToRelocate,
		DomainExperience:  row.DomainExperience,
	}
	if len(row.SkillsJSON) > 0 {
		if err := json.Unmarshal(row.SkillsJSON, &profile.Skills); err != nil {
			return nil, fmt.Errorf("%w: bad skills column: %v", ErrLookupFailed, err)
		}
	}
	if len(row.EducationJSON) > 0 {
		if err := json.Unmarshal(row.EducationJSON, &profile.Education); err != nil {
			return nil, fmt.Errorf("%w: bad education column: %v", ErrLookupFailed, err)
		}
	}
	return &profile, nil
}

func (h *Handler) loadJob(ctx context.Context, jobID string) (*models.JobPosting, error) {
	var row jobRow
	query := `SELECT id, title, company_name, required_skills, preferred_skills, experience_min, experience_max, education_required, preferred_fields, location, remote_available, salary_min, salary_max FROM job_postings WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, jobID).Scan(
		&row.ID, &row.Title, &row.CompanyName, &row.RequiredSkillsJSON, &row.PreferredJSON,
		&row.ExperienceMin, &row.ExperienceMax, &row.EducationRequired, &row.PreferredFieldsJSON,
		&row.Location, &row.RemoteAvailable, &row.SalaryMin, &row.SalaryMax,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	posting := models.JobPosting{
		ID:                row.ID,
		Title:             row.Title,
		CompanyName:       row.CompanyName,
		ExperienceMin:     row.ExperienceMin,
		ExperienceMax:     row.ExperienceMax,
		EducationRequired: row.EducationRequired,
		Location:          row.Location,
		RemoteAvailable:   row.RemoteAvailable,
		SalaryMin:         row.SalaryMin,
		SalaryMax:         row.SalaryMax,
	}
	for _, col := range []struct {
		raw  []byte
		into *[]string
	}{
		{row.RequiredSkillsJSON, &posting.RequiredSkills},
		{row.PreferredJSON, &posting.PreferredSkills},
		{row.PreferredFieldsJSON, &posting.PreferredFields},
	} {
		if len(col.raw) > 0 {
			if err := json.Unmarshal(col.raw, col.into); err != nil {
				return nil, fmt.Errorf("%w: bad list column: %v", ErrLookupFailed, err)
			}
		}
	}
	return &posting, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// toStandardError lifts execute's sentinel errors onto the shared taxonomy.
// The screenability guards attach their StandardError in the chain, so the
// errors.As pass-through picks those up with metadata intact.
func toStandardError(err error) *cmnerrors.StandardError {
	var stdErr *cmnerrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return cmnerrors.NewValidationFailedError(err.Error())
	case errors.Is(err, ErrApplicationNotFound):
		return cmnerrors.NewApplicationNotFoundError(sentinelDetail(err, ErrApplicationNotFound))
	case errors.Is(err, ErrCandidateNotFound):
		return cmnerrors.NewCandidateNotFoundError(sentinelDetail(err, ErrCandidateNotFound))
	case errors.Is(err, ErrJobNotFound):
		return cmnerrors.NewJobNotFoundError(sentinelDetail(err, ErrJobNotFound))
	case errors.Is(err, ErrLookupFailed):
		return cmnerrors.NewQueryExecutionFailedError(TaskType, err)
	case errors.Is(err, ErrPersistFailed):
		return cmnerrors.NewDatabaseInsertFailedError(err)
	default:
		return cmnerrors.NewUnknownError(err)
	}
}

func sentinelDetail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// failJob classifies the failure and reports it to Zeebe. Retryable
// technical errors fail the job with its remaining retries capped by the
// code's retry budget; business errors are thrown as BPMN errors.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, jobErr error) {
	stdErr := toStandardError(jobErr)
	bpmnErr := cmnerrors.ConvertToBPMNError(stdErr)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":        job.Key,
		"errorCode":     bpmnErr.Code,
		"errorMessage":  bpmnErr.Message,
		"errorCategory": cmnerrors.GetErrorCategory(stdErr.Code),
		"retryable":     bpmnErr.Retryable,
	})

	if bpmnErr.Retryable {
		retries := job.Retries - 1
		if retries < 0 {
			retries = 0
		}
		if budget := int32(bpmnErr.Retries); budget < retries {
			retries = budget
		}
		failCmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(retries).
			ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))
		if varCmd, varErr := failCmd.VariablesFromMap(bpmnErr.ToErrorVariables()); varErr == nil {
			if _, sendErr := varCmd.Send(context.Background()); sendErr != nil {
				h.logger.Error("failed to fail job", map[string]interface{}{"error": sendErr.Error()})
			}
			return
		}
		if _, sendErr := failCmd.Send(context.Background()); sendErr != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{"error": sendErr.Error()})
		}
		return
	}

	_, sendErr := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(context.Background())
	if sendErr != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": sendErr.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
