// internal/workers/pipeline/update-status/handler.go
package updatestatus

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
	"hiring-referrals-workers/internal/models"
	"hiring-referrals-workers/internal/notify"
	"hiring-referrals-workers/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "update-status"

	defaultActor = "system"
)

var (
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrLookupFailed        = errors.New("QUERY_EXECUTION_FAILED")
	ErrPersistFailed       = errors.New("DATABASE_INSERT_FAILED")
	ErrInvalidInput        = errors.New("VALIDATION_FAILED")
	ErrInvalidTransition   = errors.New("INVALID_STATUS_TRANSITION")
	ErrStaleStatus         = errors.New("STALE_APPLICATION_STATUS")
)

type Handler struct {
	config     *Config
	db         *sql.DB
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	logger     logger.Logger
}

// NewHandler builds the handler. dispatcher may be nil when notification
// channels are disabled.
func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, dispatcher *notify.Dispatcher, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		db:         db,
		redis:      redisClient,
		dispatcher: dispatcher,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" || input.NewStatus == "" {
		return nil, fmt.Errorf("%w: applicationId and newStatus are required", ErrInvalidInput)
	}
	target, err := pipeline.ParseStatus(input.NewStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	actor := input.ChangedBy
	if actor == "" {
		actor = defaultActor
	}

	row, err := h.loadApplication(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}

	app := models.Application{
		ID:          row.ID,
		JobID:       row.JobID,
		CandidateID: row.CandidateID,
		Status:      row.Status,
	}
	updated, event, err := pipeline.Transition(app, target, actor, input.Reason)
	if err != nil {
		metrics.InvalidTransitions.WithLabelValues(row.Status, input.NewStatus).Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	points, err := h.persistTransition(ctx, row, updated, event)
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(event.OldStatus), string(event.NewStatus)).Inc()
	h.logger.Info("status updated", map[string]interface{}{
		"applicationId": row.ID,
		"oldStatus":     string(event.OldStatus),
		"newStatus":     string(event.NewStatus),
		"actor":         actor,
	})

	output := &Output{
		ApplicationID: row.ID,
		OldStatus:     string(event.OldStatus),
		NewStatus:     string(event.NewStatus),
		Event:         event,
		PointsAwarded: points,
	}
	output.Notification = h.notifyCandidate(ctx, row, input, event)
	return output, nil
}

func (h *Handler) loadApplication(ctx context.Context, applicationID string) (*applicationRow, error) {
	var (
		row        applicationRow
		recruiter  sql.NullString
		referrer   sql.NullString
		email      sql.NullString
	)
	query := `SELECT id, job_id, candidate_id, recruiter_id, referrer_id, candidate_email, status FROM applications WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, applicationID).Scan(
		&row.ID, &row.JobID, &row.CandidateID, &recruiter, &referrer, &email, &row.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	row.RecruiterID = recruiter.String
	row.ReferrerID = referrer.String
	row.CandidateEmail = email.String
	return &row, nil
}

// persistTransition applies the status change, appends the audit row and,
// on a hire, settles the gamification and referral side effects in the
// same transaction.
func (h *Handler) persistTransition(ctx context.Context, row *applicationRow, updated models.Application, event *pipeline.Event) (int, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(event.NewStatus), updated.UpdatedAt, row.ID, string(event.OldStatus),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("%w: %w", ErrStaleStatus, cmnerrors.NewStaleStatusError(row.ID, string(event.OldStatus)))
	}

	change := updated.StatusHistory[len(updated.StatusHistory)-1]
	_, err = tx.ExecContext(ctx,
		`INSERT INTO application_status_history (id, application_id, old_status, new_status, changed_by, reason, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.ID, row.ID, change.OldStatus, change.NewStatus, change.ChangedBy, change.Reason, change.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	points := 0
	if event.NewStatus == pipeline.StatusHired {
		points, err = h.settleHire(ctx, tx, row, event)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	if event.NewStatus == pipeline.StatusHired {
		h.invalidatePlacementCaches(ctx, row)
	}
	return points, nil
}

func (h *Handler) settleHire(ctx context.Context, tx *sql.Tx, row *applicationRow, event *pipeline.Event) (int, error) {
	points := 0
	for _, userID := range []string{row.RecruiterID, row.ReferrerID} {
		if userID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_stats (user_id, points, placements) VALUES ($1, $2, 1) ON CONFLICT (user_id) DO UPDATE SET points = user_stats.points + $2, placements = user_stats.placements + 1`,
			userID, h.config.PlacementPoints,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
		points += h.config.PlacementPoints
	}

	if row.ReferrerID != "" {
		_, err := tx.ExecContext(ctx,
			`UPDATE referrals SET status = 'hired', updated_at = $1 WHERE application_id = $2`,
			event.OccurredAt, row.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
	}
	return points, nil
}

// invalidatePlacementCaches drops the cached placement counts so the next
// commission calculation sees the new hire.
func (h *Handler) invalidatePlacementCaches(ctx context.Context, row *applicationRow) {
	if h.redis == nil {
		return
	}
	for _, userID := range []string{row.RecruiterID, row.ReferrerID} {
		if userID != "" {
			h.redis.Del(ctx, "placements:"+userID)
		}
	}
}

// notifyCandidate is best effort: the status change is already committed,
// so a channel failure is logged and surfaced in the output rather than
// failing the job.
func (h *Handler) notifyCandidate(ctx context.Context, row *applicationRow, input *Input, event *pipeline.Event) *notify.Result {
	if h.dispatcher == nil {
		return nil
	}
	if _, ok := notify.MessageFor(event.NewStatus, "", ""); !ok {
		return &notify.Result{Skipped: true}
	}

	var title, company string
	err := h.db.QueryRowContext(ctx,
		`SELECT title, company_name FROM job_postings WHERE id = $1`, row.JobID,
	).Scan(&title, &company)
	if err != nil {
		h.logger.Warn("job lookup for notification failed", map[string]interface{}{
			"applicationId": row.ID,
			"jobId":         row.JobID,
			"error":         err.Error(),
		})
		return nil
	}

	result, err := h.dispatcher.Dispatch(ctx, *event, title, company, notify.Recipient{
		Email: row.CandidateEmail,
		Phone: input.CandidatePhone,
	})
	if err != nil {
		h.logger.Warn("notification dispatch failed", map[string]interface{}{
			"applicationId": row.ID,
			"status":        string(event.NewStatus),
			"error":         err.Error(),
		})
		return nil
	}
	return result
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
// StandardErrors already in the chain pass through with their metadata.
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
// code's retry budget; business errors are thrown as BPMN errors for the
// process model to catch.
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
