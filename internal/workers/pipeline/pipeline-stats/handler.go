// internal/workers/pipeline/pipeline-stats/handler.go
package pipelinestats

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cmnerrors "hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/common/metrics"
	"hiring-referrals-workers/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "pipeline-stats"
)

var (
	ErrLookupFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		h.failJob(client, job, cmnerrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
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
	counts, err := h.loadStatusCounts(ctx, input.JobID)
	if err != nil {
		return nil, err
	}

	stats := pipeline.ComputeStatsFromCounts(input.JobID, counts)
	h.logger.Info("pipeline stats computed", map[string]interface{}{
		"jobId": input.JobID,
		"total": stats.TotalApplications,
	})
	return &Output{Stats: stats}, nil
}

func (h *Handler) loadStatusCounts(ctx context.Context, jobID string) (map[string]int, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if jobID != "" {
		rows, err = h.db.QueryContext(ctx,
			`SELECT status, COUNT(*) FROM applications WHERE job_id = $1 GROUP BY status`, jobID)
	} else {
		rows, err = h.db.QueryContext(ctx,
			`SELECT status, COUNT(*) FROM applications GROUP BY status`)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return counts, nil
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
func toStandardError(err error) *cmnerrors.StandardError {
	var stdErr *cmnerrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	if errors.Is(err, ErrLookupFailed) {
		return cmnerrors.NewQueryExecutionFailedError(TaskType, err)
	}
	return cmnerrors.NewUnknownError(err)
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
