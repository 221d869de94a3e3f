// internal/workers/financial/calculate-commission/handler.go
package calculatecommission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hiring-referrals-workers/internal/commission"
	cmnerrors "hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "calculate-commission"
)

var (
	ErrInvalidInput  = errors.New("VALIDATION_FAILED")
	ErrCountFailed   = errors.New("QUERY_EXECUTION_FAILED")
	ErrPersistFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config     *Config
	db         *sql.DB
	redis      *redis.Client
	calculator *commission.Calculator
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		db:         db,
		redis:      redisClient,
		calculator: commission.NewCalculator(config.Commission),
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
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	count, err := h.placementCount(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	breakdown, err := h.calculator.Calculate(commission.Input{
		UserID:         input.UserID,
		AnnualPackage:  input.AnnualPackage,
		Currency:       input.Currency,
		PlacementCount: count,
		CustomRate:     input.CustomRate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := h.persistBreakdown(ctx, breakdown); err != nil {
		return nil, err
	}

	metrics.CommissionsCalculated.WithLabelValues(
		string(breakdown.PackageLevel), string(breakdown.UserTier)).Inc()
	h.logger.Info("commission calculated", map[string]interface{}{
		"userId":       input.UserID,
		"packageLevel": string(breakdown.PackageLevel),
		"userTier":     string(breakdown.UserTier),
		"netAmount":    breakdown.Net,
	})

	out := &Output{Breakdown: breakdown, PlacementCount: count}
	if input.IncludeSummary {
		out.Summary = h.calculator.Summary(input.UserID, count)
	}
	return out, nil
}

// placementCount counts hired applications attributable to the user, with
// a short-lived cache so bursts of calculations share one query.
func (h *Handler) placementCount(ctx context.Context, userID string) (int, error) {
	cacheKey := "placements:" + userID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		if count, convErr := strconv.Atoi(val); convErr == nil {
			metrics.CacheLookups.WithLabelValues("placements", "hit").Inc()
			return count, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("placements", "miss").Inc()

	var count int
	query := `SELECT COUNT(*) FROM applications WHERE status = 'hired' AND (recruiter_id = $1 OR referrer_id = $1)`
	if err := h.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCountFailed, err)
	}

	h.redis.Set(ctx, cacheKey, strconv.Itoa(count), h.config.TierCacheTTL)
	return count, nil
}

func (h *Handler) persistBreakdown(ctx context.Context, bd *commission.Breakdown) error {
	query := `INSERT INTO commission_records (user_id, annual_package, package_level, user_tier, effective_rate, gross_amount, tds_deducted, platform_fee, net_amount, currency, calculated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := h.db.ExecContext(ctx, query,
		bd.UserID, bd.AnnualPackage, string(bd.PackageLevel), string(bd.UserTier),
		bd.EffectiveRate, bd.Gross, bd.TDS, bd.PlatformFee, bd.Net,
		bd.Converted.Currency, bd.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
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
	switch {
	case errors.Is(err, ErrInvalidInput):
		return cmnerrors.NewValidationFailedError(err.Error())
	case errors.Is(err, ErrCountFailed):
		return cmnerrors.NewQueryExecutionFailedError(TaskType, err)
	case errors.Is(err, ErrPersistFailed):
		return cmnerrors.NewDatabaseInsertFailedError(err)
	default:
		return cmnerrors.NewUnknownError(err)
	}
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
