// internal/workers/matching/score-candidate/handler.go
package scorecandidate

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
	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "score-candidate"
)

var (
	ErrCandidateNotFound = errors.New("CANDIDATE_NOT_FOUND")
	ErrJobNotFound       = errors.New("JOB_NOT_FOUND")
	ErrLookupFailed      = errors.New("QUERY_EXECUTION_FAILED")
	ErrPersistFailed     = errors.New("DATABASE_INSERT_FAILED")
	ErrInvalidInput      = errors.New("VALIDATION_FAILED")
)

type Handler struct {
	config  *Config
	db      *sql.DB
	redis   *redis.Client
	matcher *matching.Matcher
	logger  logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) (*Handler, error) {
	m, err := matching.New(config.Matching)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	return &Handler{
		config:  config,
		db:      db,
		redis:   redisClient,
		matcher: m,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
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
	if input.CandidateID == "" || input.JobID == "" {
		return nil, fmt.Errorf("%w: candidateId and jobId are required", ErrInvalidInput)
	}

	candidate, fromCache, err := h.loadCandidate(ctx, input.CandidateID)
	if err != nil {
		return nil, err
	}

	jobPosting, err := h.loadJob(ctx, input.JobID)
	if err != nil {
		return nil, err
	}

	match, err := h.matcher.Score(*candidate, *jobPosting)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := h.persistMatch(ctx, match); err != nil {
		return nil, err
	}

	metrics.MatchScores.WithLabelValues(string(match.Recommendation)).Observe(match.OverallScore)
	h.logger.Info("match scored", map[string]interface{}{
		"candidateId":    input.CandidateID,
		"jobId":          input.JobID,
		"score":          match.OverallScore,
		"recommendation": string(match.Recommendation),
	})

	return &Output{
		MatchScore:     match.OverallScore,
		Recommendation: string(match.Recommendation),
		AutoShortlist:  match.AutoShortlist,
		Match:          match,
		FromCache:      fromCache,
	}, nil
}

// loadCandidate is cache-aside: redis first, postgres on miss, write-back
// with the configured TTL.
func (h *Handler) loadCandidate(ctx context.Context, candidateID string) (*models.CandidateProfile, bool, error) {
	cacheKey := "candidate:" + candidateID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var profile models.CandidateProfile
		if err := json.Unmarshal([]byte(val), &profile); err == nil {
			metrics.CacheLookups.WithLabelValues("candidate", "hit").Inc()
			return &profile, true, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("candidate", "miss").Inc()

	var row candidateRow
	query := `SELECT id, skills, experience_years, education, location, expected_salary, willing_to_relocate, domain_experience FROM candidate_profiles WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, candidateID).Scan(
		&row.ID, &row.SkillsJSON, &row.ExperienceYears, &row.EducationJSON,
		&row.Location, &row.ExpectedSalary, &row.WillingToRelocate, &row.DomainExperience,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
		}
		return nil, false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
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
			return nil, false, fmt.Errorf("%w: bad skills column: %v", ErrLookupFailed, err)
		}
	}
	if len(row.EducationJSON) > 0 {
		if err := json.Unmarshal(row.EducationJSON, &profile.Education); err != nil {
			return nil, false, fmt.Errorf("%w: bad education column: %v", ErrLookupFailed, err)
		}
	}

	data, _ := json.Marshal(profile)
	h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)

	return &profile, false, nil
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

func (h *Handler) persistMatch(ctx context.Context, match *matching.MatchResult) error {
	breakdown, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	query := `INSERT INTO match_scores (id, candidate_id, job_id, overall_score, recommendation, breakdown, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = h.db.ExecContext(ctx, query,
		uuid.New().String(), match.CandidateID, match.JobID,
		match.OverallScore, string(match.Recommendation), breakdown, time.Now().UTC(),
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
