// internal/workers/matching/rank-candidates/handler.go
package rankcandidates

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	cmnerrors "hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/common/metrics"
	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	TaskType = "rank-candidates"

	defaultLimit = 20
)

var (
	ErrJobNotFound  = errors.New("JOB_NOT_FOUND")
	ErrLookupFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrSearchFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrInvalidInput = errors.New("VALIDATION_FAILED")
)

// Searcher is the Elasticsearch surface the handler needs.
type Searcher interface {
	Search(ctx context.Context, index string, body io.Reader) (*esapi.Response, error)
}

type Handler struct {
	config  *Config
	db      *sql.DB
	search  Searcher
	matcher *matching.Matcher
	logger  logger.Logger
}

func NewHandler(config *Config, db *sql.DB, search Searcher, log logger.Logger) (*Handler, error) {
	m, err := matching.New(config.Matching)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	return &Handler{
		config:  config,
		db:      db,
		search:  search,
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
	if input.JobID == "" {
		return nil, fmt.Errorf("%w: jobId is required", ErrInvalidInput)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	jobPosting, err := h.loadJob(ctx, input.JobID)
	if err != nil {
		return nil, err
	}

	resumes, total, err := h.searchResumes(ctx, jobPosting)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedCandidate, 0, len(resumes))
	for resumeID, doc := range resumes {
		profile := models.CandidateProfile{
			ID:                doc.CandidateID,
			Skills:            doc.Skills,
			ExperienceYears:   doc.ExperienceYears,
			Education:         doc.Education,
			Location:          doc.Location,
			ExpectedSalary:    doc.ExpectedSalary,
			WillingToRelocate: doc.WillingToRelocate,
		}
		match, err := h.matcher.Score(profile, *jobPosting)
		if err != nil {
			// one bad resume should not sink the ranking
			h.logger.Warn("skipping unscorable resume", map[string]interface{}{
				"resumeId": resumeID,
				"error":    err.Error(),
			})
			continue
		}
		if match.OverallScore < input.MinScore {
			continue
		}
		ranked = append(ranked, RankedCandidate{
			CandidateID:    doc.CandidateID,
			ResumeID:       resumeID,
			Name:           doc.Name,
			Score:          match.OverallScore,
			Recommendation: string(match.Recommendation),
			Match:          match,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ResumeID < ranked[j].ResumeID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	h.logger.Info("candidates ranked", map[string]interface{}{
		"jobId":    input.JobID,
		"searched": total,
		"returned": len(ranked),
	})

	return &Output{
		JobID:           input.JobID,
		TotalCandidates: total,
		Returned:        len(ranked),
		Matches:         ranked,
	}, nil
}

func (h *Handler) loadJob(ctx context.Context, jobID string) (*models.JobPosting, error) {
	var (
		posting      models.JobPosting
		requiredJSON []byte
		preferredJSON []byte
		fieldsJSON   []byte
	)
	query := `SELECT id, title, company_name, required_skills, preferred_skills, experience_min, experience_max, education_required, preferred_fields, location, remote_available, salary_min, salary_max FROM job_postings WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, jobID).Scan(
		&posting.ID, &posting.Title, &posting.CompanyName, &requiredJSON, &preferredJSON,
		&posting.ExperienceMin, &posting.ExperienceMax, &posting.EducationRequired, &fieldsJSON,
		&posting.Location, &posting.RemoteAvailable, &posting.SalaryMin, &posting.SalaryMax,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	for _, col := range []struct {
		raw  []byte
		into *[]string
	}{
		{requiredJSON, &posting.RequiredSkills},
		{preferredJSON, &posting.PreferredSkills},
		{fieldsJSON, &posting.PreferredFields},
	} {
		if len(col.raw) > 0 {
			if err := json.Unmarshal(col.raw, col.into); err != nil {
				return nil, fmt.Errorf("%w: bad list column: %v", ErrLookupFailed, err)
			}
		}
	}
	return &posting, nil
}

// searchResumes pulls candidate resumes that share at least one required
// skill with the job, falling back to a full scan for jobs without skill
// requirements.
func (h *Handler) searchResumes(ctx context.Context, job *models.JobPosting) (map[string]resumeDoc, int, error) {
	query := map[string]interface{}{
		"size": h.config.FetchSize,
	}
	if len(job.RequiredSkills) > 0 {
		query["query"] = map[string]interface{}{
			"terms": map[string]interface{}{
				"skills": job.RequiredSkills,
			},
		}
	} else {
		query["query"] = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	res, err := h.search.Search(ctx, h.config.ResumeIndex, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	docs := make(map[string]resumeDoc, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs[hit.ID] = hit.Source
	}
	return docs, parsed.Hits.Total.Value, nil
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
	case errors.Is(err, ErrJobNotFound):
		return cmnerrors.NewJobNotFoundError(sentinelDetail(err, ErrJobNotFound))
	case errors.Is(err, ErrLookupFailed):
		return cmnerrors.NewQueryExecutionFailedError(TaskType, err)
	case errors.Is(err, ErrSearchFailed):
		return cmnerrors.NewSearchQueryFailedError(TaskType, err)
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
