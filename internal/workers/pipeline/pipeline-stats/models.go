// internal/workers/pipeline/pipeline-stats/models.go
package pipelinestats

import "hiring-referrals-workers/internal/pipeline"

type Input struct {
	// JobID scopes the funnel to one posting; empty means platform-wide.
	JobID string `json:"jobId,omitempty"`
}

type Output struct {
	Stats *pipeline.Stats `json:"stats"`
}
