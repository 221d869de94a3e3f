// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// Registration describes one job worker to open.
type Registration struct {
	TaskType      string
	Handler       func(worker.JobClient, entities.Job)
	MaxJobsActive int
	Timeout       time.Duration
}

// Manager owns the open job workers so shutdown can drain them before the
// client closes.
type Manager struct {
	client  zbc.Client
	logger  *zap.Logger
	workers []worker.JobWorker
}

func NewManager(client zbc.Client, logger *zap.Logger) *Manager {
	return &Manager{client: client, logger: logger}
}

// Register opens a job worker for the registration.
func (m *Manager) Register(reg Registration) {
	jw := m.client.NewJobWorker().
		JobType(reg.TaskType).
		Handler(reg.Handler).
		MaxJobsActive(reg.MaxJobsActive).
		Timeout(reg.Timeout).
		Open()
	m.workers = append(m.workers, jw)

	m.logger.Info("worker started",
		zap.String("taskType", reg.TaskType),
		zap.Int("maxJobsActive", reg.MaxJobsActive),
		zap.Duration("timeout", reg.Timeout),
	)
}

// Count reports how many workers are open.
func (m *Manager) Count() int {
	return len(m.workers)
}

// Close drains every worker, then the client.
func (m *Manager) Close() {
	for _, jw := range m.workers {
		jw.Close()
	}
	if err := m.client.Close(); err != nil {
		m.logger.Error("error closing zeebe client", zap.Error(err))
	}
}
