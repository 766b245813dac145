package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/ingest"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

// Training states stored in automations.training_status.
const (
	StatusIdle      = "idle"
	StatusTraining  = "training"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Progress and message recorded when a job is accepted.
const (
	startedProgress = 5
	startedMessage  = "Training started"
)

// ErrAlreadyTraining is returned by Start while a job for the organization is running.
var ErrAlreadyTraining = errors.New("training already in progress")

type Store interface {
	GetTrainingState(ctx context.Context, chatbotID string) (*types.TrainingState, error)
	MarkTrainingStarted(ctx context.Context, organizationID, jobID string, progress int, message string) error
	UpdateTrainingProgress(ctx context.Context, organizationID, status string, progress int, message string) error
	MarkTrainingFailed(ctx context.Context, organizationID, message string) error
}

type Ingester interface {
	Run(ctx context.Context, chatbotID string, progress ingest.ProgressFunc) (*ingest.Result, error)
}

type Notifier interface {
	Send(ctx context.Context, url string, ev Event)
}

type StartResult struct {
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Manager runs ingestion jobs in the background, one per organization.
type Manager struct {
	store      Store
	ingester   Ingester
	notifier   Notifier
	defaultURL string

	mu     sync.Mutex
	active map[string]string // organization id -> job id
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(store Store, ingester Ingester, notifier Notifier, defaultWebhookURL string) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:      store,
		ingester:   ingester,
		notifier:   notifier,
		defaultURL: defaultWebhookURL,
		active:     make(map[string]string),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start validates the chatbot, refuses concurrent training of the same
// organization and launches the job. It returns as soon as the job is queued.
func (m *Manager) Start(ctx context.Context, chatbotID, webhookURL string) (*StartResult, error) {
	state, err := m.store.GetTrainingState(ctx, chatbotID)
	if err != nil {
		return nil, err
	}
	orgID := state.OrganizationID

	m.mu.Lock()
	_, running := m.active[orgID]
	if running || state.Status == StatusTraining {
		m.mu.Unlock()
		return &StartResult{Status: "already_training", Message: "Training already in progress"}, ErrAlreadyTraining
	}
	jobID := uuid.NewString()
	m.active[orgID] = jobID
	m.mu.Unlock()

	if err := m.store.MarkTrainingStarted(ctx, orgID, jobID, startedProgress, startedMessage); err != nil {
		m.release(orgID)
		return nil, fmt.Errorf("failed to mark training started: %w", err)
	}

	url := webhookURL
	if url == "" {
		url = m.defaultURL
	}
	m.notifier.Send(ctx, url, Event{OrganizationID: orgID, Status: StatusTraining, Progress: startedProgress, Message: startedMessage})

	utils.Zlog.Info("Starting training job",
		zap.String("job_id", jobID),
		zap.String("chatbot_id", chatbotID),
		zap.String("organization_id", orgID))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(orgID)
		m.run(jobID, chatbotID, orgID, url)
	}()

	return &StartResult{JobID: jobID, Status: "started", Message: "Training started"}, nil
}

func (m *Manager) release(orgID string) {
	m.mu.Lock()
	delete(m.active, orgID)
	m.mu.Unlock()
}

func (m *Manager) report(orgID, url, status string, progress int, message, errText string) {
	ev := Event{OrganizationID: orgID, Status: status, Progress: progress, Message: message, Error: errText}
	m.notifier.Send(m.ctx, url, ev)
	if status == StatusFailed {
		return
	}
	if err := m.store.UpdateTrainingProgress(m.ctx, orgID, status, progress, message); err != nil {
		utils.Zlog.Warn("Failed to persist training progress",
			zap.String("organization_id", orgID),
			zap.Error(err))
	}
}

func (m *Manager) run(jobID, chatbotID, orgID, url string) {
	start := time.Now()
	log := utils.Zlog.With(zap.String("job_id", jobID), zap.String("organization_id", orgID))

	res, err := m.ingester.Run(m.ctx, chatbotID, func(progress int, message string) {
		m.report(orgID, url, StatusTraining, progress, message, "")
	})
	if err != nil {
		log.Error("Training job failed", zap.Error(err))
		metrics.TrainingJobsTotal.WithLabelValues(StatusFailed).Inc()

		// Recorded directly, independent of webhook delivery.
		dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if dbErr := m.store.MarkTrainingFailed(dbCtx, orgID, err.Error()); dbErr != nil {
			log.Error("Failed to update training status to failed", zap.Error(dbErr))
		}
		cancel()

		m.report(orgID, url, StatusFailed, 0, "Training error: "+err.Error(), err.Error())
		return
	}

	message := "Training completed!"
	if res.NoNewData {
		message = "No new data to train"
	}
	m.report(orgID, url, StatusCompleted, 100, message, "")
	metrics.TrainingJobsTotal.WithLabelValues(StatusCompleted).Inc()

	log.Info("Training job completed",
		zap.Int("documents", res.Documents),
		zap.Int("embedded", res.Embedded),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()))
}

// Status returns the persisted training state of a chatbot's organization.
func (m *Manager) Status(ctx context.Context, chatbotID string) (*types.TrainingState, error) {
	return m.store.GetTrainingState(ctx, chatbotID)
}

// Shutdown cancels running jobs and waits for them to exit or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
