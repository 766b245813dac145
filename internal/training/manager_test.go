package training

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/ingest"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/types"
)

type fakeStore struct {
	mu       sync.Mutex
	state    *types.TrainingState
	started  []string
	startAt  int
	progress []int
	failed   string
	status   string
}

func (s *fakeStore) GetTrainingState(_ context.Context, chatbotID string) (*types.TrainingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, loaders.ErrNotFound
	}
	cp := *s.state
	return &cp, nil
}

func (s *fakeStore) MarkTrainingStarted(_ context.Context, _, jobID string, progress int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, jobID)
	s.startAt = progress
	s.state.Status = StatusTraining
	s.state.Progress = progress
	s.state.Message = message
	return nil
}

func (s *fakeStore) UpdateTrainingProgress(_ context.Context, _, status string, progress int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, progress)
	s.status = status
	s.state.Status = status
	return nil
}

func (s *fakeStore) MarkTrainingFailed(_ context.Context, _, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = message
	s.state.Status = StatusFailed
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	urls   []string
}

func (n *recordingNotifier) Send(_ context.Context, url string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	n.urls = append(n.urls, url)
}

type fakeIngester struct {
	release chan struct{}
	result  *ingest.Result
	err     error
}

func (f *fakeIngester) Run(_ context.Context, _ string, progress ingest.ProgressFunc) (*ingest.Result, error) {
	if f.release != nil {
		<-f.release
	}
	progress(10, "Fetching training data...")
	progress(80, "Saving to database...")
	return f.result, f.err
}

func TestManager_StartRunsJobAndReportsMilestones(t *testing.T) {
	store := &fakeStore{state: &types.TrainingState{OrganizationID: "org-1", Status: StatusIdle}}
	notifier := &recordingNotifier{}
	m := NewManager(store, &fakeIngester{result: &ingest.Result{Documents: 1}}, notifier, "https://hooks.example/default")

	res, err := m.Start(context.Background(), "bot", "")
	require.NoError(t, err)
	assert.Equal(t, "started", res.Status)
	assert.NotEmpty(t, res.JobID)
	m.Wait()

	assert.Equal(t, []string{res.JobID}, store.started)
	assert.Equal(t, []int{10, 80, 100}, store.progress)
	assert.Equal(t, StatusCompleted, store.status)

	require.Len(t, notifier.events, 4)
	assert.Equal(t, 5, notifier.events[0].Progress)
	// the stored state matches the first milestone
	assert.Equal(t, notifier.events[0].Progress, store.startAt)
	last := notifier.events[3]
	assert.Equal(t, Event{OrganizationID: "org-1", Status: StatusCompleted, Progress: 100, Message: "Training completed!"}, last)
	assert.Equal(t, "https://hooks.example/default", notifier.urls[0])
}

func TestManager_RefusesConcurrentTraining(t *testing.T) {
	store := &fakeStore{state: &types.TrainingState{OrganizationID: "org-1", Status: StatusIdle}}
	ing := &fakeIngester{release: make(chan struct{}), result: &ingest.Result{}}
	m := NewManager(store, ing, &recordingNotifier{}, "")

	_, err := m.Start(context.Background(), "bot", "https://hooks.example/job")
	require.NoError(t, err)

	res, err := m.Start(context.Background(), "bot", "")
	require.ErrorIs(t, err, ErrAlreadyTraining)
	assert.Equal(t, "already_training", res.Status)
	assert.Equal(t, "Training already in progress", res.Message)

	close(ing.release)
	m.Wait()
	assert.Len(t, store.started, 1)
}

func TestManager_PersistedTrainingStatusBlocksStart(t *testing.T) {
	store := &fakeStore{state: &types.TrainingState{OrganizationID: "org-1", Status: StatusTraining}}
	m := NewManager(store, &fakeIngester{}, &recordingNotifier{}, "")

	_, err := m.Start(context.Background(), "bot", "")
	assert.ErrorIs(t, err, ErrAlreadyTraining)
	assert.Empty(t, store.started)
}

func TestManager_FailureWritesStatusDirectly(t *testing.T) {
	store := &fakeStore{state: &types.TrainingState{OrganizationID: "org-1"}}
	notifier := &recordingNotifier{}
	m := NewManager(store, &fakeIngester{err: errors.New("db unreachable")}, notifier, "")

	_, err := m.Start(context.Background(), "bot", "")
	require.NoError(t, err)
	m.Wait()

	assert.Equal(t, "db unreachable", store.failed)
	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, StatusFailed, last.Status)
	assert.Equal(t, 0, last.Progress)
	assert.Equal(t, "db unreachable", last.Error)

	// a failed organization can be trained again
	_, err = m.Start(context.Background(), "bot", "")
	assert.NoError(t, err)
	m.Wait()
}

func TestManager_NoNewDataAndUnknownChatbot(t *testing.T) {
	store := &fakeStore{state: &types.TrainingState{OrganizationID: "org-1"}}
	notifier := &recordingNotifier{}
	m := NewManager(store, &fakeIngester{result: &ingest.Result{NoNewData: true}}, notifier, "")

	_, err := m.Start(context.Background(), "bot", "")
	require.NoError(t, err)
	m.Wait()
	assert.Equal(t, "No new data to train", notifier.events[len(notifier.events)-1].Message)

	_, err = NewManager(&fakeStore{}, &fakeIngester{}, notifier, "").Start(context.Background(), "missing", "")
	assert.ErrorIs(t, err, loaders.ErrNotFound)
}

func TestManager_StatusAfterStartShowsFirstMilestone(t *testing.T) {
	store := &fakeStore{state: &types.TrainingState{OrganizationID: "org-1", Status: StatusIdle}}
	ing := &fakeIngester{release: make(chan struct{}), result: &ingest.Result{}}
	m := NewManager(store, ing, &recordingNotifier{}, "")

	_, err := m.Start(context.Background(), "bot", "")
	require.NoError(t, err)

	st, err := store.GetTrainingState(context.Background(), "bot")
	require.NoError(t, err)
	assert.Equal(t, StatusTraining, st.Status)
	assert.Equal(t, 5, st.Progress)
	assert.Equal(t, "Training started", st.Message)

	close(ing.release)
	m.Wait()
}
