package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/ingest"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/training"
	"github.com/Conversly/lead-response/internal/types"
)

type fakeJobs struct {
	startErr error
	webhook  string
}

func (f *fakeJobs) Start(_ context.Context, chatbotID, webhookURL string) (*training.StartResult, error) {
	f.webhook = webhookURL
	if f.startErr == training.ErrAlreadyTraining {
		return &training.StartResult{Status: "already_training", Message: "Training already in progress"}, f.startErr
	}
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &training.StartResult{JobID: "job-1", Status: "started", Message: "Training started"}, nil
}

func (f *fakeJobs) Status(_ context.Context, chatbotID string) (*types.TrainingState, error) {
	if chatbotID == "missing" {
		return nil, loaders.ErrNotFound
	}
	return &types.TrainingState{OrganizationID: "org-1", Status: "training", Progress: 35, Message: "Embedding 4 chunks..."}, nil
}

type fakeIngester struct {
	res *ingest.Result
}

func (f *fakeIngester) Run(_ context.Context, _ string, progress ingest.ProgressFunc) (*ingest.Result, error) {
	progress(10, "Fetching training data...")
	return f.res, nil
}

type fakeChunks struct {
	source string
}

func (f *fakeChunks) DeleteSourceChunks(_ context.Context, _, source string) (int64, error) {
	f.source = source
	return 7, nil
}

func newRouter(jobs *fakeJobs, ing *fakeIngester, chunks *fakeChunks) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(jobs, ing, chunks))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestIngest(t *testing.T) {
	t.Run("started", func(t *testing.T) {
		jobs := &fakeJobs{}
		w := do(newRouter(jobs, nil, nil), http.MethodPost, "/api/ingest", `{"chatbot_id":"bot-1","webhook_url":"http://hook"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
		var res training.StartResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "job-1", res.JobID)
		assert.Equal(t, "started", res.Status)
		assert.Equal(t, "http://hook", jobs.webhook)
	})

	t.Run("already training", func(t *testing.T) {
		w := do(newRouter(&fakeJobs{startErr: training.ErrAlreadyTraining}, nil, nil), http.MethodPost, "/api/ingest", `{"chatbot_id":"bot-1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"already_training"`)
	})

	t.Run("unknown chatbot", func(t *testing.T) {
		w := do(newRouter(&fakeJobs{startErr: loaders.ErrNotFound}, nil, nil), http.MethodPost, "/api/ingest", `{"chatbot_id":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing chatbot id", func(t *testing.T) {
		w := do(newRouter(&fakeJobs{}, nil, nil), http.MethodPost, "/api/ingest", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTrainingStatus(t *testing.T) {
	r := newRouter(&fakeJobs{}, nil, nil)

	w := do(r, http.MethodGet, "/api/training_status/bot-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"progress":35`)

	w = do(r, http.MethodGet, "/api/training_status/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetUserAssistant(t *testing.T) {
	ing := &fakeIngester{res: &ingest.Result{Documents: 2, Chunks: 9, Sources: []string{"https://acme.org"}}}
	w := do(newRouter(&fakeJobs{}, ing, nil), http.MethodPost, "/standard/set_user_assistant", `{"chatbot_id":"bot-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Knowledge Base updated successfully (Local Vector DB)", res.Message)
	assert.Equal(t, 9, res.Chunks)

	ing.res = &ingest.Result{NoNewData: true}
	w = do(newRouter(&fakeJobs{}, ing, nil), http.MethodPost, "/standard/set_user_assistant", `{"chatbot_id":"bot-1"}`)
	assert.Contains(t, w.Body.String(), "No new data to train")
}

func TestDeleteSource(t *testing.T) {
	chunks := &fakeChunks{}
	w := do(newRouter(&fakeJobs{}, nil, chunks), http.MethodPost, "/api/delete_source", `{"chatbot_id":"bot-1","source":"doc.pdf"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doc.pdf", chunks.source)
	assert.Contains(t, w.Body.String(), `"deleted":7`)

	w = do(newRouter(&fakeJobs{}, nil, chunks), http.MethodPost, "/api/delete_source", `{"chatbot_id":"bot-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
