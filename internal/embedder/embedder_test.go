package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiEmbedder_EmbedText(t *testing.T) {
	var gotKeys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-embedding-001:batchEmbedContents"), r.URL.Path)
		gotKeys = append(gotKeys, r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body)
		assert.Contains(t, string(raw), `"text":"hello"`)
		assert.Contains(t, string(raw), `"outputDimensionality":2`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[3,4]}]}`))
	}))
	defer srv.Close()

	g, err := newGeminiEmbedder(context.Background(), []string{"k1", "k2"}, "", 2, genai.HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		vec, err := g.EmbedText(context.Background(), "hello")
		require.NoError(t, err)
		assert.InDelta(t, 0.6, vec[0], 1e-6)
		assert.InDelta(t, 0.8, vec[1], 1e-6)
	}
	assert.ElementsMatch(t, []string{"k1", "k2"}, gotKeys)
}

func TestGeminiEmbedder_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,2,3]}]}`))
	}))
	defer srv.Close()

	_, err := NewGeminiEmbedder(context.Background(), nil, "", 2)
	require.Error(t, err)

	g, err := newGeminiEmbedder(context.Background(), []string{"k"}, "m", 2, genai.HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.EmbedText(context.Background(), "")
	assert.Error(t, err)

	_, err = g.EmbedText(context.Background(), "text")
	assert.ErrorContains(t, err, "expected 2 dimensions")
}

func TestOpenAIEmbedder_EmbedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		assert.EqualValues(t, 3, body["dimensions"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,-1]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-test", srv.URL+"/v1", "", 3)
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25, -1}, vec)
}

func TestNormalize(t *testing.T) {
	out := normalize([]float64{1, 1, 1, 1})
	var sum float64
	for _, v := range out {
		sum += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-9)
	assert.Equal(t, []float64{0, 0}, normalize([]float64{0, 0}))
}
