package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/types"
)

func TestParseSources_UntrainedAndMark(t *testing.T) {
	src := &types.TrainingSources{
		OrganizationID: "org-1",
		URLs:           []byte(`[{"url":"https://a.example/docs","is_trained":true},{"url":"https://b.example"}]`),
		Files:          []byte(`"[{\"s3Name\":\"guide.pdf\",\"is_trained\":\"false\"}]"`),
		Articles:       []byte(`[{"id":42,"content":"Refunds within 30 days"},{"content":"Open 9-5"},{"content":""}]`),
	}

	lists, err := ParseSources(src)
	require.NoError(t, err)

	items := lists.Untrained()
	require.Len(t, items, 4)
	assert.Equal(t, types.SourceItem{Type: types.SourceURL, Source: "https://b.example", URL: "https://b.example", Position: 1}, items[0])
	assert.Equal(t, "guide.pdf", items[1].Source)
	assert.Equal(t, "article:42", items[2].Source)
	assert.Equal(t, "article:1", items[3].Source)

	lists.MarkTrained(items[:2])
	enc, err := lists.Encode()
	require.NoError(t, err)
	assert.Equal(t, "org-1", enc.OrganizationID)

	var urls []map[string]any
	require.NoError(t, json.Unmarshal(enc.URLs, &urls))
	assert.Equal(t, true, urls[1]["is_trained"])

	again, err := ParseSources(enc)
	require.NoError(t, err)
	left := again.Untrained()
	require.Len(t, left, 2)
	assert.Equal(t, types.SourceArticle, left[0].Type)
}

func TestParseSources_EmptyAndInvalid(t *testing.T) {
	lists, err := ParseSources(&types.TrainingSources{URLs: []byte("null")})
	require.NoError(t, err)
	assert.Empty(t, lists.Untrained())

	enc, err := lists.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(enc.Files))

	_, err = ParseSources(&types.TrainingSources{URLs: []byte(`{"url":1}`)})
	assert.Error(t, err)
}
