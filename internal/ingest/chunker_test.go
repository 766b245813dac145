package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/types"
)

func expectedChunkCount(l, c, o int) int {
	if l == 0 {
		return 0
	}
	n := l - o
	if n <= 0 {
		return 1
	}
	return (n + (c - o) - 1) / (c - o)
}

func reassemble(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		b.WriteString(string([]rune(ch)[overlap:]))
	}
	return b.String()
}

func TestChunkText_CountAndReconstruction(t *testing.T) {
	configs := []types.ChunkConfig{
		{ChunkSize: 800, ChunkOverlap: 100},
		{ChunkSize: 10, ChunkOverlap: 3},
		{ChunkSize: 5, ChunkOverlap: 0},
		{ChunkSize: 7, ChunkOverlap: 6},
	}
	lengths := []int{0, 1, 3, 5, 6, 7, 10, 11, 99, 800, 801, 1500, 2401}

	for _, cfg := range configs {
		for _, l := range lengths {
			text := strings.Repeat("abcdefghij", l/10+1)[:l]
			chunks := ChunkText(text, cfg)

			assert.Len(t, chunks, expectedChunkCount(l, cfg.ChunkSize, cfg.ChunkOverlap),
				"L=%d C=%d O=%d", l, cfg.ChunkSize, cfg.ChunkOverlap)
			assert.Equal(t, text, reassemble(chunks, cfg.ChunkOverlap),
				"L=%d C=%d O=%d", l, cfg.ChunkSize, cfg.ChunkOverlap)
			for _, ch := range chunks {
				assert.LessOrEqual(t, len([]rune(ch)), cfg.ChunkSize)
			}
		}
	}
}

func TestChunkText_EdgeCases(t *testing.T) {
	assert.Empty(t, ChunkText("", types.DefaultChunkConfig()))

	short := ChunkText("hello", types.DefaultChunkConfig())
	require.Len(t, short, 1)
	assert.Equal(t, "hello", short[0])

	// multi-byte runes are never split
	text := strings.Repeat("é", 25)
	chunks := ChunkText(text, types.ChunkConfig{ChunkSize: 10, ChunkOverlap: 2})
	assert.Equal(t, text, reassemble(chunks, 2))

	// invalid config falls back to defaults
	long := strings.Repeat("x", 900)
	assert.Len(t, ChunkText(long, types.ChunkConfig{ChunkSize: 10, ChunkOverlap: 10}), 2)
}
