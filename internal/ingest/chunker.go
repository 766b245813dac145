package ingest

import (
	"github.com/Conversly/lead-response/internal/types"
)

// ChunkText splits text into windows of cfg.ChunkSize runes, each starting
// ChunkSize-ChunkOverlap runes after the previous one. Empty text yields no
// chunks; any other text yields at least one. Invalid parameters fall back
// to the defaults.
func ChunkText(text string, cfg types.ChunkConfig) []string {
	if text == "" {
		return nil
	}
	if cfg.ChunkSize <= 0 || cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg = types.DefaultChunkConfig()
	}

	runes := []rune(text)
	step := cfg.ChunkSize - cfg.ChunkOverlap

	var chunks []string
	for start := 0; ; start += step {
		end := min(start+cfg.ChunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
