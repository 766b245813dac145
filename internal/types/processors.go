package types

// SourceType is the kind of training material a chunk came from.
type SourceType string

const (
	SourceURL     SourceType = "url"
	SourceFile    SourceType = "file"
	SourceArticle SourceType = "article"
)

// SourceItem is one untrained entry of an organization's source lists.
type SourceItem struct {
	Type     SourceType
	Source   string // stable identifier used as training_chunks.source
	URL      string
	S3Name   string
	Content  string
	Position int
}

// ProcessedDocument is the extracted plain text of one source.
type ProcessedDocument struct {
	Source string
	Type   SourceType
	Text   string
}

// ContentChunk is an embedded slice of a document ready for storage.
type ContentChunk struct {
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	Embedding  []float64 `json:"embedding,omitempty"`
	ChunkIndex int       `json:"chunkIndex"`
}

// ChunkConfig holds chunking parameters.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    800,
		ChunkOverlap: 100,
	}
}
