package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conversly/lead-response/internal/types"
)

// SourceLists holds an organization's three training lists as generic JSON
// objects so unknown keys survive a rewrite.
type SourceLists struct {
	OrganizationID string
	URLs           []map[string]any
	Files          []map[string]any
	Articles       []map[string]any
}

func ParseSources(src *types.TrainingSources) (*SourceLists, error) {
	lists := &SourceLists{OrganizationID: src.OrganizationID}
	var err error
	if lists.URLs, err = decodeList(src.URLs); err != nil {
		return nil, fmt.Errorf("failed to parse training_url: %w", err)
	}
	if lists.Files, err = decodeList(src.Files); err != nil {
		return nil, fmt.Errorf("failed to parse training_pdf: %w", err)
	}
	if lists.Articles, err = decodeList(src.Articles); err != nil {
		return nil, fmt.Errorf("failed to parse training_article: %w", err)
	}
	return lists, nil
}

// decodeList accepts null, an array, or a JSON string holding an array.
func decodeList(raw []byte) ([]map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func isTrained(item map[string]any) bool {
	switch v := item["is_trained"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func stringField(item map[string]any, key string) string {
	v, ok := item[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ArticleSource names an article by its id, or by its list position when it has none.
func ArticleSource(item map[string]any, position int) string {
	if id := stringField(item, "id"); id != "" {
		return "article:" + id
	}
	return fmt.Sprintf("article:%d", position)
}

// Untrained lists every item not yet flagged is_trained, skipping entries
// without a usable url, s3Name or content.
func (l *SourceLists) Untrained() []types.SourceItem {
	var out []types.SourceItem
	for i, item := range l.URLs {
		url := stringField(item, "url")
		if url == "" || isTrained(item) {
			continue
		}
		out = append(out, types.SourceItem{Type: types.SourceURL, Source: url, URL: url, Position: i})
	}
	for i, item := range l.Files {
		name := stringField(item, "s3Name")
		if name == "" || isTrained(item) {
			continue
		}
		out = append(out, types.SourceItem{Type: types.SourceFile, Source: name, S3Name: name, Position: i})
	}
	for i, item := range l.Articles {
		content := stringField(item, "content")
		if content == "" || isTrained(item) {
			continue
		}
		out = append(out, types.SourceItem{
			Type:     types.SourceArticle,
			Source:   ArticleSource(item, i),
			Content:  content,
			Position: i,
		})
	}
	return out
}

// MarkTrained flags the given items is_trained in their lists.
func (l *SourceLists) MarkTrained(items []types.SourceItem) {
	for _, it := range items {
		var list []map[string]any
		switch it.Type {
		case types.SourceURL:
			list = l.URLs
		case types.SourceFile:
			list = l.Files
		case types.SourceArticle:
			list = l.Articles
		}
		if it.Position >= 0 && it.Position < len(list) {
			list[it.Position]["is_trained"] = true
		}
	}
}

func (l *SourceLists) Encode() (*types.TrainingSources, error) {
	urls, err := encodeList(l.URLs)
	if err != nil {
		return nil, err
	}
	files, err := encodeList(l.Files)
	if err != nil {
		return nil, err
	}
	articles, err := encodeList(l.Articles)
	if err != nil {
		return nil, err
	}
	return &types.TrainingSources{
		OrganizationID: l.OrganizationID,
		URLs:           urls,
		Files:          files,
		Articles:       articles,
	}, nil
}

func encodeList(items []map[string]any) ([]byte, error) {
	if items == nil {
		items = []map[string]any{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source list: %w", err)
	}
	return b, nil
}
