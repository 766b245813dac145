package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

const (
	cleanPrompt = "You are a data cleaning assistant. Clean and structure the following website text " +
		"for a knowledge base. Remove navigation leftovers, cookie notices and repeated boilerplate. " +
		"Preserve every fact, number, price, name and contact detail exactly. Return plain text only."
	imagePrompt = "Transcribe all text in this image and describe any diagrams, tables or charts in detail " +
		"so the description can be used as knowledge base content."
	cleanTimeout = 45 * time.Second
	maxCleanLen  = 30000
)

var (
	boilerplateSelector = "script, style, nav, footer, header, noscript, iframe, svg"
	spaceRun            = regexp.MustCompile(`[ \t\f\v\r]+`)
)

// Fetcher downloads a URL's body.
type Fetcher interface {
	DownloadFile(ctx context.Context, url string) (*utils.DownloadedFile, error)
}

// Extractor turns a source item into plain text.
type Extractor struct {
	fetcher   Fetcher
	s3BaseURL string
	cleaner   llm.Provider
	cleanHTML bool
	vision    llm.ImageTranscriber
	pdf       parser.Parser
}

type ExtractorOption func(*Extractor)

// WithCleaner enables the LLM clean-and-structure pass over scraped pages.
func WithCleaner(p llm.Provider) ExtractorOption {
	return func(e *Extractor) {
		e.cleaner = p
		e.cleanHTML = p != nil
	}
}

// WithVision enables image transcription.
func WithVision(v llm.ImageTranscriber) ExtractorOption {
	return func(e *Extractor) { e.vision = v }
}

func NewExtractor(ctx context.Context, fetcher Fetcher, s3BaseURL string, opts ...ExtractorOption) (*Extractor, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf parser: %w", err)
	}
	e := &Extractor{
		fetcher:   fetcher,
		s3BaseURL: strings.TrimRight(s3BaseURL, "/"),
		pdf:       pdfParser,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Extractor) Extract(ctx context.Context, item types.SourceItem) (*types.ProcessedDocument, error) {
	var (
		text string
		err  error
	)
	switch item.Type {
	case types.SourceURL:
		text, err = e.extractURL(ctx, item.URL)
	case types.SourceFile:
		text, err = e.extractFile(ctx, item.S3Name)
	case types.SourceArticle:
		text = strings.TrimSpace(item.Content)
	default:
		err = fmt.Errorf("unknown source type %q", item.Type)
	}
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("no text extracted from %s", item.Source)
	}
	return &types.ProcessedDocument{Source: item.Source, Type: item.Type, Text: text}, nil
}

func (e *Extractor) extractURL(ctx context.Context, pageURL string) (string, error) {
	file, err := e.fetcher.DownloadFile(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	text, err := HTMLToText(file.Content)
	if err != nil {
		return "", err
	}
	if !e.cleanHTML || text == "" {
		return text, nil
	}
	return e.clean(ctx, pageURL, text), nil
}

// clean runs the LLM pass and falls back to the raw text on failure.
func (e *Extractor) clean(ctx context.Context, pageURL, text string) string {
	ctx, cancel := context.WithTimeout(ctx, cleanTimeout)
	defer cancel()

	input := text
	if r := []rune(input); len(r) > maxCleanLen {
		input = string(r[:maxCleanLen])
	}
	cleaned, err := e.cleaner.Complete(ctx, &llm.Request{
		SystemPrompt: cleanPrompt,
		Messages:     []*schema.Message{schema.UserMessage(input)},
	})
	if err != nil || strings.TrimSpace(cleaned) == "" {
		utils.Zlog.Warn("Page cleaning failed, using raw text",
			zap.String("source", pageURL),
			zap.Error(err))
		return text
	}
	return strings.TrimSpace(cleaned)
}

// HTMLToText strips boilerplate elements and collapses whitespace.
func HTMLToText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find(boilerplateSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return collapseWhitespace(root.Text()), nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func (e *Extractor) fileURL(s3Name string) string {
	parts := strings.Split(s3Name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return e.s3BaseURL + "/" + strings.Join(parts, "/")
}

func (e *Extractor) extractFile(ctx context.Context, s3Name string) (string, error) {
	if e.s3BaseURL == "" {
		return "", fmt.Errorf("S3_BASE_URL is not configured")
	}
	file, err := e.fetcher.DownloadFile(ctx, e.fileURL(s3Name))
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", s3Name, err)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(s3Name), "."))
	switch ext {
	case "pdf":
		return e.extractPDF(ctx, s3Name, file.Content)
	case "docx", "doc":
		return docxText(file.Content)
	case "pptx", "ppt":
		return pptxText(file.Content)
	case "txt", "md", "csv":
		return strings.TrimSpace(strings.ToValidUTF8(string(file.Content), "")), nil
	case "jpg", "jpeg", "png":
		return e.extractImage(ctx, ext, file.Content)
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, name string, data []byte) (string, error) {
	docs, err := e.pdf.Parse(ctx, bytes.NewReader(data), parser.WithURI(name))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf %s: %w", name, err)
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if t := strings.TrimSpace(d.Content); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (e *Extractor) extractImage(ctx context.Context, ext string, data []byte) (string, error) {
	if e.vision == nil {
		return "", fmt.Errorf("image transcription is not configured")
	}
	mime := "image/png"
	if ext == "jpg" || ext == "jpeg" {
		mime = "image/jpeg"
	}
	return e.vision.TranscribeImage(ctx, data, mime, imagePrompt)
}
