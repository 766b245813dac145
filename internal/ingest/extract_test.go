package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

type mapFetcher map[string][]byte

func (m mapFetcher) DownloadFile(_ context.Context, url string) (*utils.DownloadedFile, error) {
	b, ok := m[url]
	if !ok {
		return nil, errors.New("404")
	}
	return &utils.DownloadedFile{Content: b, Size: int64(len(b))}, nil
}

type cannedProvider struct {
	out string
	err error
	got *llm.Request
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) StreamComplete(context.Context, *llm.Request) (llm.Stream, error) {
	return nil, errors.New("not used")
}

func (p *cannedProvider) Complete(_ context.Context, req *llm.Request) (string, error) {
	p.got = req
	return p.out, p.err
}

type cannedVision struct{ mime string }

func (v *cannedVision) TranscribeImage(_ context.Context, _ []byte, mimeType, _ string) (string, error) {
	v.mime = mimeType
	return "A price table: Basic $10", nil
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const page = `<html><head><style>.x{}</style><script>var a=1;</script></head>
<body><header>Menu Home</header><nav>Links</nav>
<h1>Acme   Plans</h1>
<p>Basic costs $10.</p>
<footer>Copyright</footer></body></html>`

func TestHTMLToText(t *testing.T) {
	text, err := HTMLToText([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Acme Plans\nBasic costs $10.", text)
}

func TestExtractor_URLWithCleaner(t *testing.T) {
	ctx := context.Background()
	fetch := mapFetcher{"https://acme.example": []byte(page)}

	cleaner := &cannedProvider{out: "Acme Plans: Basic $10"}
	e, err := NewExtractor(ctx, fetch, "", WithCleaner(cleaner))
	require.NoError(t, err)

	doc, err := e.Extract(ctx, types.SourceItem{Type: types.SourceURL, Source: "https://acme.example", URL: "https://acme.example"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Plans: Basic $10", doc.Text)
	require.NotNil(t, cleaner.got)
	assert.Contains(t, cleaner.got.Messages[0].Content, "Basic costs $10.")

	cleaner.err = errors.New("rate limited")
	doc, err = e.Extract(ctx, types.SourceItem{Type: types.SourceURL, Source: "https://acme.example", URL: "https://acme.example"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Plans\nBasic costs $10.", doc.Text)
}

func TestExtractor_Files(t *testing.T) {
	ctx := context.Background()
	docx := buildZip(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t></w:r></w:p></w:body></w:document>`,
	})
	pptx := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Two</a:t></a:r></a:p></p:sld>`,
		"ppt/slides/slide1.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>One</a:t></a:r></a:p></p:sld>`,
	})
	fetch := mapFetcher{
		"https://bucket.example/a.docx":            docx,
		"https://bucket.example/deck.pptx":         pptx,
		"https://bucket.example/notes.txt":         []byte("  plain notes \n"),
		"https://bucket.example/scan.jpg":          {0xff, 0xd8},
		"https://bucket.example/data.xyz":          []byte("?"),
		"https://bucket.example/dir/my%20file.txt": []byte("spaced"),
	}
	vision := &cannedVision{}
	e, err := NewExtractor(ctx, fetch, "https://bucket.example/", WithVision(vision))
	require.NoError(t, err)

	file := func(name string) types.SourceItem {
		return types.SourceItem{Type: types.SourceFile, Source: name, S3Name: name}
	}

	doc, err := e.Extract(ctx, file("a.docx"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nSecond", doc.Text)

	doc, err = e.Extract(ctx, file("deck.pptx"))
	require.NoError(t, err)
	assert.Equal(t, "One\n\nTwo", doc.Text)

	doc, err = e.Extract(ctx, file("notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "plain notes", doc.Text)

	doc, err = e.Extract(ctx, file("dir/my file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "spaced", doc.Text)

	doc, err = e.Extract(ctx, file("scan.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", vision.mime)
	assert.Contains(t, doc.Text, "Basic $10")

	_, err = e.Extract(ctx, file("data.xyz"))
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = e.Extract(ctx, file("missing.pdf"))
	assert.Error(t, err)
}

func TestExtractor_ArticleAndMissingBase(t *testing.T) {
	ctx := context.Background()
	e, err := NewExtractor(ctx, mapFetcher{}, "")
	require.NoError(t, err)

	doc, err := e.Extract(ctx, types.SourceItem{Type: types.SourceArticle, Source: "article:1", Content: " Open 9-5 "})
	require.NoError(t, err)
	assert.Equal(t, "Open 9-5", doc.Text)
	assert.Equal(t, types.SourceArticle, doc.Type)

	_, err = e.Extract(ctx, types.SourceItem{Type: types.SourceFile, Source: "a.pdf", S3Name: "a.pdf"})
	assert.ErrorContains(t, err, "S3_BASE_URL")

	_, err = e.Extract(ctx, types.SourceItem{Type: types.SourceArticle, Source: "article:2", Content: "  "})
	assert.Error(t, err)
}
