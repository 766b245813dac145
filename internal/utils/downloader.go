package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultDownloadTimeout = 5 * time.Minute
	MaxDownloadSize        = 100 * 1024 * 1024 // 100MB
	defaultDownloadRetries = 2
)

// DownloadedFile represents a downloaded file with its metadata
type DownloadedFile struct {
	Content     []byte
	ContentType string
	Filename    string
	Size        int64
}

// FileDownloader handles downloading files from URLs
type FileDownloader struct {
	client     *http.Client
	maxSize    int64
	maxRetries uint64
	backoff    func() backoff.BackOff
}

// NewFileDownloader creates a new file downloader with default settings
func NewFileDownloader() *FileDownloader {
	return &FileDownloader{
		client:     &http.Client{Timeout: DefaultDownloadTimeout},
		maxSize:    MaxDownloadSize,
		maxRetries: defaultDownloadRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// WithClient swaps the HTTP client, mostly for tests.
func (d *FileDownloader) WithClient(c *http.Client) *FileDownloader {
	d.client = c
	return d
}

// WithMaxSize caps the number of bytes read from a response.
func (d *FileDownloader) WithMaxSize(n int64) *FileDownloader {
	d.maxSize = n
	return d
}

// DownloadFile downloads a file from the given URL. Transport errors and 5xx
// responses are retried with exponential backoff; 4xx responses are not.
func (d *FileDownloader) DownloadFile(ctx context.Context, url string) (*DownloadedFile, error) {
	Zlog.Debug("Starting file download", zap.String("url", url))

	var file *DownloadedFile
	op := func() error {
		f, err := d.fetch(ctx, url)
		if err != nil {
			return err
		}
		file = f
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.backoff(), d.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	Zlog.Info("File downloaded successfully",
		zap.String("url", url),
		zap.Int64("size", file.Size))
	return file, nil
}

func (d *FileDownloader) fetch(ctx context.Context, url string) (*DownloadedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("failed to download file: status code %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("failed to download file: status code %d", resp.StatusCode))
	}

	if resp.ContentLength > d.maxSize {
		return nil, backoff.Permanent(fmt.Errorf("file size exceeds maximum allowed size: %d bytes", d.maxSize))
	}

	// Read one byte past the cap so oversized bodies without Content-Length are detected.
	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if int64(len(content)) > d.maxSize {
		return nil, backoff.Permanent(fmt.Errorf("file size exceeds maximum allowed size: %d bytes", d.maxSize))
	}

	return &DownloadedFile{
		Content:     content,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    filenameFromURL(url),
		Size:        int64(len(content)),
	}, nil
}

func filenameFromURL(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	name := path.Base(raw)
	if name == "." || name == "/" || name == "" {
		return "downloaded_file"
	}
	return name
}
