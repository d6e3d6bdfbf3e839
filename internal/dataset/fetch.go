// Package dataset fetches the blocos dataset and the metro station list from a
// local file, an http(s) URL or an S3 object.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"blocosrj/internal/storage"
)

// S3Reader downloads one object. It is satisfied by storage.ReadObject bound to
// a client.
type S3Reader func(ctx context.Context, bucket, key string) ([]byte, error)

type Fetcher struct {
	httpClient *http.Client
	s3         S3Reader
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

func WithS3(r S3Reader) Option {
	return func(f *Fetcher) { f.s3 = r }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the raw bytes behind source.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "":
		return nil, fmt.Errorf("dataset: empty source")
	case strings.HasPrefix(source, "s3://"):
		bucket, key, err := SplitS3(source)
		if err != nil {
			return nil, err
		}
		if f.s3 == nil {
			return nil, fmt.Errorf("dataset: %s requires S3 settings", source)
		}
		data, err := f.s3(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		return data, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return f.fetchHTTP(ctx, source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		return data, nil
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// SplitS3 parses s3://bucket/key.
func SplitS3(source string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(source, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("dataset: malformed S3 source %q", source)
	}
	return bucket, key, nil
}

// S3FromEnv builds an S3Reader from the MINIO_* variables.
func S3FromEnv() (S3Reader, error) {
	client, err := storage.NewS3Client(storage.S3ConfigFromEnv("", ""))
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, bucket, key string) ([]byte, error) {
		return storage.ReadObject(ctx, client, bucket, key)
	}, nil
}
