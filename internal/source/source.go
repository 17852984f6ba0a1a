// Package source fetches definitions text from the local filesystem, HTTP
// or S3. Locations ending in .gz or .zst are decompressed on the fly.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/solatis/browscap/internal/types"
)

// DefaultMaxSize bounds a fetched text. The full definitions are well below.
const DefaultMaxSize = 256 << 20

// S3Client is the subset of the S3 API a Fetcher uses.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the default S3 client.
type S3Config struct {
	Region         string
	Endpoint       string // S3-compatible services only
	ForcePathStyle bool
}

// Fetcher reads definitions from a location. Safe for concurrent use.
type Fetcher struct {
	http     *http.Client
	s3Config S3Config
	maxSize  int64
	logger   *slog.Logger

	mu sync.Mutex
	s3 S3Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the pooled default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.http = c }
}

// WithS3Client sets a pre-configured S3 client.
func WithS3Client(c S3Client) Option {
	return func(f *Fetcher) { f.s3 = c }
}

// WithS3Config configures the S3 client created on first use.
func WithS3Config(cfg S3Config) Option {
	return func(f *Fetcher) { f.s3Config = cfg }
}

// WithMaxSize bounds the decompressed size of a fetched text.
func WithMaxSize(n int64) Option {
	return func(f *Fetcher) { f.maxSize = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:    cleanhttp.DefaultPooledClient(),
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads the definitions at location: a file path, a file://, http://
// or https:// URL, or s3://bucket/key.
func (f *Fetcher) Fetch(ctx context.Context, location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, or a Windows drive letter
		return f.read(location, func() (io.ReadCloser, error) { return os.Open(location) })
	}

	switch u.Scheme {
	case "file":
		return f.read(u.Path, func() (io.ReadCloser, error) { return os.Open(u.Path) })
	case "http", "https":
		return f.read(u.Path, func() (io.ReadCloser, error) { return f.get(ctx, location) })
	case "s3":
		return f.read(u.Path, func() (io.ReadCloser, error) { return f.getObject(ctx, u) })
	default:
		return "", fmt.Errorf("%w: unsupported source scheme %q", types.ErrInvalidArgument, u.Scheme)
	}
}

func (f *Fetcher) read(name string, open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var r io.Reader = rc
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return "", fmt.Errorf("%w: %v", types.ErrEncoding, err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(rc)
		if err != nil {
			return "", fmt.Errorf("%w: %v", types.ErrEncoding, err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(io.LimitReader(r, f.maxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > f.maxSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", types.ErrInvalidArgument, name, f.maxSize)
	}
	f.logger.Debug("definitions fetched", "source", name, "bytes", len(data))
	return string(data), nil
}

func (f *Fetcher) get(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: %s", location, resp.Status)
	}
	return resp.Body, nil
}

func (f *Fetcher) getObject(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 location needs bucket and key: %s", types.ErrInvalidArgument, u)
	}
	client, err := f.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	return out.Body, nil
}

func (f *Fetcher) s3Client(ctx context.Context) (S3Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.s3 != nil {
		return f.s3, nil
	}
	opts := []func(*config.LoadOptions) error{config.WithHTTPClient(f.http)}
	if f.s3Config.Region != "" {
		opts = append(opts, config.WithRegion(f.s3Config.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	f.s3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if f.s3Config.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.s3Config.Endpoint)
		}
		o.UsePathStyle = f.s3Config.ForcePathStyle
	})
	return f.s3, nil
}
