package datasource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/viewmodel/internal/errors"
)

// Fetcher reads the raw bytes at a location.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) ([]byte, error)
}

// FileFetcher reads local files. Relative paths are resolved against Dir.
type FileFetcher struct {
	Dir string
}

// Fetch implements Fetcher.
func (f FileFetcher) Fetch(_ context.Context, u *url.URL) ([]byte, error) {
	p := u.Path
	if !filepath.IsAbs(p) && f.Dir != "" {
		p = filepath.Join(f.Dir, p)
	}
	return os.ReadFile(p)
}

// ObjectGetter is the part of *s3.Client that S3Fetcher needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key objects.
type S3Fetcher struct {
	Client ObjectGetter
	// MaxSize limits the object size in bytes. 0 means no limit.
	MaxSize int64
}

// Fetch implements Fetcher.
func (f S3Fetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("s3 location needs a bucket and a key: %s", u)
	}
	out, err := f.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if f.MaxSize > 0 {
		r = io.LimitReader(out.Body, f.MaxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if f.MaxSize > 0 && int64(len(data)) > f.MaxSize {
		return nil, fmt.Errorf("object %s exceeds %d bytes", u, f.MaxSize)
	}
	return data, nil
}

// NewS3Client builds an S3 client for region. A non-empty endpoint points
// the client at an S3-compatible store using path-style addressing.
// Credentials come from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY; without
// them requests are anonymous.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{Region: region}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	if id := os.Getenv("AWS_ACCESS_KEY_ID"); id != "" {
		creds := aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	return s3.New(opts)
}

// Loader resolves a location to a fetcher and decodes the result.
type Loader struct {
	files Fetcher
	s3    Fetcher
}

// Option configures a Loader.
type Option func(*Loader)

// WithBaseDir resolves relative file locations against dir.
func WithBaseDir(dir string) Option {
	return func(l *Loader) {
		l.files = FileFetcher{Dir: dir}
	}
}

// WithS3 enables s3:// locations.
func WithS3(client ObjectGetter) Option {
	return func(l *Loader) {
		l.s3 = S3Fetcher{Client: client}
	}
}

// WithFetcher replaces the fetcher for a scheme ("file" or "s3").
func WithFetcher(scheme string, f Fetcher) Option {
	return func(l *Loader) {
		switch scheme {
		case "file":
			l.files = f
		case "s3":
			l.s3 = f
		}
	}
}

// NewLoader returns a Loader reading files relative to the working
// directory. s3:// is unavailable until WithS3 is given.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{files: FileFetcher{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches and decodes the data at location.
func (l *Loader) Load(ctx context.Context, location string) (map[string]any, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.New("E141").WithDetail(location).Wrap(err)
	}

	var f Fetcher
	switch u.Scheme {
	case "", "file":
		f = l.files
	case "s3":
		f = l.s3
	default:
		return nil, errors.New("E141").
			WithDetail(fmt.Sprintf("unsupported scheme %q in %s", u.Scheme, location)).
			WithSuggestion("Use a file path or an s3://bucket/key location")
	}
	if f == nil {
		return nil, errors.New("E141").
			WithDetail("no " + u.Scheme + " client configured for " + location).
			WithSuggestion("Set sources.s3Region in the config file")
	}

	format, err := FormatFor(u.Path)
	if err != nil {
		return nil, errors.New("E141").WithDetail(err.Error()).
			WithSuggestion("Use a .json, .yaml or .cbor file")
	}

	raw, err := f.Fetch(ctx, u)
	if err != nil {
		return nil, errors.New("E141").WithDetail(location).Wrap(err)
	}
	data, err := Decode(format, raw)
	if err != nil {
		return nil, errors.New("E141").WithDetail("decoding " + location + " as " + format.String()).Wrap(err)
	}
	return data, nil
}
