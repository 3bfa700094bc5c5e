package importer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
)

const s3Scheme = "s3://"

// Opener opens an import source for reading.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// FileOpener reads sources from the local filesystem.
type FileOpener struct{}

// Open opens the file at path.
func (FileOpener) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(componentImporter).
			Category(errors.CategoryFileIO).
			Context("source", path).
			Build()
	}
	return f, nil
}

// S3Opener reads s3://bucket/key sources from S3 or a compatible store.
type S3Opener struct {
	client *s3.Client
}

// NewS3Opener builds an S3 client from settings. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
// optFns are applied to the client options after the settings.
func NewS3Opener(ctx context.Context, settings *conf.S3Settings, optFns ...func(*s3.Options)) (*S3Opener, error) {
	region := settings.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("load aws config: %w", err)).
			Component(componentImporter).
			Category(errors.CategoryConfiguration).
			Build()
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = settings.PathStyle
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3Opener{client: client}, nil
}

// Open fetches the object named by an s3://bucket/key location.
func (o *S3Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New(fmt.Errorf("get object %s: %w", location, err)).
			Component(componentImporter).
			Category(errors.CategoryStorage).
			Context("bucket", bucket).
			Context("key", key).
			Build()
	}
	return out.Body, nil
}

// ParseS3Location splits s3://bucket/key into its bucket and key.
func ParseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" || u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return "", "", errors.Newf("invalid s3 location %q, expected s3://bucket/key", location).
			Component(componentImporter).
			Category(errors.CategoryValidation).
			Build()
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// IsS3Location reports whether location names an object storage source.
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// Sources dispatches locations to the local filesystem or object storage.
// The S3 client is built on first use.
type Sources struct {
	Files    Opener
	S3       Opener
	Settings *conf.S3Settings
}

// Open opens location with the matching opener.
func (s *Sources) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsS3Location(location) {
		files := s.Files
		if files == nil {
			files = FileOpener{}
		}
		return files.Open(ctx, location)
	}
	if s.S3 == nil {
		settings := s.Settings
		if settings == nil {
			settings = &conf.S3Settings{}
		}
		opener, err := NewS3Opener(ctx, settings)
		if err != nil {
			return nil, err
		}
		s.S3 = opener
	}
	return s.S3.Open(ctx, location)
}

// ImportFrom opens location through opener and imports it.
func (im *Importer) ImportFrom(ctx context.Context, opener Opener, location string) (*Result, error) {
	start := time.Now()
	rc, err := opener.Open(ctx, location)
	im.recorder.RecordDuration(metrics.OpImportFetch, time.Since(start).Seconds())
	if err != nil {
		im.recorder.RecordOperation(metrics.OpImportFetch, metrics.StatusError)
		im.recorder.RecordError(metrics.OpImportFetch, string(errors.CategoryFor(err)))
		return nil, err
	}
	im.recorder.RecordOperation(metrics.OpImportFetch, metrics.StatusSuccess)

	defer func() {
		if cerr := rc.Close(); cerr != nil {
			im.log.Warn("failed to close import source",
				logger.String("source", location),
				logger.Error(cerr))
		}
	}()
	return im.Import(ctx, rc, location)
}
