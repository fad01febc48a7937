package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client defines the S3 operations used by S3Source.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates the key objects. Either object key may be empty, but
// not both.
type S3Config struct {
	Bucket         string
	Region         string
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // Optional: for S3-compatible services
	ForcePathStyle bool   // For S3-compatible services like MinIO

	PublicKeyObject  string
	PrivateKeyObject string
}

// S3Option configures S3Source.
type S3Option func(*s3Options)

type s3Options struct {
	httpClient      *http.Client
	s3Client        S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
	s3ClientOptions []func(*s3.Options)
}

// WithS3Client sets a pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithS3ClientOption adds a custom S3 client option.
func WithS3ClientOption(option func(*s3.Options)) S3Option {
	return func(o *s3Options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// S3Source reads PEM keys stored as objects in one bucket.
// It is safe for concurrent use.
type S3Source struct {
	client     S3Client
	bucket     string
	publicKey  string
	privateKey string
}

// NewS3Source creates an S3Source. Without WithS3Client the AWS default
// credential chain is used, overridden by static credentials when cfg
// carries them.
func NewS3Source(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	if cfg.PublicKeyObject == "" && cfg.PrivateKeyObject == "" {
		return nil, fmt.Errorf("%w: no key objects", ErrInvalidConfig)
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.s3Client
	if client == nil {
		if cfg.Region == "" {
			return nil, fmt.Errorf("%w: region is required", ErrInvalidConfig)
		}

		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}
		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: aws config: %v", ErrInvalidConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	return &S3Source{
		client:     client,
		bucket:     cfg.Bucket,
		publicKey:  cfg.PublicKeyObject,
		privateKey: cfg.PrivateKeyObject,
	}, nil
}

func (s *S3Source) Load(ctx context.Context) (KeyPair, error) {
	pub, err := s.fetch(ctx, s.publicKey)
	if err != nil {
		return KeyPair{}, err
	}
	priv, err := s.fetch(ctx, s.privateKey)
	if err != nil {
		clear(pub)
		return KeyPair{}, err
	}

	pair := KeyPair{PublicKey: pub, PrivateKey: priv}
	if pair.Empty() {
		return KeyPair{}, ErrEmptyKeyPair
	}
	return pair, nil
}

func (s *S3Source) fetch(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, s.bucket, key)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > MaxKeySize {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrKeyTooLarge, s.bucket, key)
	}

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxKeySize+1))
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadKey, err)
	}
	if len(data) > MaxKeySize {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrKeyTooLarge, s.bucket, key)
	}
	return normalizePEM(data)
}

// classifyS3Error converts S3 errors to key loading errors.
func classifyS3Error(err error, bucket, key string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	location := fmt.Sprintf("s3://%s/%s", bucket, key)

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, location)
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: bucket %s", ErrInvalidConfig, bucket)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %s", ErrAccessDenied, location)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrKeyNotFound, location)
		case "NoSuchBucket":
			return fmt.Errorf("%w: bucket %s", ErrInvalidConfig, bucket)
		default:
			return errors.Join(ErrFailedToLoadKey, fmt.Errorf("%s (code: %s): %w", location, code, err))
		}
	}

	return errors.Join(ErrFailedToLoadKey, fmt.Errorf("%s: %w", location, err))
}
