package mirror

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ArchiveConfig configures the optional audit archive sink.
type S3ArchiveConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	KeyPrefix      string
	ForcePathStyle bool
}

// S3Archive writes one object per mirrored request under
// KeyPrefix/<seq>, the same client-construction shape the
// teacher's S3 block store uses for its own object store. Grounded on
// pkg/blocks/store/s3.Store.NewFromConfig.
type S3Archive struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	seq       atomic.Uint64
}

// NewS3Archive builds an S3Archive, loading AWS credentials from the
// default provider chain.
func NewS3Archive(ctx context.Context, cfg S3ArchiveConfig) (*S3Archive, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Archive{
		client:    s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Archive uploads the mirrored request as a single flat-text object.
func (a *S3Archive) Archive(ctx context.Context, method, path string, headers http.Header, body []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\n", method, path)
	for k, vs := range headers {
		for _, v := range vs {
			fmt.Fprintf(&buf, "%s: %s\n", k, v)
		}
	}
	buf.WriteByte('\n')
	buf.Write(body)

	key := strings.TrimSuffix(a.keyPrefix, "/") + "/" + strconv.FormatUint(a.seq.Add(1), 10)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
