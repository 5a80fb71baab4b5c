package report

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

// s3PutAPI is the slice of the S3 client the uploader needs.
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader appends run results to an S3 bucket, one object per run.
type S3Uploader struct {
	client s3PutAPI
	bucket string
	prefix string
}

// NewS3Uploader builds an uploader using the ambient AWS credential chain.
func NewS3Uploader(ctx context.Context, bucket, prefix, region string) (*S3Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("report: load aws config: %w", err)
	}
	return &S3Uploader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Upload writes the summary CSV row for one run. The object key embeds the
// run ID so repeated runs never clobber each other.
func (u *S3Uploader) Upload(ctx context.Context, runID string, s traverse.Summary) error {
	key := path.Join(u.prefix, fmt.Sprintf("%s-%s.csv",
		time.Now().UTC().Format("20060102T150405Z"), runID))

	body := "workers,vertices,maxSeconds,visited\n" +
		strings.TrimPrefix(CSV(s), "CSV: ") + "\n"

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &u.bucket,
		Key:    &key,
		Body:   strings.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("report: put s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}
