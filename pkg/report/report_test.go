package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

func sampleSummary() traverse.Summary {
	return traverse.Summary{
		Workers:       4,
		TotalVertices: 40000,
		Visited:       40000,
		MaxElapsed:    1500 * time.Millisecond,
		Found:         true,
	}
}

func TestCSV_Format(t *testing.T) {
	got := CSV(sampleSummary())
	assert.Equal(t, "CSV: 4,40000,1.500000,40000", got)
}

func TestCSV_NotFound(t *testing.T) {
	s := sampleSummary()
	s.Found = false
	s.Visited = 123
	s.MaxElapsed = 250 * time.Microsecond

	got := CSV(s)
	assert.Equal(t, "CSV: 4,40000,0.000250,123", got)
}

func TestRender_ContainsCSVAndFields(t *testing.T) {
	out := Render(sampleSummary())

	assert.Contains(t, out, "CSV: 4,40000,1.500000,40000")
	assert.Contains(t, out, "workers")
	assert.Contains(t, out, "40000")
	assert.Contains(t, out, "target found")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestRender_NotFoundOutcome(t *testing.T) {
	s := sampleSummary()
	s.Found = false

	assert.Contains(t, Render(s), "target not reached")
}

type capturePut struct {
	input *s3.PutObjectInput
}

func (c *capturePut) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	c.input = params
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader_Upload(t *testing.T) {
	capture := &capturePut{}
	u := &S3Uploader{client: capture, bucket: "results", prefix: "weak-scaling"}

	err := u.Upload(context.Background(), "run-7", sampleSummary())
	require.NoError(t, err)
	require.NotNil(t, capture.input)

	assert.Equal(t, "results", *capture.input.Bucket)
	assert.True(t, strings.HasPrefix(*capture.input.Key, "weak-scaling/"))
	assert.True(t, strings.HasSuffix(*capture.input.Key, "-run-7.csv"))

	buf := make([]byte, 256)
	n, _ := capture.input.Body.Read(buf)
	body := string(buf[:n])
	assert.Contains(t, body, "workers,vertices,maxSeconds,visited")
	assert.Contains(t, body, "4,40000,1.500000,40000")
}
