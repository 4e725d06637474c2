package audit

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI abstracts the S3 PutObject operation.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveSink stores each response body under lookups/<cep>/<request>.json.
type ArchiveSink struct {
	s3     PutObjectAPI
	bucket string
}

// NewArchiveSink returns a sink writing into bucket.
func NewArchiveSink(client PutObjectAPI, bucket string) *ArchiveSink {
	return &ArchiveSink{s3: client, bucket: bucket}
}

// Key returns the object key used for e.
func (a *ArchiveSink) Key(e Entry) string {
	cep := e.CEP
	if cep == "" {
		cep = "unknown"
	}
	return path.Join("lookups", cep, objectID(e)+".json")
}

// Record implements Sink.
func (a *ArchiveSink) Record(ctx context.Context, e Entry) error {
	key := a.Key(e)
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader([]byte(e.Body)),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"outcome":     string(e.Outcome),
			"status-code": strconv.Itoa(e.StatusCode),
		},
	})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	return nil
}
