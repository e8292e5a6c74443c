package kolayxlsxpack

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used for multipart uploads.
// *s3.Client satisfies it; tests substitute a mock.
type S3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3Sink streams the finished package to S3 via multipart upload
type S3Sink struct {
	client  S3API
	bucket  string
	key     string
	ctx     context.Context
	options *S3Options

	uploadID       *string
	buffer         *bytes.Buffer
	partNumber     int32
	completedParts []types.CompletedPart
	totalBytes     int64
}

// S3Options contains optional configuration for S3 uploads
type S3Options struct {
	// PartSize is the multipart part size in bytes (default: 32MB).
	// S3 requires at least 5MB for every part but the last.
	PartSize int64

	// ACL sets the canned ACL for the object (e.g. "private", "public-read")
	ACL types.ObjectCannedACL

	// ContentType sets the MIME type of the object
	// (default: the xlsx media type)
	ContentType string

	// Metadata sets custom metadata on the object
	Metadata map[string]string

	// StorageClass sets the storage class (e.g. STANDARD, GLACIER)
	StorageClass types.StorageClass

	// ServerSideEncryption sets the encryption method (e.g. AES256, aws:kms)
	ServerSideEncryption types.ServerSideEncryption

	// SSEKMSKeyId sets the KMS key for aws:kms encryption
	SSEKMSKeyId *string
}

// DefaultS3Options returns the default S3 options
func DefaultS3Options() *S3Options {
	return &S3Options{
		PartSize:    32 * 1024 * 1024,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
}

// NewS3Sink creates a sink uploading to the given bucket and key. The
// multipart upload is initiated immediately.
func NewS3Sink(ctx context.Context, client S3API, bucket, key string, options ...*S3Options) (*S3Sink, error) {
	opts := DefaultS3Options()
	if len(options) > 0 && options[0] != nil {
		opts = options[0]
	}
	if opts.PartSize < 5*1024*1024 {
		return nil, fmt.Errorf("part size must be at least 5MB")
	}

	sink := &S3Sink{
		client:     client,
		bucket:     bucket,
		key:        key,
		ctx:        ctx,
		options:    opts,
		buffer:     new(bytes.Buffer),
		partNumber: 1,
	}
	if err := sink.begin(); err != nil {
		return nil, fmt.Errorf("failed to initiate multipart upload: %w", err)
	}
	return sink, nil
}

// Write buffers data and flushes a part whenever the buffer reaches the
// configured part size.
func (s *S3Sink) Write(p []byte) (int, error) {
	n, err := s.buffer.Write(p)
	s.totalBytes += int64(n)
	if s.buffer.Len() >= int(s.options.PartSize) {
		if err := s.flushPart(); err != nil {
			return n, fmt.Errorf("failed to upload part: %w", err)
		}
	}
	return n, err
}

// Close uploads the remaining buffer and completes the multipart upload,
// aborting it if completion fails.
func (s *S3Sink) Close() error {
	if s.buffer.Len() > 0 {
		if err := s.flushPart(); err != nil {
			return fmt.Errorf("failed to upload final part: %w", err)
		}
	}
	if err := s.complete(); err != nil {
		_ = s.abort()
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

// Abort cancels the multipart upload, discarding all uploaded parts
func (s *S3Sink) Abort() error {
	return s.abort()
}

// TotalBytes returns the number of bytes written so far
func (s *S3Sink) TotalBytes() int64 {
	return s.totalBytes
}

// PartCount returns the number of parts uploaded so far
func (s *S3Sink) PartCount() int {
	return len(s.completedParts)
}

func (s *S3Sink) begin() error {
	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		ContentType: aws.String(s.options.ContentType),
	}
	if s.options.ACL != "" {
		input.ACL = s.options.ACL
	}
	if s.options.Metadata != nil {
		input.Metadata = s.options.Metadata
	}
	if s.options.StorageClass != "" {
		input.StorageClass = s.options.StorageClass
	}
	if s.options.ServerSideEncryption != "" {
		input.ServerSideEncryption = s.options.ServerSideEncryption
	}
	if s.options.SSEKMSKeyId != nil {
		input.SSEKMSKeyId = s.options.SSEKMSKeyId
	}

	result, err := s.client.CreateMultipartUpload(s.ctx, input)
	if err != nil {
		return err
	}
	s.uploadID = result.UploadId
	return nil
}

func (s *S3Sink) flushPart() error {
	if s.buffer.Len() == 0 {
		return nil
	}
	result, err := s.client.UploadPart(s.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key),
		PartNumber: aws.Int32(s.partNumber),
		UploadId:   s.uploadID,
		Body:       bytes.NewReader(s.buffer.Bytes()),
	})
	if err != nil {
		return err
	}
	s.completedParts = append(s.completedParts, types.CompletedPart{
		ETag:       result.ETag,
		PartNumber: aws.Int32(s.partNumber),
	})
	s.buffer.Reset()
	s.partNumber++
	return nil
}

func (s *S3Sink) complete() error {
	_, err := s.client.CompleteMultipartUpload(s.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: s.uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: s.completedParts,
		},
	})
	return err
}

func (s *S3Sink) abort() error {
	if s.uploadID == nil {
		return nil
	}
	_, err := s.client.AbortMultipartUpload(s.ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: s.uploadID,
	})
	return err
}
