package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store writes transcript records to S3. If bucket is empty, all operations
// are no-ops.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// RecordKey is the object key of a record archived at the given time.
func RecordKey(conversationID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("transcripts/v1/by-date/%d/%02d/%02d/%s.json",
		at.Year(), at.Month(), at.Day(), safeKeySegment(conversationID))
}

func manifestKey(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("transcripts/v1/manifests/%d-%02d.jsonl", at.Year(), at.Month())
}

// Put writes a record as JSON and appends it to the monthly manifest.
// It returns the object key of the record.
func (s *Store) Put(ctx context.Context, record *TranscriptRecord) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if record == nil {
		return "", errors.New("archive: nil record")
	}
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("archive: marshal record: %w", err)
	}

	key := RecordKey(record.ConversationID, record.ArchivedAt)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived transcript to S3",
		"conversation_id", record.ConversationID,
		"s3_key", key,
		"message_count", record.MessageCount,
		"outcome", record.Outcome,
	)

	entry := ManifestEntry{
		ConversationID: record.ConversationID,
		S3Key:          key,
		Channel:        record.Channel,
		Outcome:        record.Outcome,
		MessageCount:   record.MessageCount,
		ArchivedAt:     record.ArchivedAt.UTC().Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry, record.ArchivedAt); err != nil {
		// The record itself is stored.
		s.logger.Warn("failed to append manifest", "error", err, "conversation_id", record.ConversationID)
	}
	return key, nil
}

// AppendManifest appends a JSONL line to the manifest of the month of at.
// S3 has no append, so this is a read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry, at time.Time) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	key := manifestKey(at)
	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", key)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	// LocalStack and some proxies only surface the code in the message.
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}

// safeKeySegment keeps conversation IDs like "webchat:abc" from nesting keys.
func safeKeySegment(id string) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(id)
}
