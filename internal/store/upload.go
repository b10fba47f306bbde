package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mutasim99/note-hive-server/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// UploadInput carries an incoming byte stream and its descriptive
// metadata. The stream's total length is not known in advance.
type UploadInput struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Tags        models.TagSet
}

// UploadResult reports the identifier and final length of a published file.
type UploadResult struct {
	FileID string `json:"fileId"`
	Length int64  `json:"length"`
}

// Upload consumes the input stream, writes its chunks sequentially and
// publishes the metadata record once the whole stream has been stored.
// Until that publish the file is invisible to readers. On any failure
// all chunks written so far are removed before the error is returned.
func (s *FileStore) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if err := validateUploadInput(input); err != nil {
		return nil, err
	}

	fileID := uuid.New().String()

	ctx, span := tracer.Start(ctx, "upload_file")
	defer span.End()
	span.SetAttributes(
		attribute.String("file_id", fileID),
		attribute.String("file_name", input.Filename),
	)

	log.Printf("Uploading file: %s (ID: %s)", input.Filename, fileID)

	totalSize, chunkCount, err := s.chunker.Split(input.Body, func(index int, data []byte) error {
		return s.chunks.PutChunk(ctx, fileID, index, data)
	})
	if err != nil {
		span.RecordError(err)
		s.abortUpload(fileID)
		return nil, fmt.Errorf("failed to store upload stream: %w", err)
	}

	if totalSize == 0 {
		s.abortUpload(fileID)
		return nil, fmt.Errorf("empty upload body: %w", ErrInvalidInput)
	}

	span.SetAttributes(
		attribute.Int64("file_length", totalSize),
		attribute.Int("chunk_count", chunkCount),
	)

	file := &models.FileMetadata{
		ID:          fileID,
		Filename:    input.Filename,
		Length:      totalSize,
		ChunkSize:   s.chunker.ChunkSize(),
		ContentType: input.ContentType,
		Tags:        input.Tags,
		CreatedAt:   time.Now().UTC(),
	}

	// Publish point: the insert makes the file visible to readers.
	if err := s.index.CreateFile(ctx, file); err != nil {
		span.RecordError(err)
		s.abortUpload(fileID)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateFileMetadata(ctx, fileID); err != nil {
			// Stale-cache cleanup only; the upload already succeeded.
			log.Printf("Warning: failed to invalidate cache for %s: %v", fileID, err)
		}
	}

	log.Printf("File upload completed: %s (ID: %s, %d bytes, %d chunks)",
		input.Filename, fileID, totalSize, chunkCount)

	return &UploadResult{FileID: fileID, Length: totalSize}, nil
}

func validateUploadInput(input UploadInput) error {
	if input.Body == nil {
		return fmt.Errorf("missing upload body: %w", ErrInvalidInput)
	}
	if input.Filename == "" {
		return fmt.Errorf("missing filename: %w", ErrInvalidInput)
	}
	if input.ContentType == "" {
		return fmt.Errorf("missing content type: %w", ErrInvalidInput)
	}
	if input.Tags.Semester == "" || input.Tags.Department == "" || input.Tags.Subject == "" {
		return fmt.Errorf("semester, department and subject are required: %w", ErrInvalidInput)
	}
	return nil
}

// abortUpload removes any chunks written by a failed upload. It runs on
// a fresh context because the request context may already be canceled.
func (s *FileStore) abortUpload(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.chunks.DeleteChunks(ctx, fileID); err != nil {
		log.Printf("ERROR: failed to clean up chunks of aborted upload %s: %v", fileID, err)
	}
}
