package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mutasim99/note-hive-server/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// Download is an in-progress read of one file. Chunks are fetched
// lazily: the next chunk is only requested from the backing store when
// the previous one has been consumed.
type Download struct {
	Metadata *models.FileMetadata

	iter     ChunkIterator
	expected int
	read     int
}

// Download resolves a file's metadata and opens a chunk stream over it.
// Malformed identifiers are rejected before the index is queried, since
// they can never match a record.
func (s *FileStore) Download(ctx context.Context, fileID string) (*Download, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, fmt.Errorf("malformed file id %q: %w", fileID, ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "download_file")
	defer span.End()
	span.SetAttributes(attribute.String("file_id", fileID))

	file, err := s.resolveMetadata(ctx, fileID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("file_name", file.Filename),
		attribute.Int64("file_length", file.Length),
	)

	return &Download{
		Metadata: file,
		iter:     s.chunks.IterateChunks(ctx, fileID),
		expected: file.ChunkCount(),
	}, nil
}

// NextChunk returns the next chunk of the file in index order, or io.EOF
// after the last one. A chunk missing before the expected count is index
// corruption: the metadata record promised chunks the store does not
// hold. That is logged as an invariant violation, not a normal miss.
func (d *Download) NextChunk() ([]byte, error) {
	data, err := d.iter.Next()
	if err == io.EOF {
		if d.read != d.expected {
			err := fmt.Errorf("file %s: expected %d chunks, stored %d", d.Metadata.ID, d.expected, d.read)
			log.Printf("ERROR: chunk index corrupted: %v", err)
			return nil, err
		}
		return nil, io.EOF
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("ERROR: chunk index corrupted: file %s has metadata but no chunk %d", d.Metadata.ID, d.read)
			return nil, fmt.Errorf("file %s: missing chunk %d", d.Metadata.ID, d.read)
		}
		return nil, err
	}
	d.read++
	return data, nil
}

// resolveMetadata reads a metadata record through the cache
func (s *FileStore) resolveMetadata(ctx context.Context, fileID string) (*models.FileMetadata, error) {
	if s.cache != nil {
		file, err := s.cache.GetFileMetadata(ctx, fileID)
		if err != nil {
			log.Printf("Warning: cache lookup failed for %s: %v", fileID, err)
		} else if file != nil {
			return file, nil
		}
	}

	file, err := s.index.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetFileMetadata(ctx, fileID, file); err != nil {
			log.Printf("Warning: failed to update cache for %s: %v", fileID, err)
		}
	}

	return file, nil
}

// Delete removes a file: chunks first, then the metadata record, so a
// reader never observes metadata without its chunks.
func (s *FileStore) Delete(ctx context.Context, fileID string) error {
	if _, err := uuid.Parse(fileID); err != nil {
		return fmt.Errorf("malformed file id %q: %w", fileID, ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "delete_file")
	defer span.End()
	span.SetAttributes(attribute.String("file_id", fileID))

	if _, err := s.index.GetFile(ctx, fileID); err != nil {
		return err
	}

	if err := s.chunks.DeleteChunks(ctx, fileID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks of %s: %w", fileID, err)
	}

	if err := s.index.DeleteFile(ctx, fileID); err != nil {
		span.RecordError(err)
		return err
	}

	if s.cache != nil {
		invCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.cache.InvalidateFileMetadata(invCtx, fileID); err != nil {
			log.Printf("Warning: failed to invalidate cache for %s: %v", fileID, err)
		}
	}

	log.Printf("File deleted: %s", fileID)
	return nil
}
