package store

import (
	"context"
	"fmt"

	"github.com/mutasim99/note-hive-server/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// maxRecentLimit caps "most recent N" requests.
const maxRecentLimit = 100

// ListByTags returns the metadata records matching the non-empty fields
// of the filter. At least one field must be set.
func (s *FileStore) ListByTags(ctx context.Context, filter models.TagSet) ([]*models.FileMetadata, error) {
	if filter.Semester == "" && filter.Department == "" && filter.Subject == "" {
		return nil, fmt.Errorf("empty tag filter: %w", ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "list_files_by_tags")
	defer span.End()
	span.SetAttributes(
		attribute.String("semester", filter.Semester),
		attribute.String("department", filter.Department),
		attribute.String("subject", filter.Subject),
	)

	files, err := s.index.FindFilesByTags(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	return files, nil
}

// MostRecent returns up to limit records ordered by creation time
// descending.
func (s *FileStore) MostRecent(ctx context.Context, limit int) ([]*models.FileMetadata, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", ErrInvalidInput)
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	ctx, span := tracer.Start(ctx, "list_recent_files")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	files, err := s.index.MostRecentFiles(ctx, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	return files, nil
}
