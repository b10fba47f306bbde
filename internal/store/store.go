package store

import (
	"context"

	"github.com/mutasim99/note-hive-server/internal/chunker"
	"github.com/mutasim99/note-hive-server/internal/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("note-hive-store")

// ChunkStore persists raw byte ranges of a file as an ordered sequence
// of chunks addressed by (file identifier, chunk index). Chunks are
// never mutated after being written, only deleted as part of cleanup.
type ChunkStore interface {
	PutChunk(ctx context.Context, fileID string, index int, data []byte) error
	GetChunk(ctx context.Context, fileID string, index int) ([]byte, error)
	// DeleteChunks removes every chunk for a file. It succeeds even if
	// some or all chunks are already absent.
	DeleteChunks(ctx context.Context, fileID string) error
	// IterateChunks produces the file's chunks in index order. A fresh
	// call restarts from index 0; iterators are not restartable.
	IterateChunks(ctx context.Context, fileID string) ChunkIterator
}

// ChunkIterator yields chunk byte buffers in ascending index order.
// Next returns io.EOF after the last chunk. If the file has no chunk at
// index 0 the first Next reports ErrNotFound.
type ChunkIterator interface {
	Next() ([]byte, error)
}

// MetadataIndex holds one record per logical file and supports
// equality-filtered lookup over the tag set.
type MetadataIndex interface {
	// CreateFile inserts a new record, failing with ErrConflict if the
	// id already exists.
	CreateFile(ctx context.Context, file *models.FileMetadata) error
	GetFile(ctx context.Context, fileID string) (*models.FileMetadata, error)
	// FindFilesByTags returns all records matching the non-empty fields
	// of the filter, most recent first.
	FindFilesByTags(ctx context.Context, filter models.TagSet) ([]*models.FileMetadata, error)
	MostRecentFiles(ctx context.Context, limit int) ([]*models.FileMetadata, error)
	// DeleteFile removes the record. Callers must have already removed
	// the file's chunks.
	DeleteFile(ctx context.Context, fileID string) error
}

// MetadataCache is a read-through cache over the metadata index. A miss
// is reported as (nil, nil).
type MetadataCache interface {
	GetFileMetadata(ctx context.Context, fileID string) (*models.FileMetadata, error)
	SetFileMetadata(ctx context.Context, fileID string, file *models.FileMetadata) error
	InvalidateFileMetadata(ctx context.Context, fileID string) error
}

// FileStore is the binary object store: it owns the upload and download
// pipelines and the query gateway over the backing chunk store and
// metadata index. Files are immutable after publish, so concurrent
// readers and writers need no coordination beyond the backing stores'
// per-key atomicity.
type FileStore struct {
	chunks  ChunkStore
	index   MetadataIndex
	cache   MetadataCache
	chunker *chunker.Chunker
}

// NewFileStore creates a file store over the given backing stores.
// cache may be nil to disable metadata caching.
func NewFileStore(chunks ChunkStore, index MetadataIndex, cache MetadataCache, chunker *chunker.Chunker) *FileStore {
	return &FileStore{
		chunks:  chunks,
		index:   index,
		cache:   cache,
		chunker: chunker,
	}
}
