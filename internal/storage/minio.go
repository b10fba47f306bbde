package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mutasim99/note-hive-server/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("note-hive-storage")

// MinioClient persists file chunks as MinIO objects keyed by
// chunks/{fileID}/{index}, with tracing on every operation
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// NewMinioClient initializes a new MinIO client
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinioClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	mc := &MinioClient{
		client:     client,
		bucketName: bucketName,
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		log.Printf("Creating bucket: %s", bucketName)
		err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Bucket %s created successfully", bucketName)
	}

	return mc, nil
}

// chunkKey builds the object key for one chunk. The index is zero-padded
// so prefix listings come back in chunk order.
func chunkKey(fileID string, index int) string {
	return fmt.Sprintf("chunks/%s/%08d", fileID, index)
}

func chunkPrefix(fileID string) string {
	return fmt.Sprintf("chunks/%s/", fileID)
}

// PutChunk stores one chunk with tracing
func (mc *MinioClient) PutChunk(ctx context.Context, fileID string, index int, data []byte) error {
	objectKey := chunkKey(fileID, index)
	ctx, span := tracer.Start(ctx, "minio.put_chunk",
		trace.WithAttributes(
			attribute.String("object_key", objectKey),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	reader := bytes.NewReader(data)
	_, err := mc.client.PutObject(ctx, mc.bucketName, objectKey, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to put chunk: %w", err)
	}

	span.SetAttributes(attribute.Bool("upload_success", true))
	return nil
}

// GetChunk retrieves one chunk with tracing
func (mc *MinioClient) GetChunk(ctx context.Context, fileID string, index int) ([]byte, error) {
	objectKey := chunkKey(fileID, index)
	ctx, span := tracer.Start(ctx, "minio.get_chunk",
		trace.WithAttributes(
			attribute.String("object_key", objectKey),
		),
	)
	defer span.End()

	object, err := mc.client.GetObject(ctx, mc.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			span.SetAttributes(attribute.Bool("found", false))
			return nil, fmt.Errorf("chunk %s/%d: %w", fileID, index, store.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read chunk data: %w", err)
	}

	span.SetAttributes(
		attribute.Int("size_bytes", len(data)),
		attribute.Bool("found", true),
	)
	return data, nil
}

// DeleteChunks removes every chunk stored for a file. Deleting a file
// that has no chunks is not an error.
func (mc *MinioClient) DeleteChunks(ctx context.Context, fileID string) error {
	ctx, span := tracer.Start(ctx, "minio.delete_chunks",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	removed := 0
	for object := range mc.client.ListObjects(ctx, mc.bucketName, minio.ListObjectsOptions{
		Prefix:    chunkPrefix(fileID),
		Recursive: true,
	}) {
		if object.Err != nil {
			span.RecordError(object.Err)
			return fmt.Errorf("failed to list chunks: %w", object.Err)
		}
		if err := mc.client.RemoveObject(ctx, mc.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to delete chunk %s: %w", object.Key, err)
		}
		removed++
	}

	span.SetAttributes(attribute.Int("chunks_removed", removed))
	return nil
}

// IterateChunks returns a lazy iterator over the file's chunks in index
// order. The next chunk is only fetched when Next is called, so a slow
// consumer holds at most one chunk in memory.
func (mc *MinioClient) IterateChunks(ctx context.Context, fileID string) store.ChunkIterator {
	return &chunkIterator{
		ctx:    ctx,
		client: mc,
		fileID: fileID,
	}
}

type chunkIterator struct {
	ctx    context.Context
	client *MinioClient
	fileID string
	next   int
}

func (it *chunkIterator) Next() ([]byte, error) {
	data, err := it.client.GetChunk(it.ctx, it.fileID, it.next)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if it.next == 0 {
				// No chunks recorded at all for this file.
				return nil, err
			}
			return nil, io.EOF
		}
		return nil, err
	}
	it.next++
	return data, nil
}

// isNoSuchKey reports whether err is MinIO's missing-object error.
func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}
