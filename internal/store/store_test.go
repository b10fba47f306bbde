package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mutasim99/note-hive-server/internal/chunker"
	"github.com/mutasim99/note-hive-server/internal/models"
)

// memChunkStore is an in-memory ChunkStore with a programmable failure
// point for abort-path tests.
type memChunkStore struct {
	mu     sync.Mutex
	chunks map[string]map[int][]byte

	// failPutAt makes PutChunk fail when asked to store that index.
	failPutAt int

	// beforePut runs under the lock before each successful put.
	beforePut func(fileID string, index int)
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{
		chunks:    make(map[string]map[int][]byte),
		failPutAt: -1,
	}
}

func (m *memChunkStore) PutChunk(ctx context.Context, fileID string, index int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index == m.failPutAt {
		return errors.New("simulated storage fault")
	}
	if m.beforePut != nil {
		m.beforePut(fileID, index)
	}
	if m.chunks[fileID] == nil {
		m.chunks[fileID] = make(map[int][]byte)
	}
	m.chunks[fileID][index] = append([]byte(nil), data...)
	return nil
}

func (m *memChunkStore) GetChunk(ctx context.Context, fileID string, index int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.chunks[fileID][index]
	if !ok {
		return nil, fmt.Errorf("chunk %s/%d: %w", fileID, index, ErrNotFound)
	}
	return data, nil
}

func (m *memChunkStore) DeleteChunks(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, fileID)
	return nil
}

func (m *memChunkStore) IterateChunks(ctx context.Context, fileID string) ChunkIterator {
	return &memIterator{ctx: ctx, store: m, fileID: fileID}
}

func (m *memChunkStore) chunkCount(fileID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks[fileID])
}

type memIterator struct {
	ctx    context.Context
	store  *memChunkStore
	fileID string
	next   int
}

func (it *memIterator) Next() ([]byte, error) {
	data, err := it.store.GetChunk(it.ctx, it.fileID, it.next)
	if err != nil {
		if it.next == 0 {
			return nil, err
		}
		return nil, io.EOF
	}
	it.next++
	return data, nil
}

// memIndex is an in-memory MetadataIndex.
type memIndex struct {
	mu    sync.Mutex
	files map[string]*models.FileMetadata
	gets  int
}

func newMemIndex() *memIndex {
	return &memIndex{files: make(map[string]*models.FileMetadata)}
}

func (m *memIndex) CreateFile(ctx context.Context, file *models.FileMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[file.ID]; exists {
		return fmt.Errorf("file %s already exists: %w", file.ID, ErrConflict)
	}
	cp := *file
	m.files[file.ID] = &cp
	return nil
}

func (m *memIndex) GetFile(ctx context.Context, fileID string) (*models.FileMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	file, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	cp := *file
	return &cp, nil
}

func (m *memIndex) FindFilesByTags(ctx context.Context, filter models.TagSet) ([]*models.FileMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FileMetadata
	for _, file := range m.files {
		if filter.Semester != "" && file.Tags.Semester != filter.Semester {
			continue
		}
		if filter.Department != "" && file.Tags.Department != filter.Department {
			continue
		}
		if filter.Subject != "" && file.Tags.Subject != filter.Subject {
			continue
		}
		cp := *file
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memIndex) MostRecentFiles(ctx context.Context, limit int) ([]*models.FileMetadata, error) {
	all, _ := m.FindFilesByTags(ctx, models.TagSet{Semester: "", Department: "", Subject: ""})
	// FindFilesByTags skips empty fields, so reuse it unfiltered.
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memIndex) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileID]; !ok {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	delete(m.files, fileID)
	return nil
}

func (m *memIndex) has(fileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[fileID]
	return ok
}

func testTags() models.TagSet {
	return models.TagSet{Semester: "S1", Department: "CSE", Subject: "Algorithms"}
}

func newTestStore(chunkSize int64) (*FileStore, *memChunkStore, *memIndex) {
	chunks := newMemChunkStore()
	index := newMemIndex()
	fs := NewFileStore(chunks, index, nil, chunker.NewChunker(chunkSize))
	return fs, chunks, index
}

func downloadAll(t *testing.T, fs *FileStore, fileID string) []byte {
	t.Helper()
	download, err := fs.Download(context.Background(), fileID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	var buf bytes.Buffer
	for {
		chunk, err := download.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextChunk failed: %v", err)
		}
		buf.Write(chunk)
	}
	return buf.Bytes()
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	fs, _, _ := newTestStore(1024)

	data := make([]byte, 10_000)
	for i := range data {
		data[i] = byte(i % 251)
	}

	result, err := fs.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(data),
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
		Tags:        testTags(),
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.Length != int64(len(data)) {
		t.Errorf("Length = %d, want %d", result.Length, len(data))
	}

	got := downloadAll(t, fs, result.FileID)
	if !bytes.Equal(got, data) {
		t.Fatalf("downloaded bytes differ from uploaded bytes (got %d bytes, want %d)", len(got), len(data))
	}
}

func TestUploadChunkingScenario(t *testing.T) {
	// 10 bytes with chunk size 4 must produce chunks of 4, 4 and 2.
	fs, chunks, _ := newTestStore(4)

	data := []byte("0123456789")
	result, err := fs.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(data),
		Filename:    "tiny.pdf",
		ContentType: "application/pdf",
		Tags:        testTags(),
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.Length != 10 {
		t.Errorf("Length = %d, want 10", result.Length)
	}
	if n := chunks.chunkCount(result.FileID); n != 3 {
		t.Errorf("stored chunk count = %d, want 3", n)
	}
	for i, want := range []int{4, 4, 2} {
		chunk, err := chunks.GetChunk(context.Background(), result.FileID, i)
		if err != nil {
			t.Fatalf("GetChunk(%d) failed: %v", i, err)
		}
		if len(chunk) != want {
			t.Errorf("chunk %d length = %d, want %d", i, len(chunk), want)
		}
	}

	if got := downloadAll(t, fs, result.FileID); !bytes.Equal(got, data) {
		t.Errorf("downloaded bytes = %q, want %q", got, data)
	}

	recent, err := fs.MostRecent(context.Background(), 1)
	if err != nil {
		t.Fatalf("MostRecent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != result.FileID {
		t.Errorf("MostRecent(1) = %+v, want just file %s", recent, result.FileID)
	}
}

func TestUploadEmptyBody(t *testing.T) {
	fs, chunks, index := newTestStore(4)

	_, err := fs.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(nil),
		Filename:    "empty.pdf",
		ContentType: "application/pdf",
		Tags:        testTags(),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(chunks.chunks) != 0 {
		t.Errorf("chunks remain after rejected empty upload")
	}
	if len(index.files) != 0 {
		t.Errorf("metadata published for rejected empty upload")
	}
}

func TestUploadMissingTags(t *testing.T) {
	fs, chunks, _ := newTestStore(4)

	_, err := fs.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader([]byte("data")),
		Filename:    "x.pdf",
		ContentType: "application/pdf",
		Tags:        models.TagSet{Semester: "S1"},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(chunks.chunks) != 0 {
		t.Errorf("chunks written before validation failed")
	}
}

func TestUploadAbortCleanup(t *testing.T) {
	fs, chunks, index := newTestStore(4)
	chunks.failPutAt = 2 // fault after two chunks are durably stored

	_, err := fs.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(bytes.Repeat([]byte("a"), 100)),
		Filename:    "doomed.pdf",
		ContentType: "application/pdf",
		Tags:        testTags(),
	})
	if err == nil {
		t.Fatal("Upload succeeded despite storage fault")
	}
	if len(chunks.chunks) != 0 {
		t.Errorf("orphaned chunks survived the aborted upload: %d files", len(chunks.chunks))
	}
	if len(index.files) != 0 {
		t.Errorf("metadata published for aborted upload")
	}
}

func TestUploadPublishesAfterAllChunks(t *testing.T) {
	fs, chunks, index := newTestStore(4)

	// While chunks are still being written the metadata record must not
	// exist yet.
	chunks.beforePut = func(fileID string, index2 int) {
		if index.has(fileID) {
			t.Errorf("metadata for %s visible before chunk %d was written", fileID, index2)
		}
	}

	if _, err := fs.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(bytes.Repeat([]byte("b"), 20)),
		Filename:    "ordered.pdf",
		ContentType: "application/pdf",
		Tags:        testTags(),
	}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
}

func TestDownloadMalformedID(t *testing.T) {
	fs, _, index := newTestStore(4)

	_, err := fs.Download(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if index.gets != 0 {
		t.Errorf("index queried %d times for a malformed id, want 0", index.gets)
	}
}

func TestDownloadUnknownID(t *testing.T) {
	fs, _, _ := newTestStore(4)

	_, err := fs.Download(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDownloadMissingChunkIsCorruption(t *testing.T) {
	fs, chunks, index := newTestStore(4)

	// Metadata promising three chunks, but only two stored.
	fileID := uuid.New().String()
	if err := index.CreateFile(context.Background(), &models.FileMetadata{
		ID: fileID, Filename: "hole.pdf", Length: 10, ChunkSize: 4,
		ContentType: "application/pdf", Tags: testTags(), CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	chunks.PutChunk(context.Background(), fileID, 0, []byte("0123"))
	chunks.PutChunk(context.Background(), fileID, 1, []byte("4567"))

	download, err := fs.Download(context.Background(), fileID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := download.NextChunk(); err != nil {
			t.Fatalf("NextChunk(%d) failed: %v", i, err)
		}
	}
	if _, err := download.NextChunk(); err == nil || err == io.EOF {
		t.Fatalf("err = %v, want a corruption error for the missing final chunk", err)
	}
}

func TestListByTagsFiltering(t *testing.T) {
	fs, _, index := newTestStore(4)
	ctx := context.Background()

	now := time.Now()
	seed := []*models.FileMetadata{
		{ID: uuid.New().String(), Filename: "a.pdf", Length: 4, ChunkSize: 4, ContentType: "application/pdf",
			Tags: models.TagSet{Semester: "S1", Department: "D1", Subject: "Sub1"}, CreatedAt: now},
		{ID: uuid.New().String(), Filename: "b.pdf", Length: 4, ChunkSize: 4, ContentType: "application/pdf",
			Tags: models.TagSet{Semester: "S1", Department: "D1", Subject: "Sub2"}, CreatedAt: now.Add(time.Second)},
	}
	for _, file := range seed {
		if err := index.CreateFile(ctx, file); err != nil {
			t.Fatal(err)
		}
	}

	full, err := fs.ListByTags(ctx, models.TagSet{Semester: "S1", Department: "D1", Subject: "Sub1"})
	if err != nil {
		t.Fatalf("ListByTags failed: %v", err)
	}
	if len(full) != 1 || full[0].ID != seed[0].ID {
		t.Errorf("full filter returned %d records, want only %s", len(full), seed[0].ID)
	}

	partial, err := fs.ListByTags(ctx, models.TagSet{Semester: "S1", Department: "D1"})
	if err != nil {
		t.Fatalf("ListByTags failed: %v", err)
	}
	if len(partial) != 2 {
		t.Errorf("partial filter returned %d records, want 2", len(partial))
	}

	if _, err := fs.ListByTags(ctx, models.TagSet{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty filter err = %v, want ErrInvalidInput", err)
	}
}

func TestMostRecentOrderingAndLimit(t *testing.T) {
	fs, _, index := newTestStore(4)
	ctx := context.Background()

	base := time.Now()
	var ids []string
	for i := 0; i < 5; i++ {
		id := uuid.New().String()
		ids = append(ids, id)
		if err := index.CreateFile(ctx, &models.FileMetadata{
			ID: id, Filename: fmt.Sprintf("f%d.pdf", i), Length: 4, ChunkSize: 4,
			ContentType: "application/pdf", Tags: testTags(),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := fs.MostRecent(ctx, 3)
	if err != nil {
		t.Fatalf("MostRecent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("MostRecent(3) returned %d records", len(recent))
	}
	for i, want := range []string{ids[4], ids[3], ids[2]} {
		if recent[i].ID != want {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].ID, want)
		}
	}

	if _, err := fs.MostRecent(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("MostRecent(0) err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteRemovesChunksAndMetadata(t *testing.T) {
	fs, chunks, _ := newTestStore(4)
	ctx := context.Background()

	result, err := fs.Upload(ctx, UploadInput{
		Body:        bytes.NewReader([]byte("0123456789")),
		Filename:    "gone.pdf",
		ContentType: "application/pdf",
		Tags:        testTags(),
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := fs.Delete(ctx, result.FileID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n := chunks.chunkCount(result.FileID); n != 0 {
		t.Errorf("%d chunks remain after delete", n)
	}
	if _, err := fs.Download(ctx, result.FileID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download after delete err = %v, want ErrNotFound", err)
	}

	if err := fs.Delete(ctx, result.FileID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}
