package chunker

import (
	"fmt"
	"io"
)

// Chunker slices a byte stream into fixed-size chunks
type Chunker struct {
	chunkSize int64
}

// NewChunker creates a new chunker with the specified chunk size
func NewChunker(chunkSize int64) *Chunker {
	return &Chunker{
		chunkSize: chunkSize,
	}
}

// ChunkSize returns the configured chunk size in bytes
func (c *Chunker) ChunkSize() int64 {
	return c.chunkSize
}

// EmitFunc receives one chunk. Chunks arrive strictly in index order and
// every chunk except the last has length exactly chunkSize. Returning an
// error stops the split immediately.
type EmitFunc func(index int, data []byte) error

// Split reads from a reader and emits chunks of the configured size as
// they fill up, so at most one chunk is buffered at a time. It returns
// the total number of bytes read and the number of chunks emitted.
func (c *Chunker) Split(reader io.Reader, emit EmitFunc) (int64, int, error) {
	var totalSize int64
	index := 0

	for {
		buffer := make([]byte, c.chunkSize)
		n, err := io.ReadFull(reader, buffer)

		if n > 0 {
			if emitErr := emit(index, buffer[:n]); emitErr != nil {
				return totalSize, index, emitErr
			}
			totalSize += int64(n)
			index++
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		} else if err != nil {
			return totalSize, index, fmt.Errorf("error reading chunk: %w", err)
		}
	}

	return totalSize, index, nil
}
