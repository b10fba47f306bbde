package models

import "time"

// TagSet classifies a file within the course catalog. All three fields
// are required and immutable once the file is published.
type TagSet struct {
	Semester   string `json:"semester"`
	Department string `json:"department"`
	Subject    string `json:"subject"`
}

// FileMetadata describes a completed upload. A record exists only once
// every chunk of the file is durably stored.
type FileMetadata struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Length      int64     `json:"length"`
	ChunkSize   int64     `json:"chunk_size"`
	ContentType string    `json:"content_type"`
	Tags        TagSet    `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChunkCount returns the number of chunks backing this file.
func (f *FileMetadata) ChunkCount() int {
	if f.ChunkSize <= 0 {
		return 0
	}
	return int((f.Length + f.ChunkSize - 1) / f.ChunkSize)
}

// Semester is one row of the read-only course catalog.
type Semester struct {
	Semester string `json:"semester"`
	Image    string `json:"image"`
}

// User is an account record. Role is either "user" or "admin".
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a personal calendar entry.
type Event struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyTask is a personal to-do entry.
type DailyTask struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}
