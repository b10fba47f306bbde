package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mutasim99/note-hive-server/internal/models"
	"github.com/mutasim99/note-hive-server/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// mysqlDuplicateEntry is the server error code for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLClient wraps the metadata database with tracing. It holds the
// file metadata index plus the catalog, user, event and task tables.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient initializes a new MySQL client
func NewMySQLClient(dsn string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// EnsureSchema creates the backing tables if they do not exist yet
func (mc *MySQLClient) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			id CHAR(36) PRIMARY KEY,
			filename VARCHAR(512) NOT NULL,
			length BIGINT NOT NULL,
			chunk_size BIGINT NOT NULL,
			content_type VARCHAR(255) NOT NULL,
			semester VARCHAR(64) NOT NULL,
			department VARCHAR(128) NOT NULL,
			subject VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_files_tags (semester, department, subject),
			INDEX idx_files_created_at (created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS subjects (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			semester VARCHAR(64) NOT NULL,
			department VARCHAR(128) NOT NULL,
			name VARCHAR(255) NOT NULL,
			image VARCHAR(1024) NOT NULL DEFAULT '',
			INDEX idx_subjects_catalog (semester, department)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			role VARCHAR(32) NOT NULL DEFAULT 'user',
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_events_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_tasks (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_daily_tasks_email (email)
		)`,
	}

	for _, stmt := range statements {
		if _, err := mc.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// CreateFile inserts file metadata with tracing. This is the publish
// point: the file becomes visible to readers when the insert commits.
func (mc *MySQLClient) CreateFile(ctx context.Context, file *models.FileMetadata) error {
	ctx, span := tracer.Start(ctx, "mysql.create_file",
		trace.WithAttributes(
			attribute.String("file_id", file.ID),
			attribute.String("file_name", file.Filename),
			attribute.Int64("file_length", file.Length),
		),
	)
	defer span.End()

	query := `INSERT INTO files (id, filename, length, chunk_size, content_type, semester, department, subject, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := mc.db.ExecContext(ctx, query,
		file.ID, file.Filename, file.Length, file.ChunkSize, file.ContentType,
		file.Tags.Semester, file.Tags.Department, file.Tags.Subject, file.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			span.SetAttributes(attribute.Bool("duplicate", true))
			return fmt.Errorf("file %s already exists: %w", file.ID, store.ErrConflict)
		}
		span.RecordError(err)
		return fmt.Errorf("failed to insert file: %w", err)
	}

	span.SetAttributes(attribute.Bool("insert_success", true))
	return nil
}

// GetFile retrieves file metadata by ID with tracing
func (mc *MySQLClient) GetFile(ctx context.Context, fileID string) (*models.FileMetadata, error) {
	ctx, span := tracer.Start(ctx, "mysql.get_file",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	query := `SELECT id, filename, length, chunk_size, content_type, semester, department, subject, created_at
			  FROM files WHERE id = ?`

	var file models.FileMetadata
	err := mc.db.QueryRowContext(ctx, query, fileID).Scan(
		&file.ID,
		&file.Filename,
		&file.Length,
		&file.ChunkSize,
		&file.ContentType,
		&file.Tags.Semester,
		&file.Tags.Department,
		&file.Tags.Subject,
		&file.CreatedAt,
	)

	if err == sql.ErrNoRows {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, fmt.Errorf("file %s: %w", fileID, store.ErrNotFound)
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query file: %w", err)
	}

	span.SetAttributes(attribute.Bool("found", true))
	return &file, nil
}

// FindFilesByTags retrieves metadata records matching the non-empty
// fields of the filter, most recent first
func (mc *MySQLClient) FindFilesByTags(ctx context.Context, filter models.TagSet) ([]*models.FileMetadata, error) {
	ctx, span := tracer.Start(ctx, "mysql.find_files_by_tags",
		trace.WithAttributes(
			attribute.String("semester", filter.Semester),
			attribute.String("department", filter.Department),
			attribute.String("subject", filter.Subject),
		),
	)
	defer span.End()

	query := `SELECT id, filename, length, chunk_size, content_type, semester, department, subject, created_at
			  FROM files WHERE 1=1`
	var args []interface{}
	if filter.Semester != "" {
		query += ` AND semester = ?`
		args = append(args, filter.Semester)
	}
	if filter.Department != "" {
		query += ` AND department = ?`
		args = append(args, filter.Department)
	}
	if filter.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, filter.Subject)
	}
	query += ` ORDER BY created_at DESC`

	files, err := mc.queryFiles(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	return files, nil
}

// MostRecentFiles retrieves up to limit records ordered by creation time
// descending
func (mc *MySQLClient) MostRecentFiles(ctx context.Context, limit int) ([]*models.FileMetadata, error) {
	ctx, span := tracer.Start(ctx, "mysql.most_recent_files",
		trace.WithAttributes(
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	query := `SELECT id, filename, length, chunk_size, content_type, semester, department, subject, created_at
			  FROM files ORDER BY created_at DESC LIMIT ?`

	files, err := mc.queryFiles(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	return files, nil
}

// DeleteFile removes a file metadata record with tracing
func (mc *MySQLClient) DeleteFile(ctx context.Context, fileID string) error {
	ctx, span := tracer.Start(ctx, "mysql.delete_file",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	query := `DELETE FROM files WHERE id = ?`

	res, err := mc.db.ExecContext(ctx, query, fileID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetAttributes(attribute.Bool("found", false))
		return fmt.Errorf("file %s: %w", fileID, store.ErrNotFound)
	}

	return nil
}

func (mc *MySQLClient) queryFiles(ctx context.Context, query string, args ...interface{}) ([]*models.FileMetadata, error) {
	rows, err := mc.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*models.FileMetadata
	for rows.Next() {
		var file models.FileMetadata
		err := rows.Scan(
			&file.ID,
			&file.Filename,
			&file.Length,
			&file.ChunkSize,
			&file.ContentType,
			&file.Tags.Semester,
			&file.Tags.Department,
			&file.Tags.Subject,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, &file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// ListSemesters returns each semester with a representative image,
// sorted by semester name
func (mc *MySQLClient) ListSemesters(ctx context.Context) ([]*models.Semester, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_semesters")
	defer span.End()

	query := `SELECT semester, MIN(image) FROM subjects GROUP BY semester ORDER BY semester ASC`

	rows, err := mc.db.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query semesters: %w", err)
	}
	defer rows.Close()

	var semesters []*models.Semester
	for rows.Next() {
		var s models.Semester
		if err := rows.Scan(&s.Semester, &s.Image); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan semester: %w", err)
		}
		semesters = append(semesters, &s)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating semesters: %w", err)
	}

	span.SetAttributes(attribute.Int("semester_count", len(semesters)))
	return semesters, nil
}

// ListDepartments returns the departments of a semester, sorted
func (mc *MySQLClient) ListDepartments(ctx context.Context, semester string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_departments",
		trace.WithAttributes(attribute.String("semester", semester)),
	)
	defer span.End()

	query := `SELECT DISTINCT department FROM subjects WHERE semester = ? ORDER BY department ASC`
	return mc.queryStrings(ctx, span.RecordError, query, semester)
}

// ListSubjects returns the subject names for a semester and department
func (mc *MySQLClient) ListSubjects(ctx context.Context, semester, department string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_subjects",
		trace.WithAttributes(
			attribute.String("semester", semester),
			attribute.String("department", department),
		),
	)
	defer span.End()

	query := `SELECT name FROM subjects WHERE semester = ? AND department = ? ORDER BY name ASC`
	return mc.queryStrings(ctx, span.RecordError, query, semester, department)
}

func (mc *MySQLClient) queryStrings(ctx context.Context, recordError func(error, ...trace.EventOption), query string, args ...interface{}) ([]string, error) {
	rows, err := mc.db.QueryContext(ctx, query, args...)
	if err != nil {
		recordError(err)
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			recordError(err)
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		recordError(err)
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return values, nil
}

// CreateUser inserts a new user. A duplicate email maps to ErrConflict.
func (mc *MySQLClient) CreateUser(ctx context.Context, user *models.User) error {
	ctx, span := tracer.Start(ctx, "mysql.create_user",
		trace.WithAttributes(attribute.String("email", user.Email)),
	)
	defer span.End()

	query := `INSERT INTO users (email, name, role, created_at) VALUES (?, ?, ?, ?)`

	res, err := mc.db.ExecContext(ctx, query, user.Email, user.Name, user.Role, user.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return fmt.Errorf("user %s already exists: %w", user.Email, store.ErrConflict)
		}
		span.RecordError(err)
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		user.ID = id
	}
	return nil
}

// GetUserByEmail retrieves a user record by email
func (mc *MySQLClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "mysql.get_user",
		trace.WithAttributes(attribute.String("email", email)),
	)
	defer span.End()

	query := `SELECT id, email, name, role, created_at FROM users WHERE email = ?`

	var user models.User
	err := mc.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// CreateEvent inserts an event row and fills in its generated id
func (mc *MySQLClient) CreateEvent(ctx context.Context, event *models.Event) error {
	ctx, span := tracer.Start(ctx, "mysql.create_event",
		trace.WithAttributes(attribute.String("email", event.Email)),
	)
	defer span.End()

	query := `INSERT INTO events (email, text, completed, created_at) VALUES (?, ?, ?, ?)`
	res, err := mc.db.ExecContext(ctx, query, event.Email, event.Text, event.Completed, event.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// ListEventsByEmail returns all events belonging to an email
func (mc *MySQLClient) ListEventsByEmail(ctx context.Context, email string) ([]*models.Event, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_events",
		trace.WithAttributes(attribute.String("email", email)),
	)
	defer span.End()

	query := `SELECT id, email, text, completed, created_at FROM events WHERE email = ? ORDER BY created_at DESC`
	rows, err := mc.db.QueryContext(ctx, query, email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Email, &e.Text, &e.Completed, &e.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// SetEventCompleted updates the completed flag of an event
func (mc *MySQLClient) SetEventCompleted(ctx context.Context, id int64, completed bool) error {
	ctx, span := tracer.Start(ctx, "mysql.set_event_completed",
		trace.WithAttributes(attribute.Int64("event_id", id)),
	)
	defer span.End()

	res, err := mc.db.ExecContext(ctx, `UPDATE events SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// DeleteEvent removes an event row
func (mc *MySQLClient) DeleteEvent(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "mysql.delete_event",
		trace.WithAttributes(attribute.Int64("event_id", id)),
	)
	defer span.End()

	res, err := mc.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// CreateDailyTask inserts a daily task row and fills in its generated id
func (mc *MySQLClient) CreateDailyTask(ctx context.Context, task *models.DailyTask) error {
	ctx, span := tracer.Start(ctx, "mysql.create_daily_task",
		trace.WithAttributes(attribute.String("email", task.Email)),
	)
	defer span.End()

	query := `INSERT INTO daily_tasks (email, text, completed, created_at) VALUES (?, ?, ?, ?)`
	res, err := mc.db.ExecContext(ctx, query, task.Email, task.Text, task.Completed, task.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert daily task: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		task.ID = id
	}
	return nil
}

// ListDailyTasksByEmail returns all daily tasks belonging to an email
func (mc *MySQLClient) ListDailyTasksByEmail(ctx context.Context, email string) ([]*models.DailyTask, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_daily_tasks",
		trace.WithAttributes(attribute.String("email", email)),
	)
	defer span.End()

	query := `SELECT id, email, text, completed, created_at FROM daily_tasks WHERE email = ? ORDER BY created_at DESC`
	rows, err := mc.db.QueryContext(ctx, query, email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query daily tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.DailyTask
	for rows.Next() {
		var t models.DailyTask
		if err := rows.Scan(&t.ID, &t.Email, &t.Text, &t.Completed, &t.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan daily task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating daily tasks: %w", err)
	}
	return tasks, nil
}

// SetDailyTaskCompleted updates the completed flag of a daily task
func (mc *MySQLClient) SetDailyTaskCompleted(ctx context.Context, id int64, completed bool) error {
	ctx, span := tracer.Start(ctx, "mysql.set_daily_task_completed",
		trace.WithAttributes(attribute.Int64("task_id", id)),
	)
	defer span.End()

	res, err := mc.db.ExecContext(ctx, `UPDATE daily_tasks SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update daily task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("daily task %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// DeleteDailyTask removes a daily task row
func (mc *MySQLClient) DeleteDailyTask(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "mysql.delete_daily_task",
		trace.WithAttributes(attribute.Int64("task_id", id)),
	)
	defer span.End()

	res, err := mc.db.ExecContext(ctx, `DELETE FROM daily_tasks WHERE id = ?`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete daily task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("daily task %d: %w", id, store.ErrNotFound)
	}
	return nil
}
