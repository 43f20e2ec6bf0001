// Package asyncjob implements the background rebuild task ledger: a
// sqlite-backed record of full-reindex jobs that survives process restarts,
// so a client polling a task_id after a redeploy still gets an answer.
package asyncjob

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
)

// Status is the lifecycle state of a rebuild job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a snapshot of a rebuild task's state.
type Job struct {
	TaskID       string    `json:"task_id"`
	Status       Status    `json:"status"`
	TotalIndexed int       `json:"total_indexed"`
	ActiveIndex  string    `json:"active_index,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Result is what a reindex function reports back on success.
type Result struct {
	ActiveIndex  string
	TotalIndexed int
}

// ReindexFunc runs a full reindex. Modeled on indexer.Indexer.FullReindex's
// signature; the CLI wiring wraps that method in a closure that converts its
// result into a Result.
type ReindexFunc func(ctx context.Context) (Result, error)

// Store is a sqlite-backed ledger of rebuild jobs. Unlike the teacher's
// BackgroundIndexer, which tracks a single in-memory job guarded by a lock
// file, this ledger persists every job row so a task_id survives a process
// restart and multiple rebuilds keep their history.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite-backed job ledger at path.
// An empty path opens an in-memory ledger, useful for tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, searcherrors.New(searcherrors.ErrCodeInternal, "failed to create job ledger directory", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, searcherrors.New(searcherrors.ErrCodeInternal, "failed to open job ledger", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, searcherrors.New(searcherrors.ErrCodeInternal, "failed to create job ledger schema", err)
	}

	return &Store{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rebuild_jobs (
	task_id       TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	total_indexed INTEGER NOT NULL DEFAULT 0,
	active_index  TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);`

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) insert(ctx context.Context, j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rebuild_jobs (task_id, status, total_indexed, active_index, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.TaskID, j.Status, j.TotalIndexed, j.ActiveIndex, j.ErrorMessage,
		j.CreatedAt.Format(time.RFC3339Nano), j.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *Store) update(ctx context.Context, j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE rebuild_jobs SET status = ?, total_indexed = ?, active_index = ?, error_message = ?, updated_at = ?
		 WHERE task_id = ?`,
		j.Status, j.TotalIndexed, j.ActiveIndex, j.ErrorMessage,
		j.UpdatedAt.Format(time.RFC3339Nano), j.TaskID)
	return err
}

// Get returns the job with the given task id.
func (s *Store) Get(ctx context.Context, taskID string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT task_id, status, total_indexed, active_index, error_message, created_at, updated_at
		 FROM rebuild_jobs WHERE task_id = ?`, taskID)

	var j Job
	var created, updated string
	if err := row.Scan(&j.TaskID, &j.Status, &j.TotalIndexed, &j.ActiveIndex, &j.ErrorMessage, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return Job{}, searcherrors.New(searcherrors.ErrCodeInvalidInput, fmt.Sprintf("no rebuild job with task_id %q", taskID), err)
		}
		return Job{}, searcherrors.New(searcherrors.ErrCodeInternal, "failed to read rebuild job", err)
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return j, nil
}

// Launcher starts full-reindex jobs in the background and records their
// progress in a Store, grounded on the teacher's BackgroundIndexer lifecycle
// (Start spawns a goroutine, run does the work, completion is observable
// afterwards) but retargeted from an in-memory/lock-file design to the
// persistent ledger above.
type Launcher struct {
	store   *Store
	reindex ReindexFunc
	logger  *slog.Logger
}

// NewLauncher builds a Launcher that runs fn in the background and records
// state transitions in store.
func NewLauncher(store *Store, fn ReindexFunc, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{store: store, reindex: fn, logger: logger}
}

// Start creates a new job row, then launches the reindex in a background
// goroutine. It returns the task id immediately; the caller polls Store.Get
// for completion. The goroutine outlives the request context on purpose —
// ctx is only used to record the job row; the run itself uses
// context.Background(), since a canceled HTTP request must not abort an
// in-flight rebuild.
func (l *Launcher) Start(ctx context.Context) (string, error) {
	taskID := uuid.NewString()
	now := time.Now()
	job := Job{
		TaskID:    taskID,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.insert(ctx, job); err != nil {
		return "", searcherrors.New(searcherrors.ErrCodeInternal, "failed to record rebuild job", err)
	}

	go l.run(taskID)

	return taskID, nil
}

func (l *Launcher) run(taskID string) {
	runCtx := context.Background()

	result, err := l.reindex(runCtx)

	now := time.Now()
	job := Job{TaskID: taskID, UpdatedAt: now}
	if err != nil {
		l.logger.Error("background rebuild failed", "task_id", taskID, "error", err.Error())
		job.Status = StatusFailed
		job.ErrorMessage = err.Error()
	} else {
		job.Status = StatusSucceeded
		job.TotalIndexed = result.TotalIndexed
		job.ActiveIndex = result.ActiveIndex
	}

	if updateErr := l.store.update(runCtx, job); updateErr != nil {
		l.logger.Error("failed to record rebuild job completion", "task_id", taskID, "error", updateErr.Error())
	}
}
