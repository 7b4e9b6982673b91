// Package queue models deferred scoring as durable units of work. Pending
// pairs live in a SQLite table and survive restarts; a worker loop drains
// them through the orchestrator.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"talentmatch/internal/store"
	"talentmatch/internal/utils"
)

// Task statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

const defaultMaxAttempts = 3

// Task is one enqueued scoring pair.
type Task struct {
	ID            int64
	CandidateID   int
	OpportunityID int
	Force         bool
	Status        string
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PairScorer is the slice of the orchestrator the worker needs.
type PairScorer interface {
	ScorePair(ctx context.Context, candidateID, opportunityID int, force bool) (*store.Score, error)
}

// Queue is a SQLite-backed task queue with a single writer connection.
type Queue struct {
	db          *sql.DB
	logger      *zap.Logger
	maxAttempts int
}

// Open creates or opens the queue database at path.
func Open(path string, logger *zap.Logger) (*Queue, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("queue: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("queue: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tasks (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		candidate_id   INTEGER NOT NULL,
		opportunity_id INTEGER NOT NULL,
		force_rescore  INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'pending',
		attempts       INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue: init schema: %w", err)
	}

	return &Queue{db: db, logger: logger, maxAttempts: defaultMaxAttempts}, nil
}

func (q *Queue) Close() error { return q.db.Close() }

// Enqueue adds a scoring task for the pair. A pending task for the same
// pair is reused instead of duplicated.
func (q *Queue) Enqueue(candidateID, opportunityID int, force bool) (int64, error) {
	var existing int64
	err := q.db.QueryRow(
		`SELECT id FROM tasks WHERE candidate_id = ? AND opportunity_id = ? AND status = ?`,
		candidateID, opportunityID, StatusPending,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("queue: check pending: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	forceFlag := 0
	if force {
		forceFlag = 1
	}
	res, err := q.db.Exec(
		`INSERT INTO tasks (candidate_id, opportunity_id, force_rescore, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		candidateID, opportunityID, forceFlag, StatusPending, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("queue: insert: %w", err)
	}

	id, _ := res.LastInsertId()
	q.logger.Debug("enqueued scoring task",
		zap.Int64("task_id", id),
		zap.Int("candidate_id", candidateID),
		zap.Int("opportunity_id", opportunityID),
	)
	return id, nil
}

// Pending returns up to limit pending tasks, oldest first.
func (q *Queue) Pending(limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(
		`SELECT id, candidate_id, opportunity_id, force_rescore, status, attempts,
		        COALESCE(last_error, ''), created_at, updated_at
		 FROM tasks WHERE status = ? ORDER BY id LIMIT ?`,
		StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: list pending: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		var forceFlag int
		var created, updated string
		if err := rows.Scan(&t.ID, &t.CandidateID, &t.OpportunityID, &forceFlag, &t.Status, &t.Attempts, &t.LastError, &created, &updated); err != nil {
			return nil, fmt.Errorf("queue: scan task: %w", err)
		}
		t.Force = forceFlag != 0
		t.CreatedAt, _ = time.Parse(time.RFC3339, created)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Counts returns the number of tasks per status.
func (q *Queue) Counts() (map[string]int, error) {
	rows, err := q.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue: counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("queue: scan counts: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (q *Queue) complete(id int64) error {
	_, err := q.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		StatusDone, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("queue: complete task %d: %w", id, err)
	}
	return nil
}

func (q *Queue) fail(t *Task, cause error) error {
	status := StatusPending
	if t.Attempts+1 >= q.maxAttempts {
		status = StatusFailed
	}
	_, err := q.db.Exec(
		`UPDATE tasks SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		status, cause.Error(), time.Now().UTC().Format(time.RFC3339), t.ID,
	)
	if err != nil {
		return fmt.Errorf("queue: fail task %d: %w", t.ID, err)
	}
	return nil
}

// Drain processes pending tasks until none remain or the context ends.
// Returns how many tasks completed successfully.
func (q *Queue) Drain(ctx context.Context, scorer PairScorer) (int, error) {
	done := 0
	for {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}

		tasks, err := q.Pending(50)
		if err != nil {
			return done, err
		}
		if len(tasks) == 0 {
			return done, nil
		}

		for _, t := range tasks {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}

			if _, err := scorer.ScorePair(ctx, t.CandidateID, t.OpportunityID, t.Force); err != nil {
				var serr *store.StorageError
				if errors.As(err, &serr) {
					return done, err
				}
				q.logger.Error("scoring task failed",
					zap.Int64("task_id", t.ID),
					zap.Int("candidate_id", t.CandidateID),
					zap.Int("opportunity_id", t.OpportunityID),
					zap.Error(err),
				)
				if err := q.fail(t, err); err != nil {
					return done, err
				}
				continue
			}

			if err := q.complete(t.ID); err != nil {
				return done, err
			}
			done++
		}
	}
}

// Run drains the queue, then keeps polling for new tasks every interval
// until the context is canceled.
func (q *Queue) Run(ctx context.Context, scorer PairScorer, interval time.Duration) error {
	for {
		n, err := q.Drain(ctx, scorer)
		if err != nil {
			return err
		}
		if n > 0 {
			q.logger.Info("drained scoring tasks", zap.Int("completed", n))
		}

		if err := utils.WaitFor(ctx, interval); err != nil {
			return err
		}
	}
}
