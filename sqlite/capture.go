package sqlite

import (
	"context"
	"time"

	"github.com/Webictbyleo/capsule"
	"github.com/google/uuid"
)

// CaptureRun is one recorded end-to-end capture of a document.
type CaptureRun struct {
	ID          string
	BaseURL     string
	StartedAt   time.Time
	CompletedAt time.Time
	Attempts    int
	Downloaded  int
	Cached      int
	Failed      int
	Complete    bool
}

// CaptureLog records capture runs for later inspection.
type CaptureLog struct {
	db *DB
}

// NewCaptureLog creates a CaptureLog on an open database.
func NewCaptureLog(db *DB) *CaptureLog {
	return &CaptureLog{db: db}
}

// Begin records the start of a capture run and assigns its ID.
func (l *CaptureLog) Begin(ctx context.Context, run *CaptureRun) error {
	if run.BaseURL == "" {
		return capsule.Errorf(capsule.EINVALID, "capture base URL required")
	}
	run.ID = uuid.New().String()
	run.StartedAt = time.Now().UTC()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO captures (id, base_url, started_at) VALUES (?, ?, ?)`,
		run.ID, run.BaseURL, run.StartedAt.Format(time.RFC3339),
	)
	if err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "record capture start: %v", err)
	}
	return nil
}

// Finish records the outcome of a capture run.
func (l *CaptureLog) Finish(ctx context.Context, run *CaptureRun) error {
	if run.ID == "" {
		return capsule.Errorf(capsule.EINVALID, "capture ID required")
	}
	run.CompletedAt = time.Now().UTC()

	complete := 0
	if run.Complete {
		complete = 1
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE captures
		 SET completed_at = ?, attempts = ?, downloaded = ?, cached = ?, failed = ?, complete = ?
		 WHERE id = ?`,
		run.CompletedAt.Format(time.RFC3339),
		run.Attempts, run.Downloaded, run.Cached, run.Failed, complete,
		run.ID,
	)
	if err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "record capture finish: %v", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return capsule.Errorf(capsule.ENOTFOUND, "capture run not found")
	}
	return nil
}

// List returns up to limit recorded capture runs, most recent first.
func (l *CaptureLog) List(ctx context.Context, limit int) ([]*CaptureRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, base_url, started_at, attempts, downloaded, cached, failed, complete
		 FROM captures ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, capsule.Errorf(capsule.EINTERNAL, "list capture runs: %v", err)
	}
	defer rows.Close()

	var runs []*CaptureRun
	for rows.Next() {
		var (
			run       CaptureRun
			startedAt string
			complete  int
		)
		if err := rows.Scan(&run.ID, &run.BaseURL, &startedAt,
			&run.Attempts, &run.Downloaded, &run.Cached, &run.Failed, &complete); err != nil {
			return nil, capsule.Errorf(capsule.EINTERNAL, "scan capture run: %v", err)
		}
		run.Complete = complete != 0
		if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, capsule.Errorf(capsule.EINTERNAL, "parse started_at: %v", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, capsule.Errorf(capsule.EINTERNAL, "list capture runs: %v", err)
	}
	return runs, nil
}

// Find returns a capture run by ID.
// Returns ENOTFOUND if the run does not exist.
func (l *CaptureLog) Find(ctx context.Context, id string) (*CaptureRun, error) {
	var (
		run                    CaptureRun
		startedAt, completedAt string
		complete               int
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, base_url, started_at, completed_at, attempts, downloaded, cached, failed, complete
		 FROM captures WHERE id = ?`, id,
	).Scan(&run.ID, &run.BaseURL, &startedAt, &completedAt,
		&run.Attempts, &run.Downloaded, &run.Cached, &run.Failed, &complete)
	if err != nil {
		return nil, capsule.Errorf(capsule.ENOTFOUND, "capture run not found")
	}

	run.Complete = complete != 0
	if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, capsule.Errorf(capsule.EINTERNAL, "parse started_at: %v", err)
	}
	if completedAt != "" {
		if run.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
			return nil, capsule.Errorf(capsule.EINTERNAL, "parse completed_at: %v", err)
		}
	}
	return &run, nil
}
