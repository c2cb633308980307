package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	domain "github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

// TaskRepository is the PostgreSQL variant of the terminal task archive.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const (
	maxOpenConns = 25
	maxIdleConns = 10
	connLifetime = 30 * time.Minute
	pingTimeout  = 5 * time.Second
)

// Connect opens a pooled connection and verifies it with a bounded ping
// before handing it out.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connLifetime)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		return nil, err
	}
	return db, nil
}

func (r *TaskRepository) Save(ctx context.Context, t *domain.AnalysisTask) error {
	const q = `
INSERT INTO review_tasks
(id, repo_url, pr_number, status, attempts,
 total_files, total_issues, critical_issues, mode,
 error_kind, error_message, error_component, report_url,
 created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
 status=EXCLUDED.status, attempts=EXCLUDED.attempts,
 total_files=EXCLUDED.total_files, total_issues=EXCLUDED.total_issues,
 critical_issues=EXCLUDED.critical_issues, mode=EXCLUDED.mode,
 error_kind=EXCLUDED.error_kind, error_message=EXCLUDED.error_message,
 error_component=EXCLUDED.error_component, report_url=EXCLUDED.report_url,
 updated_at=EXCLUDED.updated_at;
`
	var totalFiles, totalIssues, criticalIssues int
	var mode string
	if t.Result != nil {
		totalFiles = t.Result.Summary.FilesAnalyzed
		totalIssues = t.Result.Summary.TotalIssues
		criticalIssues = t.Result.Summary.CriticalIssues
		mode = string(t.Result.Mode)
	}
	var errKind, errMessage, errComponent string
	if t.Error != nil {
		errKind = string(t.Error.Kind)
		errMessage = t.Error.Message
		errComponent = t.Error.Component
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.RepoURL, t.PRNumber, t.Status, t.Attempts,
		totalFiles, totalIssues, criticalIssues, mode,
		errKind, errMessage, errComponent, t.ReportURL,
		created, t.UpdatedAt,
	)
	return err
}

func (r *TaskRepository) Latest(ctx context.Context, limit int) ([]*domain.AnalysisTask, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, repo_url, pr_number, status, attempts,
       error_kind, error_message, error_component, report_url,
       created_at, updated_at
FROM review_tasks
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnalysisTask
	for rows.Next() {
		var t domain.AnalysisTask
		var errKind, errMessage, errComponent string
		if err := rows.Scan(
			&t.ID, &t.RepoURL, &t.PRNumber, &t.Status, &t.Attempts,
			&errKind, &errMessage, &errComponent, &t.ReportURL,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if errKind != "" {
			t.Error = &domain.ErrorDescriptor{
				Kind:      domain.Kind(errKind),
				Message:   errMessage,
				Component: errComponent,
			}
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
