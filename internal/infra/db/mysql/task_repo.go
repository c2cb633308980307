package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

// TaskRepository archives terminal task records for history queries. The
// volatile task store stays authoritative for polling; these rows survive
// its retention window.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Save insert/update a terminal task row
func (r *TaskRepository) Save(ctx context.Context, t *domain.AnalysisTask) error {
	const q = `
INSERT INTO review_tasks
(id, repo_url, pr_number, status, attempts,
 total_files, total_issues, critical_issues, mode,
 error_kind, error_message, error_component, report_url,
 created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), attempts=VALUES(attempts),
 total_files=VALUES(total_files), total_issues=VALUES(total_issues),
 critical_issues=VALUES(critical_issues), mode=VALUES(mode),
 error_kind=VALUES(error_kind), error_message=VALUES(error_message),
 error_component=VALUES(error_component), report_url=VALUES(report_url),
 updated_at=VALUES(updated_at);
`
	row := flatten(t)
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.RepoURL, t.PRNumber, t.Status, t.Attempts,
		row.totalFiles, row.totalIssues, row.criticalIssues, row.mode,
		row.errKind, row.errMessage, row.errComponent, t.ReportURL,
		created, t.UpdatedAt,
	)
	return err
}

// Latest terminal tasks, newest first
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
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnalysisTask
	for rows.Next() {
		t, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type flatRow struct {
	totalFiles     int
	totalIssues    int
	criticalIssues int
	mode           string
	errKind        string
	errMessage     string
	errComponent   string
}

func flatten(t *domain.AnalysisTask) flatRow {
	var row flatRow
	if t.Result != nil {
		row.totalFiles = t.Result.Summary.FilesAnalyzed
		row.totalIssues = t.Result.Summary.TotalIssues
		row.criticalIssues = t.Result.Summary.CriticalIssues
		row.mode = string(t.Result.Mode)
	}
	if t.Error != nil {
		row.errKind = string(t.Error.Kind)
		row.errMessage = t.Error.Message
		row.errComponent = t.Error.Component
	}
	return row
}

func scanRow(rows *sql.Rows) (*domain.AnalysisTask, error) {
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
	return &t, nil
}
