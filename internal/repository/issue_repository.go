package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/broadcast-ops/fault-tracker/internal/domain"
)

// IssueFilter is a conjunction over status, domain key and severity.
type IssueFilter struct {
	Status   *domain.IssueStatus
	Key      *string
	Severity *domain.Severity
}

// IssueRepository encapsulates issue persistence for one fault domain.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id int64) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	Delete(ctx context.Context, id int64) error
}

// issueRepository is a single implementation bound to a per-domain table.
// All three issue tables share the same column shape; single- vs set-valued
// assignment is a service-level rule, not a storage one.
type issueRepository struct {
	pool *pgxpool.Pool
	spec domain.Spec
}

// NewIssueRepository instantiates a repository for the given domain spec.
func NewIssueRepository(pool *pgxpool.Pool, spec domain.Spec) IssueRepository {
	return &issueRepository{pool: pool, spec: spec}
}

const issueColumns = `id, domain_key, issue_type, severity, description, assignees,
        reported_by, reported_by_email, status, completed_by, completed_at,
        reported_at, created_at, updated_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (domain_key, issue_type, severity, description, assignees,
            reported_by, reported_by_email, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, reported_at, created_at, updated_at`, r.spec.Table)

	issue.Domain = r.spec.Code
	return r.pool.QueryRow(ctx, query,
		issue.Key,
		issue.IssueType,
		issue.Severity,
		issue.Description,
		issue.Assignees,
		issue.ReportedBy,
		issue.ReportedByEmail,
		issue.Status,
	).Scan(&issue.ID, &issue.ReportedAt, &issue.CreatedAt, &issue.UpdatedAt)
}

func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	query := fmt.Sprintf(`
        UPDATE %s SET domain_key=$1, issue_type=$2, severity=$3, description=$4,
            assignees=$5, status=$6, completed_by=$7, completed_at=$8, updated_at=NOW()
        WHERE id=$9`, r.spec.Table)

	cmd, err := r.pool.Exec(ctx, query,
		issue.Key,
		issue.IssueType,
		issue.Severity,
		issue.Description,
		issue.Assignees,
		issue.Status,
		issue.CompletedBy,
		issue.CompletedAt,
		issue.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, issueColumns, r.spec.Table)

	var issue domain.Issue
	if err := r.scanIssue(r.pool.QueryRow(ctx, query, id), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Key != nil {
		args = append(args, *filter.Key)
		clauses = append(clauses, fmt.Sprintf("domain_key=$%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		clauses = append(clauses, fmt.Sprintf("severity=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY reported_at DESC, id DESC`,
		issueColumns, r.spec.Table, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := r.scanIssue(rows, &issue); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

func (r *issueRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, r.spec.Table)
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) scanIssue(row pgx.Row, issue *domain.Issue) error {
	if err := row.Scan(
		&issue.ID,
		&issue.Key,
		&issue.IssueType,
		&issue.Severity,
		&issue.Description,
		&issue.Assignees,
		&issue.ReportedBy,
		&issue.ReportedByEmail,
		&issue.Status,
		&issue.CompletedBy,
		&issue.CompletedAt,
		&issue.ReportedAt,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return err
	}
	issue.Domain = r.spec.Code
	return nil
}
