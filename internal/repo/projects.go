package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"homeworks/internal/domain"
)

const projectColumns = `id,homeowner_id,designer_id,property_id,title,scope_type,COALESCE(scope_details,''),budget_min,budget_max,COALESCE(timeline,''),status,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var p domain.Project
	var designerID, propertyID sql.NullString
	err := row.Scan(&p.ID, &p.HomeownerID, &designerID, &propertyID, &p.Title, &p.ScopeType, &p.ScopeDetails,
		&p.BudgetMin, &p.BudgetMax, &p.Timeline, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, notFound(err)
	}
	p.DesignerID = stringPtr(designerID)
	p.PropertyID = stringPtr(propertyID)
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, q Querier, p domain.Project) error {
	_, err := q.ExecContext(ctx, `INSERT INTO projects(id,homeowner_id,designer_id,property_id,title,scope_type,scope_details,budget_min,budget_max,timeline,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.HomeownerID, nullableStringPtr(p.DesignerID), nullableStringPtr(p.PropertyID), p.Title, p.ScopeType,
		nullable(p.ScopeDetails), p.BudgetMin, p.BudgetMax, nullable(p.Timeline), p.Status, p.CreatedAt, p.UpdatedAt)
	return insertErr(err)
}

func (r Repo) GetProject(ctx context.Context, q Querier, id string) (domain.Project, error) {
	return scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

// ProjectFilters narrows ListProjects; empty fields are ignored.
type ProjectFilters struct {
	HomeownerID string
	DesignerID  string
	Status      domain.ProjectStatus
}

func (r Repo) ListProjects(ctx context.Context, q Querier, f ProjectFilters) ([]domain.Project, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.HomeownerID != "" {
		clauses = append(clauses, "homeowner_id=?")
		args = append(args, f.HomeownerID)
	}
	if f.DesignerID != "" {
		clauses = append(clauses, "designer_id=?")
		args = append(args, f.DesignerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE %s ORDER BY created_at DESC, id DESC`, projectColumns, strings.Join(clauses, " AND "))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpdateProjectDetails rewrites the editable fields, guarded on the expected status.
func (r Repo) UpdateProjectDetails(ctx context.Context, q Querier, p domain.Project, expected domain.ProjectStatus) error {
	return expectOne(q.ExecContext(ctx, `UPDATE projects SET property_id=?, title=?, scope_type=?, scope_details=?, budget_min=?, budget_max=?, timeline=?, updated_at=?
WHERE id=? AND status=?`,
		nullableStringPtr(p.PropertyID), p.Title, p.ScopeType, nullable(p.ScopeDetails), p.BudgetMin, p.BudgetMax,
		nullable(p.Timeline), p.UpdatedAt, p.ID, expected))
}

// TransitionProject moves a project from one status to another. A non-nil
// designerID is stored alongside the status change. ErrConflict means the
// project was no longer in the expected status.
func (r Repo) TransitionProject(ctx context.Context, q Querier, id string, from, to domain.ProjectStatus, designerID *string, now string) error {
	if designerID != nil {
		return expectOne(q.ExecContext(ctx, `UPDATE projects SET status=?, designer_id=?, updated_at=? WHERE id=? AND status=?`,
			to, *designerID, now, id, from))
	}
	return expectOne(q.ExecContext(ctx, `UPDATE projects SET status=?, updated_at=? WHERE id=? AND status=?`,
		to, now, id, from))
}
