package repo

import (
	"context"
	"fmt"
	"strings"

	"homeworks/internal/domain"
)

const requestColumns = `id,project_id,designer_id,status,COALESCE(message,''),created_at,updated_at`

func scanRequest(row rowScanner) (domain.Request, error) {
	var rq domain.Request
	err := row.Scan(&rq.ID, &rq.ProjectID, &rq.DesignerID, &rq.Status, &rq.Message, &rq.CreatedAt, &rq.UpdatedAt)
	return rq, notFound(err)
}

// InsertRequest stores a new request. A second request for the same
// (project, designer) pair fails with ErrConflict.
func (r Repo) InsertRequest(ctx context.Context, q Querier, rq domain.Request) error {
	_, err := q.ExecContext(ctx, `INSERT INTO requests(id,project_id,designer_id,status,message,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		rq.ID, rq.ProjectID, rq.DesignerID, rq.Status, nullable(rq.Message), rq.CreatedAt, rq.UpdatedAt)
	return insertErr(err)
}

func (r Repo) GetRequest(ctx context.Context, q Querier, id string) (domain.Request, error) {
	return scanRequest(q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=?`, id))
}

func (r Repo) GetRequestForPair(ctx context.Context, q Querier, projectID, designerID string) (domain.Request, error) {
	return scanRequest(q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE project_id=? AND designer_id=?`, projectID, designerID))
}

// RequestFilters narrows ListRequests; empty fields are ignored.
type RequestFilters struct {
	ProjectID  string
	DesignerID string
	Statuses   []domain.RequestStatus
}

func (r Repo) ListRequests(ctx context.Context, q Querier, f RequestFilters) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.DesignerID != "" {
		clauses = append(clauses, "designer_id=?")
		args = append(args, f.DesignerID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, s)
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ",")+")")
	}
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY created_at ASC, id ASC`, requestColumns, strings.Join(clauses, " AND "))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Request
	for rows.Next() {
		rq, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rq)
	}
	return res, rows.Err()
}

// TransitionRequest is a compare-and-swap on the request status.
func (r Repo) TransitionRequest(ctx context.Context, q Querier, id string, from, to domain.RequestStatus, now string) error {
	return expectOne(q.ExecContext(ctx, `UPDATE requests SET status=?, updated_at=? WHERE id=? AND status=?`, to, now, id, from))
}
