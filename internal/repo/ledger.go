package repo

import (
	"context"
	"database/sql"

	"homeworks/internal/domain"
)

const taskColumns = `id,project_id,title,COALESCE(description,''),status,due_date,created_by,created_at,updated_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var due sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &due, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, notFound(err)
	}
	t.DueDate = stringPtr(due)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, q Querier, t domain.Task) error {
	_, err := q.ExecContext(ctx, `INSERT INTO tasks(id,project_id,title,description,status,due_date,created_by,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Title, nullable(t.Description), t.Status, nullableStringPtr(t.DueDate), t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return insertErr(err)
}

func (r Repo) GetTask(ctx context.Context, q Querier, id string) (domain.Task, error) {
	return scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) UpdateTask(ctx context.Context, q Querier, t domain.Task) error {
	return expectFound(q.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, due_date=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, nullableStringPtr(t.DueDate), t.UpdatedAt, t.ID))
}

func (r Repo) DeleteTask(ctx context.Context, q Querier, id string) error {
	return expectFound(q.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id))
}

func (r Repo) ListTasks(ctx context.Context, q Querier, projectID string, status domain.TaskStatus) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id=?`
	args := []any{projectID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	rows, err := q.QueryContext(ctx, query+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

const milestoneColumns = `id,project_id,title,due_date,amount,status,payment_status,created_at,updated_at`

func scanMilestone(row rowScanner) (domain.Milestone, error) {
	var m domain.Milestone
	var due sql.NullString
	err := row.Scan(&m.ID, &m.ProjectID, &m.Title, &due, &m.Amount, &m.Status, &m.PaymentStatus, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, notFound(err)
	}
	m.DueDate = stringPtr(due)
	return m, nil
}

func (r Repo) InsertMilestone(ctx context.Context, q Querier, m domain.Milestone) error {
	_, err := q.ExecContext(ctx, `INSERT INTO milestones(id,project_id,title,due_date,amount,status,payment_status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID, m.ProjectID, m.Title, nullableStringPtr(m.DueDate), m.Amount, m.Status, m.PaymentStatus, m.CreatedAt, m.UpdatedAt)
	return insertErr(err)
}

func (r Repo) GetMilestone(ctx context.Context, q Querier, id string) (domain.Milestone, error) {
	return scanMilestone(q.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id=?`, id))
}

func (r Repo) UpdateMilestone(ctx context.Context, q Querier, m domain.Milestone) error {
	return expectFound(q.ExecContext(ctx, `UPDATE milestones SET title=?, due_date=?, amount=?, status=?, updated_at=? WHERE id=?`,
		m.Title, nullableStringPtr(m.DueDate), m.Amount, m.Status, m.UpdatedAt, m.ID))
}

// SetMilestonePayment is a compare-and-swap on the payment status.
func (r Repo) SetMilestonePayment(ctx context.Context, q Querier, id string, from, to domain.PaymentStatus, now string) error {
	return expectOne(q.ExecContext(ctx, `UPDATE milestones SET payment_status=?, updated_at=? WHERE id=? AND payment_status=?`, to, now, id, from))
}

func (r Repo) DeleteMilestone(ctx context.Context, q Querier, id string) error {
	return expectFound(q.ExecContext(ctx, `DELETE FROM milestones WHERE id=?`, id))
}

func (r Repo) ListMilestones(ctx context.Context, q Querier, projectID string) ([]domain.Milestone, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE project_id=? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

const costColumns = `id,project_id,category,COALESCE(description,''),estimated_amount,actual_amount,created_at,updated_at`

func scanCostEstimate(row rowScanner) (domain.CostEstimate, error) {
	var c domain.CostEstimate
	var actual sql.NullInt64
	err := row.Scan(&c.ID, &c.ProjectID, &c.Category, &c.Description, &c.EstimatedAmount, &actual, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, notFound(err)
	}
	if actual.Valid {
		v := actual.Int64
		c.ActualAmount = &v
	}
	return c, nil
}

func (r Repo) InsertCostEstimate(ctx context.Context, q Querier, c domain.CostEstimate) error {
	_, err := q.ExecContext(ctx, `INSERT INTO cost_estimates(id,project_id,category,description,estimated_amount,actual_amount,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.ProjectID, c.Category, nullable(c.Description), c.EstimatedAmount, nullableInt64Ptr(c.ActualAmount), c.CreatedAt, c.UpdatedAt)
	return insertErr(err)
}

func (r Repo) GetCostEstimate(ctx context.Context, q Querier, id string) (domain.CostEstimate, error) {
	return scanCostEstimate(q.QueryRowContext(ctx, `SELECT `+costColumns+` FROM cost_estimates WHERE id=?`, id))
}

func (r Repo) UpdateCostEstimate(ctx context.Context, q Querier, c domain.CostEstimate) error {
	return expectFound(q.ExecContext(ctx, `UPDATE cost_estimates SET category=?, description=?, estimated_amount=?, actual_amount=?, updated_at=? WHERE id=?`,
		c.Category, nullable(c.Description), c.EstimatedAmount, nullableInt64Ptr(c.ActualAmount), c.UpdatedAt, c.ID))
}

func (r Repo) DeleteCostEstimate(ctx context.Context, q Querier, id string) error {
	return expectFound(q.ExecContext(ctx, `DELETE FROM cost_estimates WHERE id=?`, id))
}

func (r Repo) ListCostEstimates(ctx context.Context, q Querier, projectID string) ([]domain.CostEstimate, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+costColumns+` FROM cost_estimates WHERE project_id=? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CostEstimate
	for rows.Next() {
		c, err := scanCostEstimate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
