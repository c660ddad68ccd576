package repo

import (
	"context"
	"database/sql"

	"homeworks/internal/domain"
)

func (r Repo) InsertHomeowner(ctx context.Context, q Querier, h domain.Homeowner) error {
	_, err := q.ExecContext(ctx, `INSERT INTO homeowners(id,user_id,name,created_at) VALUES (?,?,?,?)`,
		h.ID, h.UserID, h.Name, h.CreatedAt)
	return insertErr(err)
}

func (r Repo) GetHomeowner(ctx context.Context, q Querier, id string) (domain.Homeowner, error) {
	return scanHomeowner(q.QueryRowContext(ctx, `SELECT id,user_id,name,created_at FROM homeowners WHERE id=?`, id))
}

func (r Repo) GetHomeownerByUser(ctx context.Context, q Querier, userID string) (domain.Homeowner, error) {
	return scanHomeowner(q.QueryRowContext(ctx, `SELECT id,user_id,name,created_at FROM homeowners WHERE user_id=?`, userID))
}

func scanHomeowner(row *sql.Row) (domain.Homeowner, error) {
	var h domain.Homeowner
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.CreatedAt)
	return h, notFound(err)
}

func (r Repo) InsertDesigner(ctx context.Context, q Querier, d domain.Designer) error {
	_, err := q.ExecContext(ctx, `INSERT INTO designers(id,user_id,name,bio,verified,created_at) VALUES (?,?,?,?,?,?)`,
		d.ID, d.UserID, d.Name, nullable(d.Bio), d.Verified, d.CreatedAt)
	return insertErr(err)
}

const designerColumns = `id,user_id,name,COALESCE(bio,''),verified,created_at`

func (r Repo) GetDesigner(ctx context.Context, q Querier, id string) (domain.Designer, error) {
	return scanDesigner(q.QueryRowContext(ctx, `SELECT `+designerColumns+` FROM designers WHERE id=?`, id))
}

func (r Repo) GetDesignerByUser(ctx context.Context, q Querier, userID string) (domain.Designer, error) {
	return scanDesigner(q.QueryRowContext(ctx, `SELECT `+designerColumns+` FROM designers WHERE user_id=?`, userID))
}

func scanDesigner(row *sql.Row) (domain.Designer, error) {
	var d domain.Designer
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Bio, &d.Verified, &d.CreatedAt)
	return d, notFound(err)
}

func (r Repo) ListDesigners(ctx context.Context, q Querier, verifiedOnly bool) ([]domain.Designer, error) {
	query := `SELECT ` + designerColumns + ` FROM designers`
	if verifiedOnly {
		query += ` WHERE verified=1`
	}
	query += ` ORDER BY name, id`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Designer
	for rows.Next() {
		var d domain.Designer
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Bio, &d.Verified, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) SetDesignerVerified(ctx context.Context, q Querier, id string, verified bool) error {
	return expectFound(q.ExecContext(ctx, `UPDATE designers SET verified=? WHERE id=?`, verified, id))
}

func (r Repo) InsertContractor(ctx context.Context, q Querier, c domain.Contractor) error {
	_, err := q.ExecContext(ctx, `INSERT INTO contractors(id,user_id,name,trade,verified,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.UserID, c.Name, nullable(c.Trade), c.Verified, c.CreatedAt)
	return insertErr(err)
}

func (r Repo) GetContractor(ctx context.Context, q Querier, id string) (domain.Contractor, error) {
	var c domain.Contractor
	err := q.QueryRowContext(ctx, `SELECT id,user_id,name,COALESCE(trade,''),verified,created_at FROM contractors WHERE id=?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Trade, &c.Verified, &c.CreatedAt)
	return c, notFound(err)
}

func (r Repo) SetContractorVerified(ctx context.Context, q Querier, id string, verified bool) error {
	return expectFound(q.ExecContext(ctx, `UPDATE contractors SET verified=? WHERE id=?`, verified, id))
}

func (r Repo) InsertProperty(ctx context.Context, q Querier, p domain.Property) error {
	_, err := q.ExecContext(ctx, `INSERT INTO properties(id,homeowner_id,address,created_at) VALUES (?,?,?,?)`,
		p.ID, p.HomeownerID, p.Address, p.CreatedAt)
	return insertErr(err)
}

func (r Repo) GetProperty(ctx context.Context, q Querier, id string) (domain.Property, error) {
	var p domain.Property
	err := q.QueryRowContext(ctx, `SELECT id,homeowner_id,address,created_at FROM properties WHERE id=?`, id).
		Scan(&p.ID, &p.HomeownerID, &p.Address, &p.CreatedAt)
	return p, notFound(err)
}
