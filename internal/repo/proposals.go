package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"homeworks/internal/domain"
)

const proposalColumns = `id,request_id,designer_id,scope,COALESCE(approach,''),timeline_weeks,cost_estimate,cost_breakdown_json,status,created_at,updated_at`

func scanProposal(row rowScanner) (domain.Proposal, error) {
	var p domain.Proposal
	var breakdown sql.NullString
	err := row.Scan(&p.ID, &p.RequestID, &p.DesignerID, &p.Scope, &p.Approach, &p.TimelineWeeks, &p.CostEstimate,
		&breakdown, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, notFound(err)
	}
	if breakdown.Valid && breakdown.String != "" {
		if err := json.Unmarshal([]byte(breakdown.String), &p.CostBreakdown); err != nil {
			return p, fmt.Errorf("decode cost breakdown: %w", err)
		}
	}
	return p, nil
}

// InsertProposal stores a proposal. A second proposal for the same request
// fails with ErrConflict.
func (r Repo) InsertProposal(ctx context.Context, q Querier, p domain.Proposal) error {
	var breakdown any
	if len(p.CostBreakdown) > 0 {
		b, err := json.Marshal(p.CostBreakdown)
		if err != nil {
			return fmt.Errorf("encode cost breakdown: %w", err)
		}
		breakdown = string(b)
	}
	_, err := q.ExecContext(ctx, `INSERT INTO proposals(id,request_id,designer_id,scope,approach,timeline_weeks,cost_estimate,cost_breakdown_json,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.RequestID, p.DesignerID, p.Scope, nullable(p.Approach), p.TimelineWeeks, p.CostEstimate, breakdown,
		p.Status, p.CreatedAt, p.UpdatedAt)
	return insertErr(err)
}

func (r Repo) GetProposal(ctx context.Context, q Querier, id string) (domain.Proposal, error) {
	return scanProposal(q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id=?`, id))
}

func (r Repo) GetProposalForRequest(ctx context.Context, q Querier, requestID string) (domain.Proposal, error) {
	return scanProposal(q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE request_id=?`, requestID))
}

// ListProjectProposals returns every proposal submitted against a project.
func (r Repo) ListProjectProposals(ctx context.Context, q Querier, projectID string) ([]domain.Proposal, error) {
	rows, err := q.QueryContext(ctx, `SELECT p.id,p.request_id,p.designer_id,p.scope,COALESCE(p.approach,''),p.timeline_weeks,p.cost_estimate,p.cost_breakdown_json,p.status,p.created_at,p.updated_at
FROM proposals p JOIN requests r ON r.id=p.request_id
WHERE r.project_id=? ORDER BY p.created_at ASC, p.id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// TransitionProposal is a compare-and-swap on the proposal status.
func (r Repo) TransitionProposal(ctx context.Context, q Querier, id string, from, to domain.ProposalStatus, now string) error {
	return expectOne(q.ExecContext(ctx, `UPDATE proposals SET status=?, updated_at=? WHERE id=? AND status=?`, to, now, id, from))
}
