package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"homeworks/internal/domain"
)

// ActivityQuery selects a page of a project's activity, newest first.
// BeforeID is an exclusive cursor; zero starts at the newest entry.
type ActivityQuery struct {
	ProjectID string
	Action    string
	BeforeID  int64
	Limit     int
}

func (r Repo) InsertActivity(ctx context.Context, q Querier, e domain.ActivityEntry) (int64, error) {
	detail := e.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return 0, fmt.Errorf("marshal activity detail: %w", err)
	}
	res, err := q.ExecContext(ctx, `INSERT INTO activity_log(project_id,user_id,action,detail_json,created_at) VALUES (?,?,?,?,?)`,
		e.ProjectID, nullableStringPtr(e.UserID), e.Action, string(data), e.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListActivity(ctx context.Context, q Querier, aq ActivityQuery) ([]domain.ActivityEntry, error) {
	clauses := []string{"project_id=?"}
	args := []any{aq.ProjectID}
	if aq.Action != "" {
		clauses = append(clauses, "action=?")
		args = append(args, aq.Action)
	}
	if aq.BeforeID > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, aq.BeforeID)
	}
	query := `SELECT id,project_id,user_id,action,detail_json,created_at FROM activity_log WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC`
	if aq.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, aq.Limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var userID sql.NullString
		var detail string
		if err := rows.Scan(&e.ID, &e.ProjectID, &userID, &e.Action, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = stringPtr(userID)
		if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
			return nil, fmt.Errorf("decode activity %d: %w", e.ID, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
