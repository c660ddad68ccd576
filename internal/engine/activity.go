package engine

import (
	"context"

	"homeworks/internal/domain"
	"homeworks/internal/repo"
)

// ActivityPage requests a slice of a project's timeline. Before is the id
// cursor returned as Next by the previous page.
type ActivityPage struct {
	Limit  int
	Before int64
	Action string
}

type ActivityResult struct {
	Entries []domain.ActivityEntry `json:"entries"`
	Next    int64                  `json:"next,omitempty"`
}

// GetProjectActivity returns entries newest first, to the owner or assigned designer.
func (e Engine) GetProjectActivity(ctx context.Context, userID, projectID string, page ActivityPage) (ActivityResult, error) {
	limit := page.Limit
	def, maxLimit := 50, 500
	if e.Config != nil {
		if e.Config.Activity.DefaultLimit > 0 {
			def = e.Config.Activity.DefaultLimit
		}
		if e.Config.Activity.MaxLimit > 0 {
			maxLimit = e.Config.Activity.MaxLimit
		}
	}
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page.Before < 0 {
		return ActivityResult{}, domain.Validation("cursor must not be negative")
	}
	var out ActivityResult
	err := e.read(ctx, "get_project_activity", func(q repo.Querier) error {
		res, err := e.Access.Resolve(ctx, q, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireMember(); err != nil {
			return err
		}
		// One extra row tells whether another page exists.
		entries, err := e.activityWriter().List(ctx, q, repo.ActivityQuery{
			ProjectID: projectID,
			Action:    page.Action,
			BeforeID:  page.Before,
			Limit:     limit + 1,
		})
		if err != nil {
			return err
		}
		if len(entries) > limit {
			entries = entries[:limit]
			out.Next = entries[limit-1].ID
		}
		if entries == nil {
			entries = []domain.ActivityEntry{}
		}
		out.Entries = entries
		return nil
	})
	return out, err
}
