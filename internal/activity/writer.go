package activity

import (
	"context"
	"fmt"
	"time"

	"homeworks/internal/domain"
	"homeworks/internal/repo"
)

// Action tags recorded in the activity log.
const (
	ActionProjectCreated       = "project_created"
	ActionProjectUpdated       = "project_updated"
	ActionStatusChanged        = "status_changed"
	ActionDesignerAssigned     = "designer_assigned"
	ActionProjectCompleted     = "project_completed"
	ActionProjectCancelled     = "project_cancelled"
	ActionRequestSent          = "request_sent"
	ActionRequestDeclined      = "request_declined"
	ActionProposalSubmitted    = "proposal_submitted"
	ActionProposalAccepted     = "proposal_accepted"
	ActionProposalRejected     = "proposal_rejected"
	ActionProposalAutoRejected = "proposal_auto_rejected"
	ActionRequestAutoRejected  = "request_auto_rejected"
	ActionTaskCreated          = "task_created"
	ActionTaskUpdated          = "task_updated"
	ActionTaskDeleted          = "task_deleted"
	ActionMilestoneCreated     = "milestone_created"
	ActionMilestoneUpdated     = "milestone_updated"
	ActionMilestonePayment     = "milestone_payment_updated"
	ActionMilestoneDeleted     = "milestone_deleted"
	ActionCostCreated          = "cost_estimate_created"
	ActionCostUpdated          = "cost_estimate_updated"
	ActionCostDeleted          = "cost_estimate_deleted"
)

type Detail map[string]any

// Writer appends entries inside the caller's transaction so the log
// commits or rolls back together with the mutation it describes.
type Writer struct {
	Repo repo.Repo
	Now  func() time.Time
}

// Append records one entry. An empty userID marks a system entry.
func (w Writer) Append(ctx context.Context, q repo.Querier, projectID, userID, action string, detail Detail) (int64, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if detail == nil {
		detail = Detail{}
	}
	entry := domain.ActivityEntry{
		ProjectID: projectID,
		Action:    action,
		Detail:    detail,
		CreatedAt: w.Now().UTC().Format(time.RFC3339),
	}
	if userID != "" {
		entry.UserID = &userID
	}
	id, err := w.Repo.InsertActivity(ctx, q, entry)
	if err != nil {
		return 0, fmt.Errorf("append activity %s: %w", action, err)
	}
	return id, nil
}

// StatusChanged records an entity status transition.
func (w Writer) StatusChanged(ctx context.Context, q repo.Querier, projectID, userID, entity, entityID string, from, to any, extra Detail) error {
	detail := Detail{"entity": entity, "id": entityID, "from": from, "to": to}
	for k, v := range extra {
		detail[k] = v
	}
	_, err := w.Append(ctx, q, projectID, userID, ActionStatusChanged, detail)
	return err
}

// List returns a page of entries, newest first.
func (w Writer) List(ctx context.Context, q repo.Querier, query repo.ActivityQuery) ([]domain.ActivityEntry, error) {
	return w.Repo.ListActivity(ctx, q, query)
}
