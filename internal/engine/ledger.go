package engine

import (
	"context"
	"strings"
	"time"

	"homeworks/internal/activity"
	"homeworks/internal/domain"
	"homeworks/internal/engine/access"
	"homeworks/internal/repo"
)

type TaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	DueDate     string
}

type TaskPatch struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	DueDate     *string
}

type MilestoneInput struct {
	Title   string
	DueDate string
	Amount  int64
}

type MilestonePatch struct {
	Title   *string
	DueDate *string
	Amount  *int64
	Status  *domain.MilestoneStatus
}

type CostEstimateInput struct {
	Category        string
	Description     string
	EstimatedAmount int64
	ActualAmount    *int64
}

type CostEstimatePatch struct {
	Category        *string
	Description     *string
	EstimatedAmount *int64
	ActualAmount    *int64
	ClearActual     bool
}

// dueDate parses an optional YYYY-MM-DD date; "" clears it.
func dueDate(v string) (*string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if _, err := time.Parse(time.DateOnly, v); err != nil {
		return nil, domain.Validation("due_date must be YYYY-MM-DD")
	}
	return &v, nil
}

// ledgerAccess resolves the caller for a ledger mutation: the project must be
// in progress and the caller its owner or assigned designer.
func (e Engine) ledgerAccess(ctx context.Context, q repo.Querier, projectID, userID string) (access.Resolution, error) {
	res, err := e.Access.Resolve(ctx, q, projectID, userID)
	if err != nil {
		return res, err
	}
	if err := res.RequireMember(); err != nil {
		return res, err
	}
	if res.Project.Status != domain.ProjectInProgress {
		return res, domain.InvalidState("project %s is %s; ledger changes need an in_progress project", projectID, res.Project.Status)
	}
	return res, nil
}

func (e Engine) ledgerRead(ctx context.Context, q repo.Querier, projectID, userID string) error {
	res, err := e.Access.Resolve(ctx, q, projectID, userID)
	if err != nil {
		return err
	}
	return res.RequireMember()
}

func (e Engine) CreateTask(ctx context.Context, userID, projectID string, in TaskInput) (domain.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Task{}, domain.Validation("title is required")
	}
	if in.Status == "" {
		in.Status = domain.TaskTodo
	}
	if !in.Status.Valid() {
		return domain.Task{}, domain.Validation("invalid task status %q", in.Status)
	}
	due, err := dueDate(in.DueDate)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.stamp()
	task := domain.Task{
		ID:          newID(),
		ProjectID:   projectID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		DueDate:     due,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = e.inTx(ctx, "create_task", func(t *txn) error {
		if _, err := e.ledgerAccess(ctx, t, projectID, userID); err != nil {
			return err
		}
		if err := e.Repo.InsertTask(ctx, t, task); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, projectID, userID, activity.ActionTaskCreated, activity.Detail{
			"task_id": task.ID,
			"title":   task.Title,
			"to":      task.Status,
		})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (e Engine) UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) (domain.Task, error) {
	var task domain.Task
	err := e.inTx(ctx, "update_task", func(t *txn) error {
		var err error
		task, err = e.Repo.GetTask(ctx, t, taskID)
		if err != nil {
			return missing(err, "task %s", taskID)
		}
		if _, err := e.ledgerAccess(ctx, t, task.ProjectID, userID); err != nil {
			return err
		}
		detail := activity.Detail{"task_id": task.ID}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return domain.Validation("title is required")
			}
			task.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if patch.DueDate != nil {
			if task.DueDate, err = dueDate(*patch.DueDate); err != nil {
				return err
			}
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return domain.Validation("invalid task status %q", *patch.Status)
			}
			if *patch.Status != task.Status {
				detail["from"] = task.Status
			}
			task.Status = *patch.Status
		}
		detail["to"] = task.Status
		task.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateTask(ctx, t, task); err != nil {
			return missing(err, "task %s", taskID)
		}
		return e.appendActivity(ctx, t, task.ProjectID, userID, activity.ActionTaskUpdated, detail)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (e Engine) DeleteTask(ctx context.Context, userID, taskID string) error {
	return e.inTx(ctx, "delete_task", func(t *txn) error {
		task, err := e.Repo.GetTask(ctx, t, taskID)
		if err != nil {
			return missing(err, "task %s", taskID)
		}
		if _, err := e.ledgerAccess(ctx, t, task.ProjectID, userID); err != nil {
			return err
		}
		if err := e.Repo.DeleteTask(ctx, t, taskID); err != nil {
			return missing(err, "task %s", taskID)
		}
		return e.appendActivity(ctx, t, task.ProjectID, userID, activity.ActionTaskDeleted, activity.Detail{
			"task_id": task.ID,
			"title":   task.Title,
		})
	})
}

func (e Engine) ListTasks(ctx context.Context, userID, projectID string, status domain.TaskStatus) ([]domain.Task, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Validation("invalid task status %q", status)
	}
	var out []domain.Task
	err := e.read(ctx, "list_tasks", func(q repo.Querier) error {
		if err := e.ledgerRead(ctx, q, projectID, userID); err != nil {
			return err
		}
		var err error
		out, err = e.Repo.ListTasks(ctx, q, projectID, status)
		return err
	})
	return out, err
}

func (e Engine) CreateMilestone(ctx context.Context, userID, projectID string, in MilestoneInput) (domain.Milestone, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Milestone{}, domain.Validation("title is required")
	}
	if in.Amount < 0 {
		return domain.Milestone{}, domain.Validation("amount must not be negative")
	}
	due, err := dueDate(in.DueDate)
	if err != nil {
		return domain.Milestone{}, err
	}
	now := e.stamp()
	m := domain.Milestone{
		ID:            newID(),
		ProjectID:     projectID,
		Title:         strings.TrimSpace(in.Title),
		DueDate:       due,
		Amount:        in.Amount,
		Status:        domain.MilestonePending,
		PaymentStatus: domain.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = e.inTx(ctx, "create_milestone", func(t *txn) error {
		if _, err := e.ledgerAccess(ctx, t, projectID, userID); err != nil {
			return err
		}
		if err := e.Repo.InsertMilestone(ctx, t, m); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, projectID, userID, activity.ActionMilestoneCreated, activity.Detail{
			"milestone_id": m.ID,
			"amount":       m.Amount,
			"to":           m.Status,
		})
	})
	if err != nil {
		return domain.Milestone{}, err
	}
	return m, nil
}

func (e Engine) UpdateMilestone(ctx context.Context, userID, milestoneID string, patch MilestonePatch) (domain.Milestone, error) {
	var m domain.Milestone
	err := e.inTx(ctx, "update_milestone", func(t *txn) error {
		var err error
		m, err = e.Repo.GetMilestone(ctx, t, milestoneID)
		if err != nil {
			return missing(err, "milestone %s", milestoneID)
		}
		if _, err := e.ledgerAccess(ctx, t, m.ProjectID, userID); err != nil {
			return err
		}
		detail := activity.Detail{"milestone_id": m.ID}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return domain.Validation("title is required")
			}
			m.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.DueDate != nil {
			if m.DueDate, err = dueDate(*patch.DueDate); err != nil {
				return err
			}
		}
		if patch.Amount != nil {
			if *patch.Amount < 0 {
				return domain.Validation("amount must not be negative")
			}
			m.Amount = *patch.Amount
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return domain.Validation("invalid milestone status %q", *patch.Status)
			}
			if *patch.Status != m.Status {
				detail["from"] = m.Status
			}
			m.Status = *patch.Status
		}
		detail["to"] = m.Status
		m.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateMilestone(ctx, t, m); err != nil {
			return missing(err, "milestone %s", milestoneID)
		}
		return e.appendActivity(ctx, t, m.ProjectID, userID, activity.ActionMilestoneUpdated, detail)
	})
	if err != nil {
		return domain.Milestone{}, err
	}
	return m, nil
}

// SetMilestonePayment changes the payment status; only the owner may do this.
func (e Engine) SetMilestonePayment(ctx context.Context, userID, milestoneID string, status domain.PaymentStatus) (domain.Milestone, error) {
	if !status.Valid() {
		return domain.Milestone{}, domain.Validation("invalid payment status %q", status)
	}
	var m domain.Milestone
	err := e.inTx(ctx, "set_milestone_payment", func(t *txn) error {
		var err error
		m, err = e.Repo.GetMilestone(ctx, t, milestoneID)
		if err != nil {
			return missing(err, "milestone %s", milestoneID)
		}
		res, err := e.ledgerAccess(ctx, t, m.ProjectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		if m.PaymentStatus == status {
			return domain.InvalidState("milestone %s is already %s", m.ID, status)
		}
		from := m.PaymentStatus
		now := e.stamp()
		if err := e.Repo.SetMilestonePayment(ctx, t, m.ID, from, status, now); err != nil {
			return lost(err, "milestone %s", m.ID)
		}
		m.PaymentStatus = status
		m.UpdatedAt = now
		t.transitioned("milestone_payment", from, status)
		return e.appendActivity(ctx, t, m.ProjectID, userID, activity.ActionMilestonePayment, activity.Detail{
			"milestone_id": m.ID,
			"from":         from,
			"to":           status,
		})
	})
	if err != nil {
		return domain.Milestone{}, err
	}
	return m, nil
}

func (e Engine) DeleteMilestone(ctx context.Context, userID, milestoneID string) error {
	return e.inTx(ctx, "delete_milestone", func(t *txn) error {
		m, err := e.Repo.GetMilestone(ctx, t, milestoneID)
		if err != nil {
			return missing(err, "milestone %s", milestoneID)
		}
		if _, err := e.ledgerAccess(ctx, t, m.ProjectID, userID); err != nil {
			return err
		}
		if err := e.Repo.DeleteMilestone(ctx, t, milestoneID); err != nil {
			return missing(err, "milestone %s", milestoneID)
		}
		return e.appendActivity(ctx, t, m.ProjectID, userID, activity.ActionMilestoneDeleted, activity.Detail{
			"milestone_id": m.ID,
			"title":        m.Title,
		})
	})
}

func (e Engine) ListMilestones(ctx context.Context, userID, projectID string) ([]domain.Milestone, error) {
	var out []domain.Milestone
	err := e.read(ctx, "list_milestones", func(q repo.Querier) error {
		if err := e.ledgerRead(ctx, q, projectID, userID); err != nil {
			return err
		}
		var err error
		out, err = e.Repo.ListMilestones(ctx, q, projectID)
		return err
	})
	return out, err
}

func (e Engine) CreateCostEstimate(ctx context.Context, userID, projectID string, in CostEstimateInput) (domain.CostEstimate, error) {
	if strings.TrimSpace(in.Category) == "" {
		return domain.CostEstimate{}, domain.Validation("category is required")
	}
	if in.EstimatedAmount < 0 || (in.ActualAmount != nil && *in.ActualAmount < 0) {
		return domain.CostEstimate{}, domain.Validation("amounts must not be negative")
	}
	now := e.stamp()
	c := domain.CostEstimate{
		ID:              newID(),
		ProjectID:       projectID,
		Category:        strings.TrimSpace(in.Category),
		Description:     in.Description,
		EstimatedAmount: in.EstimatedAmount,
		ActualAmount:    in.ActualAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := e.inTx(ctx, "create_cost_estimate", func(t *txn) error {
		if _, err := e.ledgerAccess(ctx, t, projectID, userID); err != nil {
			return err
		}
		if err := e.Repo.InsertCostEstimate(ctx, t, c); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, projectID, userID, activity.ActionCostCreated, activity.Detail{
			"cost_estimate_id": c.ID,
			"category":         c.Category,
			"estimated_amount": c.EstimatedAmount,
		})
	})
	if err != nil {
		return domain.CostEstimate{}, err
	}
	return c, nil
}

func (e Engine) UpdateCostEstimate(ctx context.Context, userID, costID string, patch CostEstimatePatch) (domain.CostEstimate, error) {
	var c domain.CostEstimate
	err := e.inTx(ctx, "update_cost_estimate", func(t *txn) error {
		var err error
		c, err = e.Repo.GetCostEstimate(ctx, t, costID)
		if err != nil {
			return missing(err, "cost estimate %s", costID)
		}
		if _, err := e.ledgerAccess(ctx, t, c.ProjectID, userID); err != nil {
			return err
		}
		if patch.Category != nil {
			if strings.TrimSpace(*patch.Category) == "" {
				return domain.Validation("category is required")
			}
			c.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.EstimatedAmount != nil {
			if *patch.EstimatedAmount < 0 {
				return domain.Validation("amounts must not be negative")
			}
			c.EstimatedAmount = *patch.EstimatedAmount
		}
		switch {
		case patch.ClearActual:
			c.ActualAmount = nil
		case patch.ActualAmount != nil:
			if *patch.ActualAmount < 0 {
				return domain.Validation("amounts must not be negative")
			}
			c.ActualAmount = patch.ActualAmount
		}
		c.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateCostEstimate(ctx, t, c); err != nil {
			return missing(err, "cost estimate %s", costID)
		}
		detail := activity.Detail{
			"cost_estimate_id": c.ID,
			"estimated_amount": c.EstimatedAmount,
		}
		if c.ActualAmount != nil {
			detail["actual_amount"] = *c.ActualAmount
		}
		return e.appendActivity(ctx, t, c.ProjectID, userID, activity.ActionCostUpdated, detail)
	})
	if err != nil {
		return domain.CostEstimate{}, err
	}
	return c, nil
}

func (e Engine) DeleteCostEstimate(ctx context.Context, userID, costID string) error {
	return e.inTx(ctx, "delete_cost_estimate", func(t *txn) error {
		c, err := e.Repo.GetCostEstimate(ctx, t, costID)
		if err != nil {
			return missing(err, "cost estimate %s", costID)
		}
		if _, err := e.ledgerAccess(ctx, t, c.ProjectID, userID); err != nil {
			return err
		}
		if err := e.Repo.DeleteCostEstimate(ctx, t, costID); err != nil {
			return missing(err, "cost estimate %s", costID)
		}
		return e.appendActivity(ctx, t, c.ProjectID, userID, activity.ActionCostDeleted, activity.Detail{
			"cost_estimate_id": c.ID,
			"category":         c.Category,
		})
	})
}

func (e Engine) ListCostEstimates(ctx context.Context, userID, projectID string) ([]domain.CostEstimate, error) {
	var out []domain.CostEstimate
	err := e.read(ctx, "list_cost_estimates", func(q repo.Querier) error {
		if err := e.ledgerRead(ctx, q, projectID, userID); err != nil {
			return err
		}
		var err error
		out, err = e.Repo.ListCostEstimates(ctx, q, projectID)
		return err
	})
	return out, err
}
