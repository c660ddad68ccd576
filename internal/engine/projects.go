package engine

import (
	"context"
	"errors"
	"strings"

	"homeworks/internal/activity"
	"homeworks/internal/domain"
	"homeworks/internal/engine/access"
	"homeworks/internal/notify"
	"homeworks/internal/repo"
)

// ProjectInput are the fields a homeowner supplies when opening a project.
type ProjectInput struct {
	Title        string
	ScopeType    domain.ScopeType
	ScopeDetails string
	BudgetMin    int64
	BudgetMax    int64
	Timeline     string
	PropertyID   string
}

// ProjectPatch updates draft projects; nil fields are left unchanged.
type ProjectPatch struct {
	Title        *string
	ScopeType    *domain.ScopeType
	ScopeDetails *string
	BudgetMin    *int64
	BudgetMax    *int64
	Timeline     *string
	PropertyID   *string
}

func validateProject(p domain.Project) error {
	if strings.TrimSpace(p.Title) == "" {
		return domain.Validation("title is required")
	}
	if !p.ScopeType.Valid() {
		return domain.Validation("invalid scope_type %q", p.ScopeType)
	}
	if p.BudgetMin < 0 || p.BudgetMax < 0 {
		return domain.Validation("budget must not be negative")
	}
	if p.BudgetMax > 0 && p.BudgetMax < p.BudgetMin {
		return domain.Validation("budget_max must be >= budget_min")
	}
	return nil
}

// ownedProperty checks that propertyID belongs to the homeowner. A property
// owned by someone else is reported as missing.
func (e Engine) ownedProperty(ctx context.Context, q repo.Querier, propertyID, homeownerID string) error {
	prop, err := e.Repo.GetProperty(ctx, q, propertyID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && prop.HomeownerID != homeownerID) {
		return domain.NotFound("property %s not found", propertyID)
	}
	return err
}

func (e Engine) homeownerFor(ctx context.Context, q repo.Querier, userID string) (domain.Homeowner, error) {
	h, err := e.Repo.GetHomeownerByUser(ctx, q, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return h, domain.Forbidden("user %s has no homeowner profile", userID)
	}
	return h, err
}

func (e Engine) CreateProject(ctx context.Context, userID string, in ProjectInput) (domain.Project, error) {
	now := e.stamp()
	p := domain.Project{
		ID:           newID(),
		Title:        strings.TrimSpace(in.Title),
		ScopeType:    in.ScopeType,
		ScopeDetails: in.ScopeDetails,
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     in.Timeline,
		Status:       domain.ProjectDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.PropertyID != "" {
		p.PropertyID = &in.PropertyID
	}
	if err := validateProject(p); err != nil {
		return domain.Project{}, err
	}
	err := e.inTx(ctx, "create_project", func(t *txn) error {
		h, err := e.homeownerFor(ctx, t, userID)
		if err != nil {
			return err
		}
		p.HomeownerID = h.ID
		if p.PropertyID != nil {
			if err := e.ownedProperty(ctx, t, *p.PropertyID, h.ID); err != nil {
				return err
			}
		}
		if err := e.Repo.InsertProject(ctx, t, p); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, p.ID, userID, activity.ActionProjectCreated, activity.Detail{
			"title": p.Title,
			"to":    p.Status,
		})
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) UpdateProject(ctx context.Context, projectID, userID string, patch ProjectPatch) (domain.Project, error) {
	var p domain.Project
	err := e.inTx(ctx, "update_project", func(t *txn) error {
		res, err := e.Access.Resolve(ctx, t, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		p = res.Project
		if p.Status != domain.ProjectDraft {
			return domain.InvalidState("can only update in draft")
		}
		var changed []string
		if patch.Title != nil {
			p.Title = strings.TrimSpace(*patch.Title)
			changed = append(changed, "title")
		}
		if patch.ScopeType != nil {
			p.ScopeType = *patch.ScopeType
			changed = append(changed, "scope_type")
		}
		if patch.ScopeDetails != nil {
			p.ScopeDetails = *patch.ScopeDetails
			changed = append(changed, "scope_details")
		}
		if patch.BudgetMin != nil {
			p.BudgetMin = *patch.BudgetMin
			changed = append(changed, "budget_min")
		}
		if patch.BudgetMax != nil {
			p.BudgetMax = *patch.BudgetMax
			changed = append(changed, "budget_max")
		}
		if patch.Timeline != nil {
			p.Timeline = *patch.Timeline
			changed = append(changed, "timeline")
		}
		if patch.PropertyID != nil {
			if *patch.PropertyID == "" {
				p.PropertyID = nil
			} else {
				if err := e.ownedProperty(ctx, t, *patch.PropertyID, p.HomeownerID); err != nil {
					return err
				}
				p.PropertyID = patch.PropertyID
			}
			changed = append(changed, "property_id")
		}
		if err := validateProject(p); err != nil {
			return err
		}
		p.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateProjectDetails(ctx, t, p, domain.ProjectDraft); err != nil {
			return lost(err, "project %s", p.ID)
		}
		return e.appendActivity(ctx, t, p.ID, userID, activity.ActionProjectUpdated, activity.Detail{
			"fields": changed,
			"status": p.Status,
		})
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// StartSeekingDesigner opens a draft project to designers. SendRequest
// triggers this on the first request; calling it directly is optional.
func (e Engine) StartSeekingDesigner(ctx context.Context, projectID, userID string) (domain.Project, error) {
	var p domain.Project
	err := e.inTx(ctx, "start_seeking_designer", func(t *txn) error {
		res, err := e.Access.Resolve(ctx, t, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		p = res.Project
		return e.transitionProject(ctx, t, &p, domain.ProjectSeekingDesigner, userID, nil, nil)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// assignDesigner moves the project to in_progress with designerID as its
// single active designer.
func (e Engine) assignDesigner(ctx context.Context, t *txn, p *domain.Project, designerID, userID string) error {
	if p.DesignerID != nil {
		return domain.InvalidState("project %s already has designer %s", p.ID, *p.DesignerID)
	}
	if err := e.transitionProject(ctx, t, p, domain.ProjectInProgress, userID, &designerID, activity.Detail{"designer_id": designerID}); err != nil {
		return err
	}
	if err := e.appendActivity(ctx, t, p.ID, userID, activity.ActionDesignerAssigned, activity.Detail{
		"designer_id": designerID,
		"to":          p.Status,
	}); err != nil {
		return err
	}
	t.notify(notify.Event{
		Type:      notify.TypeDesignerAssigned,
		ProjectID: p.ID,
		EntityID:  designerID,
		UserID:    e.designerUser(ctx, t, designerID),
	})
	return nil
}

func (e Engine) CompleteProject(ctx context.Context, projectID, userID string) (domain.Project, error) {
	var p domain.Project
	err := e.inTx(ctx, "complete_project", func(t *txn) error {
		res, err := e.Access.Resolve(ctx, t, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		p = res.Project
		if p.Status != domain.ProjectInProgress {
			return domain.InvalidState("project %s is %s; only in_progress projects can be completed", p.ID, p.Status)
		}
		if err := e.transitionProject(ctx, t, &p, domain.ProjectCompleted, userID, nil, nil); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, p.ID, userID, activity.ActionProjectCompleted, activity.Detail{"to": p.Status})
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// CancelProject moves any non-terminal project to cancelled. The reason is
// kept in the activity log only. Open requests and proposals are left as they are.
func (e Engine) CancelProject(ctx context.Context, projectID, userID, reason string) (domain.Project, error) {
	var p domain.Project
	err := e.inTx(ctx, "cancel_project", func(t *txn) error {
		res, err := e.Access.Resolve(ctx, t, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		p = res.Project
		var extra activity.Detail
		if reason != "" {
			extra = activity.Detail{"reason": reason}
		}
		if err := e.transitionProject(ctx, t, &p, domain.ProjectCancelled, userID, nil, extra); err != nil {
			return err
		}
		detail := activity.Detail{"to": p.Status}
		if reason != "" {
			detail["reason"] = reason
		}
		return e.appendActivity(ctx, t, p.ID, userID, activity.ActionProjectCancelled, detail)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// GetProject is visible to the owner, the assigned designer and any
// designer the project has solicited.
func (e Engine) GetProject(ctx context.Context, projectID, userID string) (domain.Project, error) {
	var p domain.Project
	err := e.read(ctx, "get_project", func(q repo.Querier) error {
		res, err := e.Access.Resolve(ctx, q, projectID, userID)
		if err != nil {
			return err
		}
		if err := e.requireViewer(ctx, q, res); err != nil {
			return err
		}
		p = res.Project
		return nil
	})
	return p, err
}

func (e Engine) requireViewer(ctx context.Context, q repo.Querier, res access.Resolution) error {
	if res.RequireMember() == nil {
		return nil
	}
	if id := res.DesignerID(); id != "" {
		_, err := e.Repo.GetRequestForPair(ctx, q, res.Project.ID, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
	}
	return access.ForbiddenError{Required: "project owner or solicited designer", Role: res.Role}
}

// ListOwnerProjects lists the caller's own projects, newest first.
func (e Engine) ListOwnerProjects(ctx context.Context, userID string, status domain.ProjectStatus) ([]domain.Project, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Validation("invalid project status %q", status)
	}
	var out []domain.Project
	err := e.read(ctx, "list_owner_projects", func(q repo.Querier) error {
		h, err := e.homeownerFor(ctx, q, userID)
		if err != nil {
			return err
		}
		out, err = e.Repo.ListProjects(ctx, q, repo.ProjectFilters{HomeownerID: h.ID, Status: status})
		return err
	})
	return out, err
}

// ListDesignerProjects lists projects the caller is the assigned designer of.
func (e Engine) ListDesignerProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	var out []domain.Project
	err := e.read(ctx, "list_designer_projects", func(q repo.Querier) error {
		d, err := e.designerFor(ctx, q, userID)
		if err != nil {
			return err
		}
		out, err = e.Repo.ListProjects(ctx, q, repo.ProjectFilters{DesignerID: d.ID})
		return err
	})
	return out, err
}
