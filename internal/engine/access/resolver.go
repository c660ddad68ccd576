package access

import (
	"context"
	"errors"
	"fmt"

	"homeworks/internal/domain"
	"homeworks/internal/repo"
)

type Role string

const (
	RoleOwner            Role = "owner"
	RoleAssignedDesigner Role = "assigned_designer"
	RoleNone             Role = "none"
)

// ForbiddenError indicates the caller lacks the role an operation needs.
type ForbiddenError struct {
	Required string
	Role     Role
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("%s required", e.Required)
}

func (e ForbiddenError) Unwrap() error { return domain.ErrForbidden }

// Resolution is the caller's standing on one project, derived from the
// profile tables at the time of the call.
type Resolution struct {
	Project   domain.Project
	Role      Role
	UserID    string
	Homeowner *domain.Homeowner
	Designer  *domain.Designer
}

// Resolver derives roles on every call. Nothing is cached: the assigned
// designer can change between two calls.
type Resolver struct {
	Repo repo.Repo
}

func (r Resolver) Resolve(ctx context.Context, q repo.Querier, projectID, userID string) (Resolution, error) {
	project, err := r.Repo.GetProject(ctx, q, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		return Resolution{}, domain.NotFound("project %s not found", projectID)
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("load project: %w", err)
	}
	res := Resolution{Project: project, Role: RoleNone, UserID: userID}
	if userID == "" {
		return res, nil
	}
	h, err := r.Repo.GetHomeownerByUser(ctx, q, userID)
	switch {
	case err == nil:
		res.Homeowner = &h
	case !errors.Is(err, repo.ErrNotFound):
		return Resolution{}, fmt.Errorf("load homeowner: %w", err)
	}
	d, err := r.Repo.GetDesignerByUser(ctx, q, userID)
	switch {
	case err == nil:
		res.Designer = &d
	case !errors.Is(err, repo.ErrNotFound):
		return Resolution{}, fmt.Errorf("load designer: %w", err)
	}
	switch {
	case res.Homeowner != nil && res.Homeowner.ID == project.HomeownerID:
		res.Role = RoleOwner
	case res.Designer != nil && project.DesignerID != nil && *project.DesignerID == res.Designer.ID:
		res.Role = RoleAssignedDesigner
	}
	return res, nil
}

func (res Resolution) RequireOwner() error {
	if res.Role == RoleOwner {
		return nil
	}
	return ForbiddenError{Required: "project owner", Role: res.Role}
}

// RequireMember admits the owner and the assigned designer.
func (res Resolution) RequireMember() error {
	if res.Role == RoleOwner || res.Role == RoleAssignedDesigner {
		return nil
	}
	return ForbiddenError{Required: "project owner or assigned designer", Role: res.Role}
}

// RequireDesigner admits the caller only when their designer profile is designerID.
func (res Resolution) RequireDesigner(designerID string) error {
	if res.Designer != nil && res.Designer.ID == designerID {
		return nil
	}
	return ForbiddenError{Required: "solicited designer", Role: res.Role}
}

// DesignerID returns the caller's designer profile id, or "".
func (res Resolution) DesignerID() string {
	if res.Designer == nil {
		return ""
	}
	return res.Designer.ID
}
