package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

type projectPath struct {
	ProjectID string `path:"project_id"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a draft project",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*out[domain.Project], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, userID, input.Body.input())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List the caller's projects",
		Description: "as=owner lists projects the caller owns; as=designer lists projects the caller is assigned to.",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		As     string `query:"as" enum:"owner,designer" default:"owner"`
		Status string `query:"status"`
	}) (*out[[]domain.Project], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var items []domain.Project
		var err error
		if input.As == "designer" {
			items, err = e.ListDesignerProjects(ctx, userID)
		} else {
			items, err = e.ListOwnerProjects(ctx, userID, domain.ProjectStatus(input.Status))
		}
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[domain.Project], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetProject(ctx, input.ProjectID, userID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Edit a draft project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*out[domain.Project], error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, input.ProjectID, userID, input.Body.patch())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "seek-designer",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/seek",
		Summary:     "Open a draft project to designers",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[domain.Project], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.StartSeekingDesigner(ctx, input.ProjectID, userID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/complete",
		Summary:     "Complete an in-progress project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[domain.Project], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CompleteProject(ctx, input.ProjectID, userID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/cancel",
		Summary:     "Cancel a project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string        `path:"project_id"`
		Body      ReasonRequest `json:"body" required:"false"`
	}) (*out[domain.Project], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CancelProject(ctx, input.ProjectID, userID, input.Body.Reason)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})
}

func registerActivity(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "project-activity",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/activity",
		Summary:     "Project activity, newest first",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Limit     int    `query:"limit" minimum:"0"`
		Before    int64  `query:"before" minimum:"0" doc:"Return entries older than this id"`
		Action    string `query:"action"`
	}) (*out[engine.ActivityResult], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.GetProjectActivity(ctx, userID, input.ProjectID, engine.ActivityPage{
			Limit:  input.Limit,
			Before: input.Before,
			Action: input.Action,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		res.Entries = nonNilSlice(res.Entries)
		return reply(res), nil
	})
}
