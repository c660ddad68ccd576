package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

func registerLedger(api huma.API, e engine.Engine) {
	registerTasks(api, e)
	registerMilestones(api, e)
	registerCostEstimates(api, e)
}

func registerTasks(api huma.API, e engine.Engine) {
	type taskPath struct {
		TaskID string `path:"task_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateTaskRequest `json:"body"`
	}) (*out[domain.Task], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, userID, input.ProjectID, engine.TaskInput{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      domain.TaskStatus(input.Body.Status),
			DueDate:     input.Body.DueDate,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status"`
	}) (*out[[]domain.Task], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListTasks(ctx, userID, input.ProjectID, domain.TaskStatus(input.Status))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*out[domain.Task], error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, userID, input.TaskID, input.Body.patch())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, userID, input.TaskID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}

func registerMilestones(api huma.API, e engine.Engine) {
	type milestonePath struct {
		MilestoneID string `path:"milestone_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-milestone",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/milestones",
		Summary:       "Create milestone",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                 `path:"project_id"`
		Body      CreateMilestoneRequest `json:"body"`
	}) (*out[domain.Milestone], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateMilestone(ctx, userID, input.ProjectID, engine.MilestoneInput{
			Title:   input.Body.Title,
			DueDate: input.Body.DueDate,
			Amount:  input.Body.Amount,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-milestones",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/milestones",
		Summary:     "List milestones",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[[]domain.Milestone], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListMilestones(ctx, userID, input.ProjectID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-milestone",
		Method:      http.MethodPatch,
		Path:        "/milestones/{milestone_id}",
		Summary:     "Update milestone",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		MilestoneID string                 `path:"milestone_id"`
		Body        UpdateMilestoneRequest `json:"body"`
	}) (*out[domain.Milestone], error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.UpdateMilestone(ctx, userID, input.MilestoneID, input.Body.patch())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-milestone-payment",
		Method:      http.MethodPost,
		Path:        "/milestones/{milestone_id}/payment",
		Summary:     "Mark a milestone paid or unpaid (owner)",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		MilestoneID string         `path:"milestone_id"`
		Body        PaymentRequest `json:"body"`
	}) (*out[domain.Milestone], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.SetMilestonePayment(ctx, userID, input.MilestoneID, domain.PaymentStatus(input.Body.PaymentStatus))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-milestone",
		Method:        http.MethodDelete,
		Path:          "/milestones/{milestone_id}",
		Summary:       "Delete milestone",
		DefaultStatus: http.StatusNoContent,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *milestonePath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMilestone(ctx, userID, input.MilestoneID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}

func registerCostEstimates(api huma.API, e engine.Engine) {
	type costPath struct {
		CostID string `path:"cost_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-cost-estimate",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/costs",
		Summary:       "Create cost estimate",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                    `path:"project_id"`
		Body      CreateCostEstimateRequest `json:"body"`
	}) (*out[domain.CostEstimate], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCostEstimate(ctx, userID, input.ProjectID, engine.CostEstimateInput{
			Category:        input.Body.Category,
			Description:     input.Body.Description,
			EstimatedAmount: input.Body.EstimatedAmount,
			ActualAmount:    input.Body.ActualAmount,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cost-estimates",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/costs",
		Summary:     "List cost estimates",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[[]domain.CostEstimate], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListCostEstimates(ctx, userID, input.ProjectID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-cost-estimate",
		Method:      http.MethodPatch,
		Path:        "/costs/{cost_id}",
		Summary:     "Update cost estimate",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		CostID string                    `path:"cost_id"`
		Body   UpdateCostEstimateRequest `json:"body"`
	}) (*out[domain.CostEstimate], error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateCostEstimate(ctx, userID, input.CostID, engine.CostEstimatePatch{
			Category:        input.Body.Category,
			Description:     input.Body.Description,
			EstimatedAmount: input.Body.EstimatedAmount,
			ActualAmount:    input.Body.ActualAmount,
			ClearActual:     input.Body.ClearActual,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-cost-estimate",
		Method:        http.MethodDelete,
		Path:          "/costs/{cost_id}",
		Summary:       "Delete cost estimate",
		DefaultStatus: http.StatusNoContent,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *costPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteCostEstimate(ctx, userID, input.CostID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
