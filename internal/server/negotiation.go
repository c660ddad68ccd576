package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

type requestPath struct {
	RequestID string `path:"request_id"`
}

type proposalPath struct {
	ProposalID string `path:"proposal_id"`
}

func registerNegotiation(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "send-request",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/requests",
		Summary:       "Invite a designer to bid",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string             `path:"project_id"`
		Body      SendRequestRequest `json:"body"`
	}) (*out[domain.Request], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rq, err := e.SendRequest(ctx, userID, input.ProjectID, input.Body.DesignerID, input.Body.Message)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(rq), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-requests",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/requests",
		Summary:     "List a project's requests",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[[]domain.Request], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjectRequests(ctx, userID, input.ProjectID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "designer-inbox",
		Method:      http.MethodGet,
		Path:        "/requests",
		Summary:     "Requests addressed to the calling designer",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*out[[]domain.Request], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListDesignerRequests(ctx, userID, domain.RequestStatus(input.Status))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decline-request",
		Method:      http.MethodPost,
		Path:        "/requests/{request_id}/decline",
		Summary:     "Decline a pending request",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *requestPath) (*out[domain.Request], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rq, err := e.DeclineRequest(ctx, userID, input.RequestID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(rq), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-proposal",
		Method:        http.MethodPost,
		Path:          "/requests/{request_id}/proposal",
		Summary:       "Answer a request with a proposal",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		RequestID string                `path:"request_id"`
		Body      SubmitProposalRequest `json:"body"`
	}) (*out[domain.Proposal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SubmitProposal(ctx, userID, input.RequestID, input.Body.terms())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-proposals",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/proposals",
		Summary:     "List proposals received by a project",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *projectPath) (*out[[]domain.Proposal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjectProposals(ctx, userID, input.ProjectID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-proposal",
		Method:      http.MethodGet,
		Path:        "/proposals/{proposal_id}",
		Summary:     "Get proposal",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *proposalPath) (*out[domain.Proposal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetProposal(ctx, userID, input.ProposalID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-proposal",
		Method:      http.MethodPost,
		Path:        "/proposals/{proposal_id}/accept",
		Summary:     "Accept a proposal and assign its designer",
		Description: "Competing submitted proposals are rejected in the same transaction.",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *proposalPath) (*out[engine.AcceptResult], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.AcceptProposal(ctx, userID, input.ProposalID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-proposal",
		Method:      http.MethodPost,
		Path:        "/proposals/{proposal_id}/reject",
		Summary:     "Reject a proposal",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ProposalID string        `path:"proposal_id"`
		Body       ReasonRequest `json:"body" required:"false"`
	}) (*out[domain.Proposal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.RejectProposal(ctx, userID, input.ProposalID, input.Body.Reason)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})
}
