package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

func registerProfiles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Profiles of the current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*out[engine.Profiles], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		me, err := e.Me(ctx, userID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(me), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-homeowner",
		Method:        http.MethodPost,
		Path:          "/homeowners",
		Summary:       "Register as a homeowner",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		Body NameRequest `json:"body"`
	}) (*out[domain.Homeowner], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		h, err := e.RegisterHomeowner(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(h), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-designer",
		Method:        http.MethodPost,
		Path:          "/designers",
		Summary:       "Register as a designer",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		Body RegisterDesignerRequest `json:"body"`
	}) (*out[domain.Designer], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.RegisterDesigner(ctx, userID, input.Body.Name, input.Body.Bio)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-designers",
		Method:      http.MethodGet,
		Path:        "/designers",
		Summary:     "List designers",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		VerifiedOnly bool `query:"verified_only"`
	}) (*out[[]domain.Designer], error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.ListDesigners(ctx, input.VerifiedOnly)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-designer",
		Method:      http.MethodPost,
		Path:        "/designers/{designer_id}/verification",
		Summary:     "Set a designer's verification (admin)",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		DesignerID string        `path:"designer_id"`
		Body       VerifyRequest `json:"body"`
	}) (*out[domain.Designer], error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		d, err := e.VerifyDesigner(ctx, input.DesignerID, input.Body.Verified)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-contractor",
		Method:        http.MethodPost,
		Path:          "/contractors",
		Summary:       "Register as a contractor",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		Body RegisterContractorRequest `json:"body"`
	}) (*out[domain.Contractor], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.RegisterContractor(ctx, userID, input.Body.Name, input.Body.Trade)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-contractor",
		Method:      http.MethodPost,
		Path:        "/contractors/{contractor_id}/verification",
		Summary:     "Set a contractor's verification (admin)",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		ContractorID string        `path:"contractor_id"`
		Body         VerifyRequest `json:"body"`
	}) (*out[domain.Contractor], error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		c, err := e.VerifyContractor(ctx, input.ContractorID, input.Body.Verified)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-property",
		Method:        http.MethodPost,
		Path:          "/properties",
		Summary:       "Add a property",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		Body AddPropertyRequest `json:"body"`
	}) (*out[domain.Property], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AddProperty(ctx, userID, input.Body.Address)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(p), nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Issue an API key for the current user",
		DefaultStatus: http.StatusCreated,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body" required:"false"`
	}) (*out[CreatedAPIKeyResponse], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		key, secret, err := e.CreateAPIKey(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(CreatedAPIKeyResponse{Key: key, Secret: secret}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List the current user's API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*out[[]domain.APIKey], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		keys, err := e.ListAPIKeys(ctx, userID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(keys)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "revoke-api-key",
		Method:        http.MethodDelete,
		Path:          "/api-keys/{key_id}",
		Summary:       "Revoke an API key",
		DefaultStatus: http.StatusNoContent,
		Errors:        commonErrors,
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RevokeAPIKey(ctx, userID, input.KeyID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
