package engine

import (
	"context"
	"errors"
	"strings"

	"homeworks/internal/activity"
	"homeworks/internal/domain"
	"homeworks/internal/notify"
	"homeworks/internal/repo"
)

// ProposalTerms are a designer's bid for one request.
type ProposalTerms struct {
	Scope         string
	Approach      string
	TimelineWeeks int
	CostEstimate  int64
	CostBreakdown []domain.CostItem
}

func (t ProposalTerms) validate() error {
	if strings.TrimSpace(t.Scope) == "" {
		return domain.Validation("scope is required")
	}
	if t.TimelineWeeks <= 0 {
		return domain.Validation("timeline_weeks must be positive")
	}
	if t.CostEstimate <= 0 {
		return domain.Validation("cost_estimate must be positive")
	}
	for i, item := range t.CostBreakdown {
		if strings.TrimSpace(item.Label) == "" {
			return domain.Validation("cost_breakdown[%d].label is required", i)
		}
		if item.Amount < 0 {
			return domain.Validation("cost_breakdown[%d].amount must not be negative", i)
		}
	}
	return nil
}

// AcceptResult describes the outcome of an accepted proposal.
type AcceptResult struct {
	Proposal          domain.Proposal `json:"proposal"`
	Request           domain.Request  `json:"request"`
	Project           domain.Project  `json:"project"`
	RejectedProposals []string        `json:"rejected_proposals"`
	RejectedRequests  []string        `json:"rejected_requests"`
}

func (e Engine) designerFor(ctx context.Context, q repo.Querier, userID string) (domain.Designer, error) {
	d, err := e.Repo.GetDesignerByUser(ctx, q, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return d, domain.Forbidden("user %s has no designer profile", userID)
	}
	return d, err
}

// loadProposal returns a proposal with its parent request.
func (e Engine) loadProposal(ctx context.Context, q repo.Querier, proposalID string) (domain.Proposal, domain.Request, error) {
	p, err := e.Repo.GetProposal(ctx, q, proposalID)
	if err != nil {
		return p, domain.Request{}, missing(err, "proposal %s", proposalID)
	}
	rq, err := e.Repo.GetRequest(ctx, q, p.RequestID)
	if err != nil {
		return p, rq, missing(err, "request %s", p.RequestID)
	}
	return p, rq, nil
}

// SendRequest solicits a verified designer. The first request on a draft
// project moves it to seeking_designer.
func (e Engine) SendRequest(ctx context.Context, userID, projectID, designerID, message string) (domain.Request, error) {
	var rq domain.Request
	err := e.inTx(ctx, "send_request", func(t *txn) error {
		res, err := e.Access.Resolve(ctx, t, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		p := res.Project
		if p.Status != domain.ProjectDraft && p.Status != domain.ProjectSeekingDesigner {
			return domain.Validation("requests can only be sent while the project is draft or seeking_designer (project is %s)", p.Status)
		}
		designer, err := e.Repo.GetDesigner(ctx, t, designerID)
		if err != nil {
			return missing(err, "designer %s", designerID)
		}
		if !designer.Verified {
			return domain.NotFound("designer %s not found or not verified", designerID)
		}
		now := e.stamp()
		rq = domain.Request{
			ID:         newID(),
			ProjectID:  p.ID,
			DesignerID: designer.ID,
			Status:     domain.RequestPending,
			Message:    message,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := e.Repo.InsertRequest(ctx, t, rq); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return domain.Conflict("request already sent to designer %s", designer.ID)
			}
			return err
		}
		if err := e.appendActivity(ctx, t, p.ID, userID, activity.ActionRequestSent, activity.Detail{
			"request_id":  rq.ID,
			"designer_id": designer.ID,
			"to":          rq.Status,
		}); err != nil {
			return err
		}
		if p.Status == domain.ProjectDraft {
			if err := e.transitionProject(ctx, t, &p, domain.ProjectSeekingDesigner, userID, nil, activity.Detail{"trigger": "request_sent"}); err != nil {
				return err
			}
		}
		t.notify(notify.Event{
			Type:      notify.TypeRequestSent,
			ProjectID: p.ID,
			EntityID:  rq.ID,
			UserID:    designer.UserID,
		})
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}
	return rq, nil
}

// DeclineRequest lets the solicited designer turn down a pending request.
func (e Engine) DeclineRequest(ctx context.Context, userID, requestID string) (domain.Request, error) {
	var rq domain.Request
	err := e.inTx(ctx, "decline_request", func(t *txn) error {
		var err error
		rq, err = e.Repo.GetRequest(ctx, t, requestID)
		if err != nil {
			return missing(err, "request %s", requestID)
		}
		res, err := e.Access.Resolve(ctx, t, rq.ProjectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireDesigner(rq.DesignerID); err != nil {
			return err
		}
		if rq.Status != domain.RequestPending {
			return domain.InvalidState("request %s is %s; only pending requests can be declined", rq.ID, rq.Status)
		}
		if err := e.transitionRequest(ctx, t, &rq, domain.RequestRejected, userID, nil); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, rq.ProjectID, userID, activity.ActionRequestDeclined, activity.Detail{
			"request_id":  rq.ID,
			"designer_id": rq.DesignerID,
			"to":          rq.Status,
		})
	})
	if err != nil {
		return domain.Request{}, err
	}
	return rq, nil
}

// SubmitProposal answers a pending request with a bid.
func (e Engine) SubmitProposal(ctx context.Context, userID, requestID string, terms ProposalTerms) (domain.Proposal, error) {
	var p domain.Proposal
	err := e.inTx(ctx, "submit_proposal", func(t *txn) error {
		rq, err := e.Repo.GetRequest(ctx, t, requestID)
		if err != nil {
			return missing(err, "request %s", requestID)
		}
		res, err := e.Access.Resolve(ctx, t, rq.ProjectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireDesigner(rq.DesignerID); err != nil {
			return err
		}
		if rq.Status != domain.RequestPending {
			return domain.InvalidState("request %s is %s; proposals need a pending request", rq.ID, rq.Status)
		}
		if res.Project.Status != domain.ProjectSeekingDesigner {
			return domain.InvalidState("project %s is %s and no longer takes proposals", res.Project.ID, res.Project.Status)
		}
		if _, err := e.Repo.GetProposalForRequest(ctx, t, rq.ID); err == nil {
			return domain.Conflict("proposal already submitted for request %s", rq.ID)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err := terms.validate(); err != nil {
			return err
		}
		now := e.stamp()
		p = domain.Proposal{
			ID:            newID(),
			RequestID:     rq.ID,
			DesignerID:    rq.DesignerID,
			Scope:         strings.TrimSpace(terms.Scope),
			Approach:      terms.Approach,
			TimelineWeeks: terms.TimelineWeeks,
			CostEstimate:  terms.CostEstimate,
			CostBreakdown: terms.CostBreakdown,
			Status:        domain.ProposalSubmitted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.Repo.InsertProposal(ctx, t, p); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return domain.Conflict("proposal already submitted for request %s", rq.ID)
			}
			return err
		}
		if err := e.transitionRequest(ctx, t, &rq, domain.RequestProposalSubmitted, userID, activity.Detail{"proposal_id": p.ID}); err != nil {
			return err
		}
		return e.appendActivity(ctx, t, rq.ProjectID, userID, activity.ActionProposalSubmitted, activity.Detail{
			"proposal_id":   p.ID,
			"request_id":    rq.ID,
			"cost_estimate": p.CostEstimate,
			"to":            p.Status,
		})
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

// AcceptProposal accepts one bid and, in the same transaction, rejects every
// competing proposal and assigns the winning designer to the project.
func (e Engine) AcceptProposal(ctx context.Context, userID, proposalID string) (AcceptResult, error) {
	var out AcceptResult
	err := e.inTx(ctx, "accept_proposal", func(t *txn) error {
		p, rq, err := e.loadProposal(ctx, t, proposalID)
		if err != nil {
			return err
		}
		res, err := e.Access.Resolve(ctx, t, rq.ProjectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		project := res.Project
		if p.Status != domain.ProposalSubmitted {
			return domain.InvalidState("proposal %s is %s; only submitted proposals can be accepted", p.ID, p.Status)
		}
		if !domain.CanTransitionProject(project.Status, domain.ProjectInProgress) {
			return domain.InvalidState("project %s is %s and cannot take a designer", project.ID, project.Status)
		}

		if err := e.transitionProposal(ctx, t, project.ID, &p, domain.ProposalAccepted, userID, nil); err != nil {
			return err
		}
		if err := e.transitionRequest(ctx, t, &rq, domain.RequestAccepted, userID, activity.Detail{"proposal_id": p.ID}); err != nil {
			return err
		}

		statuses := []domain.RequestStatus{domain.RequestProposalSubmitted}
		if e.Config != nil && e.Config.Negotiation.AutoRejectPending {
			statuses = append(statuses, domain.RequestPending)
		}
		siblings, err := e.Repo.ListRequests(ctx, t, repo.RequestFilters{ProjectID: project.ID, Statuses: statuses})
		if err != nil {
			return err
		}
		cascade := activity.Detail{"cause": "proposal_accepted", "accepted_proposal_id": p.ID}
		for i := range siblings {
			sib := &siblings[i]
			if sib.ID == rq.ID {
				continue
			}
			if sib.Status == domain.RequestPending {
				if err := e.transitionRequest(ctx, t, sib, domain.RequestRejected, userID, cascade); err != nil {
					return err
				}
				if err := e.appendActivity(ctx, t, project.ID, userID, activity.ActionRequestAutoRejected, activity.Detail{
					"request_id":           sib.ID,
					"designer_id":          sib.DesignerID,
					"accepted_proposal_id": p.ID,
					"to":                   sib.Status,
				}); err != nil {
					return err
				}
				out.RejectedRequests = append(out.RejectedRequests, sib.ID)
				continue
			}
			if err := e.transitionRequest(ctx, t, sib, domain.RequestRejected, userID, cascade); err != nil {
				return err
			}
			out.RejectedRequests = append(out.RejectedRequests, sib.ID)
			sp, err := e.Repo.GetProposalForRequest(ctx, t, sib.ID)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if sp.Status != domain.ProposalSubmitted {
				continue
			}
			if err := e.transitionProposal(ctx, t, project.ID, &sp, domain.ProposalRejected, userID, cascade); err != nil {
				return err
			}
			if err := e.appendActivity(ctx, t, project.ID, userID, activity.ActionProposalAutoRejected, activity.Detail{
				"proposal_id":          sp.ID,
				"request_id":           sib.ID,
				"designer_id":          sp.DesignerID,
				"accepted_proposal_id": p.ID,
				"to":                   sp.Status,
			}); err != nil {
				return err
			}
			out.RejectedProposals = append(out.RejectedProposals, sp.ID)
			t.notify(notify.Event{
				Type:      notify.TypeProposalRejected,
				ProjectID: project.ID,
				EntityID:  sp.ID,
				UserID:    e.designerUser(ctx, t, sp.DesignerID),
				Payload:   map[string]any{"reason": "another proposal was accepted"},
			})
		}

		if err := e.assignDesigner(ctx, t, &project, p.DesignerID, userID); err != nil {
			return err
		}
		if err := e.appendActivity(ctx, t, project.ID, userID, activity.ActionProposalAccepted, activity.Detail{
			"proposal_id":        p.ID,
			"request_id":         rq.ID,
			"designer_id":        p.DesignerID,
			"rejected_proposals": nonNil(out.RejectedProposals),
			"to":                 p.Status,
		}); err != nil {
			return err
		}
		t.notify(notify.Event{
			Type:      notify.TypeProposalAccepted,
			ProjectID: project.ID,
			EntityID:  p.ID,
			UserID:    e.designerUser(ctx, t, p.DesignerID),
		})
		out.Proposal = p
		out.Request = rq
		out.Project = project
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}
	out.RejectedProposals = nonNil(out.RejectedProposals)
	out.RejectedRequests = nonNil(out.RejectedRequests)
	return out, nil
}

// RejectProposal turns down one bid. Sibling proposals are not touched.
func (e Engine) RejectProposal(ctx context.Context, userID, proposalID, reason string) (domain.Proposal, error) {
	var p domain.Proposal
	err := e.inTx(ctx, "reject_proposal", func(t *txn) error {
		var rq domain.Request
		var err error
		p, rq, err = e.loadProposal(ctx, t, proposalID)
		if err != nil {
			return err
		}
		res, err := e.Access.Resolve(ctx, t, rq.ProjectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		if p.Status != domain.ProposalSubmitted {
			return domain.InvalidState("proposal %s is %s; only submitted proposals can be rejected", p.ID, p.Status)
		}
		var extra activity.Detail
		if reason != "" {
			extra = activity.Detail{"reason": reason}
		}
		if err := e.transitionProposal(ctx, t, rq.ProjectID, &p, domain.ProposalRejected, userID, extra); err != nil {
			return err
		}
		if err := e.transitionRequest(ctx, t, &rq, domain.RequestRejected, userID, extra); err != nil {
			return err
		}
		detail := activity.Detail{
			"proposal_id": p.ID,
			"request_id":  rq.ID,
			"designer_id": p.DesignerID,
			"to":          p.Status,
		}
		if reason != "" {
			detail["reason"] = reason
		}
		if err := e.appendActivity(ctx, t, rq.ProjectID, userID, activity.ActionProposalRejected, detail); err != nil {
			return err
		}
		evt := notify.Event{
			Type:      notify.TypeProposalRejected,
			ProjectID: rq.ProjectID,
			EntityID:  p.ID,
			UserID:    e.designerUser(ctx, t, p.DesignerID),
		}
		if reason != "" {
			evt.Payload = map[string]any{"reason": reason}
		}
		t.notify(evt)
		return nil
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

// ListProjectRequests returns every request of a project to its owner.
func (e Engine) ListProjectRequests(ctx context.Context, userID, projectID string) ([]domain.Request, error) {
	var out []domain.Request
	err := e.read(ctx, "list_project_requests", func(q repo.Querier) error {
		res, err := e.Access.Resolve(ctx, q, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		out, err = e.Repo.ListRequests(ctx, q, repo.RequestFilters{ProjectID: projectID})
		return err
	})
	return out, err
}

// ListDesignerRequests is the caller's inbox as a designer.
func (e Engine) ListDesignerRequests(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.Request, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Validation("invalid request status %q", status)
	}
	var out []domain.Request
	err := e.read(ctx, "list_designer_requests", func(q repo.Querier) error {
		d, err := e.designerFor(ctx, q, userID)
		if err != nil {
			return err
		}
		f := repo.RequestFilters{DesignerID: d.ID}
		if status != "" {
			f.Statuses = []domain.RequestStatus{status}
		}
		out, err = e.Repo.ListRequests(ctx, q, f)
		return err
	})
	return out, err
}

// GetProposal is visible to the project owner and the proposing designer.
func (e Engine) GetProposal(ctx context.Context, userID, proposalID string) (domain.Proposal, error) {
	var p domain.Proposal
	err := e.read(ctx, "get_proposal", func(q repo.Querier) error {
		var rq domain.Request
		var err error
		p, rq, err = e.loadProposal(ctx, q, proposalID)
		if err != nil {
			return err
		}
		res, err := e.Access.Resolve(ctx, q, rq.ProjectID, userID)
		if err != nil {
			return err
		}
		if res.RequireOwner() == nil {
			return nil
		}
		return res.RequireDesigner(p.DesignerID)
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

// ListProjectProposals returns every bid on a project to its owner.
func (e Engine) ListProjectProposals(ctx context.Context, userID, projectID string) ([]domain.Proposal, error) {
	var out []domain.Proposal
	err := e.read(ctx, "list_project_proposals", func(q repo.Querier) error {
		res, err := e.Access.Resolve(ctx, q, projectID, userID)
		if err != nil {
			return err
		}
		if err := res.RequireOwner(); err != nil {
			return err
		}
		out, err = e.Repo.ListProjectProposals(ctx, q, projectID)
		return err
	})
	return out, err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
