package server

import (
	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

// Request payloads

type NameRequest struct {
	Name string `json:"name" minLength:"1"`
}

type RegisterDesignerRequest struct {
	Name string `json:"name" minLength:"1"`
	Bio  string `json:"bio,omitempty"`
}

type RegisterContractorRequest struct {
	Name  string `json:"name" minLength:"1"`
	Trade string `json:"trade,omitempty"`
}

type VerifyRequest struct {
	Verified bool `json:"verified"`
}

type AddPropertyRequest struct {
	Address string `json:"address" minLength:"1"`
}

type CreateProjectRequest struct {
	Title        string `json:"title" minLength:"1"`
	ScopeType    string `json:"scope_type" enum:"full_home,partial"`
	ScopeDetails string `json:"scope_details,omitempty"`
	BudgetMin    int64  `json:"budget_min,omitempty"`
	BudgetMax    int64  `json:"budget_max,omitempty"`
	Timeline     string `json:"timeline,omitempty"`
	PropertyID   string `json:"property_id,omitempty"`
}

func (r CreateProjectRequest) input() engine.ProjectInput {
	return engine.ProjectInput{
		Title:        r.Title,
		ScopeType:    domain.ScopeType(r.ScopeType),
		ScopeDetails: r.ScopeDetails,
		BudgetMin:    r.BudgetMin,
		BudgetMax:    r.BudgetMax,
		Timeline:     r.Timeline,
		PropertyID:   r.PropertyID,
	}
}

type UpdateProjectRequest struct {
	Title        *string `json:"title,omitempty"`
	ScopeType    *string `json:"scope_type,omitempty" enum:"full_home,partial"`
	ScopeDetails *string `json:"scope_details,omitempty"`
	BudgetMin    *int64  `json:"budget_min,omitempty"`
	BudgetMax    *int64  `json:"budget_max,omitempty"`
	Timeline     *string `json:"timeline,omitempty"`
	PropertyID   *string `json:"property_id,omitempty"`
}

func (r UpdateProjectRequest) patch() engine.ProjectPatch {
	p := engine.ProjectPatch{
		Title:        r.Title,
		ScopeDetails: r.ScopeDetails,
		BudgetMin:    r.BudgetMin,
		BudgetMax:    r.BudgetMax,
		Timeline:     r.Timeline,
		PropertyID:   r.PropertyID,
	}
	if r.ScopeType != nil {
		st := domain.ScopeType(*r.ScopeType)
		p.ScopeType = &st
	}
	return p
}

type ReasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

type SendRequestRequest struct {
	DesignerID string `json:"designer_id" minLength:"1"`
	Message    string `json:"message,omitempty"`
}

type SubmitProposalRequest struct {
	Scope         string            `json:"scope"`
	Approach      string            `json:"approach,omitempty"`
	TimelineWeeks int               `json:"timeline_weeks"`
	CostEstimate  int64             `json:"cost_estimate"`
	CostBreakdown []domain.CostItem `json:"cost_breakdown,omitempty"`
}

func (r SubmitProposalRequest) terms() engine.ProposalTerms {
	return engine.ProposalTerms{
		Scope:         r.Scope,
		Approach:      r.Approach,
		TimelineWeeks: r.TimelineWeeks,
		CostEstimate:  r.CostEstimate,
		CostBreakdown: r.CostBreakdown,
	}
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty" enum:"todo,in_progress,completed"`
	DueDate     string `json:"due_date,omitempty" example:"2026-03-01"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"todo,in_progress,completed"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (r UpdateTaskRequest) patch() engine.TaskPatch {
	p := engine.TaskPatch{Title: r.Title, Description: r.Description, DueDate: r.DueDate}
	if r.Status != nil {
		s := domain.TaskStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type CreateMilestoneRequest struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
}

type UpdateMilestoneRequest struct {
	Title   *string `json:"title,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
	Amount  *int64  `json:"amount,omitempty"`
	Status  *string `json:"status,omitempty" enum:"pending,completed"`
}

func (r UpdateMilestoneRequest) patch() engine.MilestonePatch {
	p := engine.MilestonePatch{Title: r.Title, DueDate: r.DueDate, Amount: r.Amount}
	if r.Status != nil {
		s := domain.MilestoneStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type PaymentRequest struct {
	PaymentStatus string `json:"payment_status" enum:"unpaid,paid"`
}

type CreateCostEstimateRequest struct {
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	EstimatedAmount int64  `json:"estimated_amount"`
	ActualAmount    *int64 `json:"actual_amount,omitempty"`
}

type UpdateCostEstimateRequest struct {
	Category        *string `json:"category,omitempty"`
	Description     *string `json:"description,omitempty"`
	EstimatedAmount *int64  `json:"estimated_amount,omitempty"`
	ActualAmount    *int64  `json:"actual_amount,omitempty"`
	ClearActual     bool    `json:"clear_actual,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Response payloads

type CreatedAPIKeyResponse struct {
	Key domain.APIKey `json:"key"`
	// Secret is shown once and never stored.
	Secret string `json:"secret"`
}
