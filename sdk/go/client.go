package homeworkssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Homeworks HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	// UserID is sent as X-User-Id; only servers started with --allow-user-header accept it.
	UserID     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	ID           string `json:"id"`
	HomeownerID  string `json:"homeowner_id"`
	DesignerID   string `json:"designer_id,omitempty"`
	PropertyID   string `json:"property_id,omitempty"`
	Title        string `json:"title"`
	ScopeType    string `json:"scope_type"`
	ScopeDetails string `json:"scope_details,omitempty"`
	BudgetMin    int64  `json:"budget_min"`
	BudgetMax    int64  `json:"budget_max"`
	Timeline     string `json:"timeline,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// NewProject holds the fields of a project to create.
type NewProject struct {
	Title        string `json:"title"`
	ScopeType    string `json:"scope_type"`
	ScopeDetails string `json:"scope_details,omitempty"`
	BudgetMin    int64  `json:"budget_min,omitempty"`
	BudgetMax    int64  `json:"budget_max,omitempty"`
	Timeline     string `json:"timeline,omitempty"`
	PropertyID   string `json:"property_id,omitempty"`
}

// Request is an invitation from a project to a designer.
type Request struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	DesignerID string `json:"designer_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type CostItem struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// Proposal is a designer's bid.
type Proposal struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id"`
	DesignerID    string     `json:"designer_id"`
	Scope         string     `json:"scope"`
	Approach      string     `json:"approach,omitempty"`
	TimelineWeeks int        `json:"timeline_weeks"`
	CostEstimate  int64      `json:"cost_estimate"`
	CostBreakdown []CostItem `json:"cost_breakdown,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     string     `json:"created_at"`
}

// ProposalTerms are submitted in answer to a request.
type ProposalTerms struct {
	Scope         string     `json:"scope"`
	Approach      string     `json:"approach,omitempty"`
	TimelineWeeks int        `json:"timeline_weeks"`
	CostEstimate  int64      `json:"cost_estimate"`
	CostBreakdown []CostItem `json:"cost_breakdown,omitempty"`
}

// Acceptance is returned by AcceptProposal.
type Acceptance struct {
	Proposal          Proposal `json:"proposal"`
	Request           Request  `json:"request"`
	Project           Project  `json:"project"`
	RejectedProposals []string `json:"rejected_proposals"`
	RejectedRequests  []string `json:"rejected_requests"`
}

// ActivityEntry represents one line of a project's audit trail.
type ActivityEntry struct {
	ID        int64          `json:"id"`
	ProjectID string         `json:"project_id"`
	UserID    string         `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail"`
	CreatedAt string         `json:"created_at"`
}

// ActivityPage wraps activity listings; pass Next as before to continue.
type ActivityPage struct {
	Entries []ActivityEntry `json:"entries"`
	Next    int64           `json:"next,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a draft project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, in NewProject) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", in, &resp)
	return resp, err
}

// GetProject fetches a project visible to the caller.
func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// CompleteProject marks an in-progress project completed.
func (c *Client) CompleteProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("projects/%s/complete", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// CancelProject cancels a project that has not completed.
func (c *Client) CancelProject(ctx context.Context, id, reason string) (Project, error) {
	var body any
	if reason != "" {
		body = map[string]any{"reason": reason}
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("projects/%s/cancel", url.PathEscape(id)), body, &resp)
	return resp, err
}

// SendRequest invites a designer to bid on a project.
func (c *Client) SendRequest(ctx context.Context, projectID, designerID, message string) (Request, error) {
	body := map[string]any{
		"designer_id": designerID,
		"message":     message,
	}
	var resp Request
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("projects/%s/requests", url.PathEscape(projectID)), body, &resp)
	return resp, err
}

// Inbox lists requests addressed to the calling designer.
func (c *Client) Inbox(ctx context.Context, status string) ([]Request, error) {
	endpoint := "requests"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Request
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// DeclineRequest declines a pending request addressed to the caller.
func (c *Client) DeclineRequest(ctx context.Context, requestID string) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("requests/%s/decline", url.PathEscape(requestID)), nil, &resp)
	return resp, err
}

// SubmitProposal answers a request.
func (c *Client) SubmitProposal(ctx context.Context, requestID string, terms ProposalTerms) (Proposal, error) {
	var resp Proposal
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("requests/%s/proposal", url.PathEscape(requestID)), terms, &resp)
	return resp, err
}

// Proposals lists the proposals a project has received.
func (c *Client) Proposals(ctx context.Context, projectID string) ([]Proposal, error) {
	var resp []Proposal
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%s/proposals", url.PathEscape(projectID)), nil, &resp)
	return resp, err
}

// AcceptProposal accepts a proposal, assigning its designer to the project.
func (c *Client) AcceptProposal(ctx context.Context, proposalID string) (Acceptance, error) {
	var resp Acceptance
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("proposals/%s/accept", url.PathEscape(proposalID)), nil, &resp)
	return resp, err
}

// RejectProposal rejects a submitted proposal.
func (c *Client) RejectProposal(ctx context.Context, proposalID, reason string) (Proposal, error) {
	var body any
	if reason != "" {
		body = map[string]any{"reason": reason}
	}
	var resp Proposal
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("proposals/%s/reject", url.PathEscape(proposalID)), body, &resp)
	return resp, err
}

// Activity returns a page of a project's activity, newest first.
func (c *Client) Activity(ctx context.Context, projectID string, limit int, before int64) (ActivityPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before > 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}
	endpoint := fmt.Sprintf("projects/%s/activity", url.PathEscape(projectID))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp ActivityPage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.UserID != "":
		req.Header.Set("X-User-Id", c.UserID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
