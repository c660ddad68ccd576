package domain

type ProjectStatus string

const (
	ProjectDraft           ProjectStatus = "draft"
	ProjectSeekingDesigner ProjectStatus = "seeking_designer"
	ProjectInProgress      ProjectStatus = "in_progress"
	ProjectCompleted       ProjectStatus = "completed"
	ProjectCancelled       ProjectStatus = "cancelled"
)

// ProjectStatuses lists every project status in lifecycle order.
var ProjectStatuses = []ProjectStatus{
	ProjectDraft, ProjectSeekingDesigner, ProjectInProgress, ProjectCompleted, ProjectCancelled,
}

type RequestStatus string

const (
	RequestPending           RequestStatus = "pending"
	RequestProposalSubmitted RequestStatus = "proposal_submitted"
	RequestAccepted          RequestStatus = "accepted"
	RequestRejected          RequestStatus = "rejected"
)

var RequestStatuses = []RequestStatus{
	RequestPending, RequestProposalSubmitted, RequestAccepted, RequestRejected,
}

type ProposalStatus string

const (
	ProposalSubmitted ProposalStatus = "submitted"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
)

var ProposalStatuses = []ProposalStatus{ProposalSubmitted, ProposalAccepted, ProposalRejected}

type ScopeType string

const (
	ScopeFullHome ScopeType = "full_home"
	ScopePartial  ScopeType = "partial"
)

func (s ScopeType) Valid() bool {
	return s == ScopeFullHome || s == ScopePartial
}

type Project struct {
	ID           string        `json:"id"`
	HomeownerID  string        `json:"homeowner_id"`
	DesignerID   *string       `json:"designer_id,omitempty"`
	PropertyID   *string       `json:"property_id,omitempty"`
	Title        string        `json:"title"`
	ScopeType    ScopeType     `json:"scope_type" enum:"full_home,partial"`
	ScopeDetails string        `json:"scope_details,omitempty"`
	BudgetMin    int64         `json:"budget_min"`
	BudgetMax    int64         `json:"budget_max"`
	Timeline     string        `json:"timeline,omitempty"`
	Status       ProjectStatus `json:"status" enum:"draft,seeking_designer,in_progress,completed,cancelled"`
	CreatedAt    string        `json:"created_at" format:"date-time"`
	UpdatedAt    string        `json:"updated_at" format:"date-time"`
}

type Request struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"project_id"`
	DesignerID string        `json:"designer_id"`
	Status     RequestStatus `json:"status" enum:"pending,proposal_submitted,accepted,rejected"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  string        `json:"created_at" format:"date-time"`
	UpdatedAt  string        `json:"updated_at" format:"date-time"`
}

type CostItem struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

type Proposal struct {
	ID            string         `json:"id"`
	RequestID     string         `json:"request_id"`
	DesignerID    string         `json:"designer_id"`
	Scope         string         `json:"scope"`
	Approach      string         `json:"approach,omitempty"`
	TimelineWeeks int            `json:"timeline_weeks"`
	CostEstimate  int64          `json:"cost_estimate"`
	CostBreakdown []CostItem     `json:"cost_breakdown,omitempty"`
	Status        ProposalStatus `json:"status" enum:"submitted,accepted,rejected"`
	CreatedAt     string         `json:"created_at" format:"date-time"`
	UpdatedAt     string         `json:"updated_at" format:"date-time"`
}

// ActivityEntry is an immutable audit record. UserID is nil for system entries.
type ActivityEntry struct {
	ID        int64          `json:"id"`
	ProjectID string         `json:"project_id"`
	UserID    *string        `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail"`
	CreatedAt string         `json:"created_at" format:"date-time"`
}

type Homeowner struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Designer struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Bio       string `json:"bio,omitempty"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Contractor struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Trade     string `json:"trade,omitempty"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Property struct {
	ID          string `json:"id"`
	HomeownerID string `json:"homeowner_id"`
	Address     string `json:"address"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// APIKey authenticates a user against the HTTP API. Only the hash is stored.
type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
