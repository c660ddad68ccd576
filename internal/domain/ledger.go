package domain

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneCompleted MilestoneStatus = "completed"
)

func (s MilestoneStatus) Valid() bool {
	return s == MilestonePending || s == MilestoneCompleted
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid
}

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status" enum:"todo,in_progress,completed"`
	DueDate     *string    `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   string     `json:"created_at" format:"date-time"`
	UpdatedAt   string     `json:"updated_at" format:"date-time"`
}

type Milestone struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	Title         string          `json:"title"`
	DueDate       *string         `json:"due_date,omitempty"`
	Amount        int64           `json:"amount"`
	Status        MilestoneStatus `json:"status" enum:"pending,completed"`
	PaymentStatus PaymentStatus   `json:"payment_status" enum:"unpaid,paid"`
	CreatedAt     string          `json:"created_at" format:"date-time"`
	UpdatedAt     string          `json:"updated_at" format:"date-time"`
}

type CostEstimate struct {
	ID              string `json:"id"`
	ProjectID       string `json:"project_id"`
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	EstimatedAmount int64  `json:"estimated_amount"`
	ActualAmount    *int64 `json:"actual_amount,omitempty"`
	CreatedAt       string `json:"created_at" format:"date-time"`
	UpdatedAt       string `json:"updated_at" format:"date-time"`
}
