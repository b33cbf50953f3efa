package models

import "time"

// Goal priority labels. Priority comes from the upstream record when set,
// otherwise it is derived from Weight via the configured thresholds.
const (
	GoalPriorityHigh   = "High"
	GoalPriorityMedium = "Medium"
	GoalPriorityLow    = "Low"
)

// Goal statuses observed upstream.
const (
	GoalStatusPending    = "Pending"
	GoalStatusInProgress = "In Progress"
	GoalStatusCompleted  = "Completed"
)

// Goal is a synced performance goal. Both assignment columns reference
// employees.employee_id: AssignedToEmployeeID is the owner,
// AssignedByEmployeeID the person who set the goal.
type Goal struct {
	ID                   int64      `json:"id"`
	GoalID               string     `json:"goal_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	AssignedToEmployeeID *string    `json:"assigned_to_employee_id,omitempty"`
	AssignedByEmployeeID *string    `json:"assigned_by_employee_id,omitempty"`
	Status               string     `json:"status"`
	ProgressPercentage   float64    `json:"progress_percentage"`
	Weight               *float64   `json:"weight,omitempty"`
	Priority             string     `json:"priority"`
	Category             string     `json:"category"`
	TargetDate           *time.Time `json:"target_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
