package models

import "time"

// Department is a synced organizational unit. HeadEmployeeID references
// employees.employee_id.
type Department struct {
	ID             int64     `json:"id"`
	DepartmentID   string    `json:"department_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	HeadEmployeeID *string   `json:"head_employee_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
