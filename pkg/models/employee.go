package models

import "time"

// Employee is a synced person record. EmployeeID is the upstream business
// key (e.g. "LCL16110165"); ManagerEmployeeID and DepartmentID reference
// business keys of other rows, never surrogate ids.
type Employee struct {
	ID                int64      `json:"id"`
	EmployeeID        string     `json:"employee_id"`
	FullName          string     `json:"full_name"`
	Email             string     `json:"email"`
	DepartmentID      *string    `json:"department_id,omitempty"`
	Designation       string     `json:"designation"`
	Salary            *float64   `json:"salary,omitempty"`
	ManagerEmployeeID *string    `json:"manager_employee_id,omitempty"`
	Blocked           bool       `json:"blocked"`
	Active            bool       `json:"active"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EmployeeName is the minimal projection used for in-memory fuzzy name
// resolution: the business key plus the display name.
type EmployeeName struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
}
