// Package models contains domain types for crewstack-engine.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProjectStatusActive is the default status for synced projects and the
// one the stats rollup counts as active.
const ProjectStatusActive = "Active"

// Project is a synced engagement. ProjectManager is the display name that
// upstream sends alongside ManagerEmployeeID; both are kept because older
// upstream records carry only the name.
type Project struct {
	ID                int64      `json:"id"`
	ProjectID         string     `json:"project_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	ClientName        string     `json:"client_name"`
	ProjectType       string     `json:"project_type"`
	ProjectManager    string     `json:"project_manager,omitempty"`
	ManagerEmployeeID *string    `json:"manager_employee_id,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EmployeeProject links an employee to a project with an assignment role.
type EmployeeProject struct {
	EmployeeID           string     `json:"employee_id"`
	ProjectID            string     `json:"project_id"`
	Role                 string     `json:"role"`
	AllocationPercentage float64    `json:"allocation_percentage"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// JSONBMap is a map type that handles PostgreSQL JSONB serialization.
type JSONBMap map[string]interface{}

// Value implements driver.Valuer for database serialization.
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for database deserialization.
func (j *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONBMap", value)
	}

	return json.Unmarshal(bytes, j)
}
