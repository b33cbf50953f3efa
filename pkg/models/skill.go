package models

import "time"

// Skill is a synced skill catalog entry.
type Skill struct {
	ID          int64     `json:"id"`
	SkillID     string    `json:"skill_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmployeeSkill links an employee to a skill with proficiency details.
type EmployeeSkill struct {
	EmployeeID        string     `json:"employee_id"`
	SkillID           string     `json:"skill_id"`
	ProficiencyLevel  string     `json:"proficiency_level"`
	YearsOfExperience float64    `json:"years_of_experience"`
	LastUsed          *time.Time `json:"last_used,omitempty"`
	Certified         bool       `json:"certified"`
	CreatedAt         time.Time  `json:"created_at"`
}
