package hrsource

import "github.com/crewstack/crewstack-engine/pkg/jsonutil"

// Upstream records use the HR system's PascalCase field names and the
// jsonutil coercion types, because exports from that system serialize
// numbers as strings and dates as either ISO strings or epoch
// milliseconds depending on the entity.

// AccountRecord is the nested login account block on an employee record.
type AccountRecord struct {
	FullName  jsonutil.FlexString `json:"FullName"`
	Email     jsonutil.FlexString `json:"Email"`
	Blocked   jsonutil.FlexBool   `json:"Blocked"`
	LastLogin jsonutil.FlexTime   `json:"LastLogin"`

	// Active is a pointer because the upstream omits the flag for
	// enabled accounts. A missing value means active.
	Active *jsonutil.FlexBool `json:"Active"`
}

// IsActive resolves the tri-state Active flag.
func (a AccountRecord) IsActive() bool {
	if a.Active == nil {
		return true
	}
	return a.Active.Bool()
}

// EmployeeRecord is one employee as served by the upstream employee endpoint.
type EmployeeRecord struct {
	EmployeeID        jsonutil.FlexString `json:"EmployeeID"`
	Account           AccountRecord       `json:"Account"`
	DepartmentID      jsonutil.FlexString `json:"DepartmentID"`
	Designation       jsonutil.FlexString `json:"Designation"`
	Salary            jsonutil.FlexFloat  `json:"Salary"`
	ManagerEmployeeID jsonutil.FlexString `json:"ManagerEmployeeID"`
}

// DepartmentRecord is one department as served upstream.
type DepartmentRecord struct {
	DepartmentID   jsonutil.FlexString `json:"DepartmentID"`
	Name           jsonutil.FlexString `json:"Name"`
	Description    jsonutil.FlexString `json:"Description"`
	HeadEmployeeID jsonutil.FlexString `json:"HeadEmployeeID"`
}

// GoalRecord is one goal as served upstream. Weight is a pointer so a
// record without a weight can be told apart from a zero weight when the
// priority label is derived.
type GoalRecord struct {
	GoalID               jsonutil.FlexString `json:"GoalID"`
	AssignedToEmployeeID jsonutil.FlexString `json:"AssignedToEmployeeID"`
	AssignedByEmployeeID jsonutil.FlexString `json:"AssignedByEmployeeID"`
	Title                jsonutil.FlexString `json:"Title"`
	Description          jsonutil.FlexString `json:"Description"`
	Status               jsonutil.FlexString `json:"Status"`
	ProgressPercentage   jsonutil.FlexFloat  `json:"ProgressPercentage"`
	Weight               *jsonutil.FlexFloat `json:"Weight"`
	Priority             jsonutil.FlexString `json:"Priority"`
	Category             jsonutil.FlexString `json:"Category"`
	TargetDate           jsonutil.FlexTime   `json:"TargetDate"`
}

// ProjectRecord is one project as served upstream.
type ProjectRecord struct {
	ProjectID         jsonutil.FlexString `json:"ProjectID"`
	Name              jsonutil.FlexString `json:"Name"`
	Description       jsonutil.FlexString `json:"Description"`
	Status            jsonutil.FlexString `json:"Status"`
	ClientName        jsonutil.FlexString `json:"ClientName"`
	ProjectType       jsonutil.FlexString `json:"ProjectType"`
	ProjectManager    jsonutil.FlexString `json:"ProjectManager"`
	ManagerEmployeeID jsonutil.FlexString `json:"ManagerEmployeeID"`
	StartDate         jsonutil.FlexTime   `json:"StartDate"`
	EndDate           jsonutil.FlexTime   `json:"EndDate"`
}

// SkillRecord is one catalog skill as served upstream.
type SkillRecord struct {
	SkillID     jsonutil.FlexString `json:"SkillID"`
	Name        jsonutil.FlexString `json:"Name"`
	Category    jsonutil.FlexString `json:"Category"`
	Description jsonutil.FlexString `json:"Description"`
}

// EmployeeProjectRecord links an employee to a project with an allocation.
type EmployeeProjectRecord struct {
	EmployeeID           jsonutil.FlexString `json:"EmployeeID"`
	ProjectID            jsonutil.FlexString `json:"ProjectID"`
	Role                 jsonutil.FlexString `json:"Role"`
	AllocationPercentage jsonutil.FlexFloat  `json:"AllocationPercentage"`
	StartDate            jsonutil.FlexTime   `json:"StartDate"`
	EndDate              jsonutil.FlexTime   `json:"EndDate"`
}

// EmployeeSkillRecord links an employee to a catalog skill.
type EmployeeSkillRecord struct {
	EmployeeID        jsonutil.FlexString `json:"EmployeeID"`
	SkillID           jsonutil.FlexString `json:"SkillID"`
	ProficiencyLevel  jsonutil.FlexString `json:"ProficiencyLevel"`
	YearsOfExperience jsonutil.FlexFloat  `json:"YearsOfExperience"`
	LastUsed          jsonutil.FlexTime   `json:"LastUsed"`
	Certified         jsonutil.FlexBool   `json:"Certified"`
}
