package models

import "time"

// EmployeeStats breaks down employee counts by account state.
type EmployeeStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Blocked int `json:"blocked"`
}

// GoalStats breaks down goal counts by status.
type GoalStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// ProjectStats breaks down project counts by status.
type ProjectStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// QueryLogStats summarizes the recorded question log.
type QueryLogStats struct {
	Total         int     `json:"total"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// Stats is the record-count snapshot served by the stats endpoint.
type Stats struct {
	Employees   EmployeeStats `json:"employees"`
	Departments int           `json:"departments"`
	Goals       GoalStats     `json:"goals"`
	Projects    ProjectStats  `json:"projects"`
	Skills      int           `json:"skills"`
	Queries     QueryLogStats `json:"queries"`
	Timestamp   time.Time     `json:"timestamp"`
}
