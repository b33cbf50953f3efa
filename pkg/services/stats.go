package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
)

// StatsService assembles the monitoring snapshot for the stats endpoint.
type StatsService interface {
	// Snapshot returns record counts for every mirrored entity plus
	// question-log aggregates, stamped with the collection time.
	Snapshot(ctx context.Context) (*models.Stats, error)
}

type statsService struct {
	employeeRepo   repositories.EmployeeRepository
	departmentRepo repositories.DepartmentRepository
	goalRepo       repositories.GoalRepository
	projectRepo    repositories.ProjectRepository
	skillRepo      repositories.SkillRepository
	queryLogRepo   repositories.AIQueryLogRepository
	logger         *zap.Logger
}

// NewStatsService creates the stats aggregator.
func NewStatsService(
	employeeRepo repositories.EmployeeRepository,
	departmentRepo repositories.DepartmentRepository,
	goalRepo repositories.GoalRepository,
	projectRepo repositories.ProjectRepository,
	skillRepo repositories.SkillRepository,
	queryLogRepo repositories.AIQueryLogRepository,
	logger *zap.Logger,
) StatsService {
	return &statsService{
		employeeRepo:   employeeRepo,
		departmentRepo: departmentRepo,
		goalRepo:       goalRepo,
		projectRepo:    projectRepo,
		skillRepo:      skillRepo,
		queryLogRepo:   queryLogRepo,
		logger:         logger,
	}
}

func (s *statsService) Snapshot(ctx context.Context) (*models.Stats, error) {
	employees, err := s.employeeRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect employee stats: %w", err)
	}
	departments, err := s.departmentRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count departments: %w", err)
	}
	goals, err := s.goalRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect goal stats: %w", err)
	}
	projects, err := s.projectRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect project stats: %w", err)
	}
	skills, err := s.skillRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count skills: %w", err)
	}
	queries, err := s.queryLogRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect query log stats: %w", err)
	}

	s.logger.Debug("Collected stats snapshot",
		zap.Int("employees", employees.Total),
		zap.Int("departments", departments),
		zap.Int("goals", goals.Total),
		zap.Int("projects", projects.Total),
		zap.Int("skills", skills))

	return &models.Stats{
		Employees:   *employees,
		Departments: departments,
		Goals:       *goals,
		Projects:    *projects,
		Skills:      skills,
		Queries:     *queries,
		Timestamp:   time.Now().UTC(),
	}, nil
}
