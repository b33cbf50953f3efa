package services

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/hrsource"
	"github.com/crewstack/crewstack-engine/pkg/jsonutil"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
)

// HRSourceClient is the subset of the upstream client the sync consumes.
type HRSourceClient interface {
	Employees(ctx context.Context) ([]hrsource.EmployeeRecord, error)
	Departments(ctx context.Context) ([]hrsource.DepartmentRecord, error)
	Goals(ctx context.Context) ([]hrsource.GoalRecord, error)
	Projects(ctx context.Context) ([]hrsource.ProjectRecord, error)
	Skills(ctx context.Context) ([]hrsource.SkillRecord, error)
	EmployeeProjects(ctx context.Context) ([]hrsource.EmployeeProjectRecord, error)
	EmployeeSkills(ctx context.Context) ([]hrsource.EmployeeSkillRecord, error)
}

// SyncService mirrors the upstream HR system into the local database.
type SyncService interface {
	// RunFull synchronizes every entity type, then rebuilds the semantic
	// index. Each entity gets its own sync log row; a failed entity is
	// recorded there and surfaces as a zero count without aborting the
	// run. Returns apperrors.ErrAlreadyRunning when a run is in flight.
	RunFull(ctx context.Context) (models.SyncResult, error)
}

type syncService struct {
	source         HRSourceClient
	employeeRepo   repositories.EmployeeRepository
	departmentRepo repositories.DepartmentRepository
	goalRepo       repositories.GoalRepository
	projectRepo    repositories.ProjectRepository
	skillRepo      repositories.SkillRepository
	syncLogRepo    repositories.SyncLogRepository
	index          SemanticIndexService
	cfg            config.SyncConfig
	logger         *zap.Logger
	running        atomic.Bool
}

// NewSyncService creates a sync service.
func NewSyncService(
	source HRSourceClient,
	employeeRepo repositories.EmployeeRepository,
	departmentRepo repositories.DepartmentRepository,
	goalRepo repositories.GoalRepository,
	projectRepo repositories.ProjectRepository,
	skillRepo repositories.SkillRepository,
	syncLogRepo repositories.SyncLogRepository,
	index SemanticIndexService,
	cfg config.SyncConfig,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		source:         source,
		employeeRepo:   employeeRepo,
		departmentRepo: departmentRepo,
		goalRepo:       goalRepo,
		projectRepo:    projectRepo,
		skillRepo:      skillRepo,
		syncLogRepo:    syncLogRepo,
		index:          index,
		cfg:            cfg,
		logger:         logger,
	}
}

// RunFull synchronizes all entities in dependency order. Employees come
// first because goals and assignments reference them.
func (s *syncService) RunFull(ctx context.Context) (models.SyncResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperrors.ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.logger.Info("Starting full HR sync")
	result := models.SyncResult{}

	result["employees"] = s.runEntitySync(ctx, "employees", s.syncEmployees)
	result["departments"] = s.runEntitySync(ctx, "departments", s.syncDepartments)

	employeeIDs := s.knownEmployeeIDs(ctx)
	result["goals"] = s.runEntitySync(ctx, "goals", func(ctx context.Context) (int, error) {
		return s.syncGoals(ctx, employeeIDs)
	})
	result["projects"] = s.runEntitySync(ctx, "projects", s.syncProjects)
	result["skills"] = s.runEntitySync(ctx, "skills", s.syncSkills)
	result["employee_projects"] = s.runEntitySync(ctx, "employee_projects", func(ctx context.Context) (int, error) {
		return s.syncEmployeeProjects(ctx, employeeIDs)
	})
	result["employee_skills"] = s.runEntitySync(ctx, "employee_skills", func(ctx context.Context) (int, error) {
		return s.syncEmployeeSkills(ctx, employeeIDs)
	})

	if s.index.Enabled() {
		result["semantic_index"] = s.runEntitySync(ctx, "semantic_index", s.index.RebuildAll)
	}

	s.logger.Info("Full HR sync completed", zap.Any("records", map[string]int(result)))
	return result, nil
}

// runEntitySync wraps one entity sync in its log row. A failure is
// recorded on the row and surfaces as a zero count, so one entity cannot
// abort the rest of the run.
func (s *syncService) runEntitySync(ctx context.Context, syncType string, fn func(context.Context) (int, error)) int {
	logID, logErr := s.syncLogRepo.Start(ctx, syncType)
	if logErr != nil {
		s.logger.Warn("Failed to open sync log row",
			zap.String("sync_type", syncType), zap.Error(logErr))
	}

	count, err := fn(ctx)
	status := models.SyncStatusSuccess
	errorMessage := ""
	if err != nil {
		status = models.SyncStatusFailed
		errorMessage = err.Error()
		count = 0
		s.logger.Error("Entity sync failed",
			zap.String("sync_type", syncType), zap.Error(err))
	} else {
		s.logger.Info("Entity sync completed",
			zap.String("sync_type", syncType), zap.Int("records", count))
	}

	if logErr == nil {
		if err := s.syncLogRepo.Finish(ctx, logID, status, count, errorMessage); err != nil {
			s.logger.Warn("Failed to close sync log row",
				zap.String("sync_type", syncType), zap.Error(err))
		}
	}
	return count
}

func (s *syncService) syncEmployees(ctx context.Context) (int, error) {
	records, err := s.source.Employees(ctx)
	if err != nil {
		return 0, err
	}

	employees := make([]models.Employee, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.EmployeeID.String())
		if id == "" {
			continue
		}
		salary := rec.Salary.Float64()
		employees = append(employees, models.Employee{
			EmployeeID:        id,
			FullName:          rec.Account.FullName.String(),
			Email:             rec.Account.Email.String(),
			DepartmentID:      optionalID(rec.DepartmentID),
			Designation:       rec.Designation.String(),
			Salary:            &salary,
			ManagerEmployeeID: optionalID(rec.ManagerEmployeeID),
			Blocked:           rec.Account.Blocked.Bool(),
			Active:            rec.Account.IsActive(),
			LastLogin:         rec.Account.LastLogin.Ptr(),
		})
	}
	return s.employeeRepo.UpsertBatch(ctx, employees)
}

func (s *syncService) syncDepartments(ctx context.Context) (int, error) {
	records, err := s.source.Departments(ctx)
	if err != nil {
		return 0, err
	}

	departments := make([]models.Department, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.DepartmentID.String())
		if id == "" {
			continue
		}
		departments = append(departments, models.Department{
			DepartmentID:   id,
			Name:           rec.Name.String(),
			Description:    rec.Description.String(),
			HeadEmployeeID: optionalID(rec.HeadEmployeeID),
		})
	}
	return s.departmentRepo.UpsertBatch(ctx, departments)
}

func (s *syncService) syncGoals(ctx context.Context, employeeIDs map[string]struct{}) (int, error) {
	records, err := s.source.Goals(ctx)
	if err != nil {
		return 0, err
	}

	goals := make([]models.Goal, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.GoalID.String())
		if id == "" {
			continue
		}
		var weight *float64
		if rec.Weight != nil {
			w := rec.Weight.Float64()
			weight = &w
		}
		goals = append(goals, models.Goal{
			GoalID:               id,
			Title:                rec.Title.String(),
			Description:          rec.Description.String(),
			AssignedToEmployeeID: knownRef(rec.AssignedToEmployeeID, employeeIDs),
			AssignedByEmployeeID: knownRef(rec.AssignedByEmployeeID, employeeIDs),
			Status:               defaultIfBlank(rec.Status, models.GoalStatusPending),
			ProgressPercentage:   rec.ProgressPercentage.Float64(),
			Weight:               weight,
			Priority:             s.goalPriority(rec),
			Category:             rec.Category.String(),
			TargetDate:           rec.TargetDate.Ptr(),
		})
	}
	return s.goalRepo.UpsertBatch(ctx, goals)
}

// goalPriority keeps the upstream label when one arrives. Records that
// carry only a numeric weight are bucketed by the configured thresholds,
// and records with neither default to Medium.
func (s *syncService) goalPriority(rec hrsource.GoalRecord) string {
	if p := strings.TrimSpace(rec.Priority.String()); p != "" {
		return p
	}
	if rec.Weight == nil {
		return models.GoalPriorityMedium
	}
	w := rec.Weight.Float64()
	switch {
	case w >= float64(s.cfg.GoalPriorityHighMin):
		return models.GoalPriorityHigh
	case w >= float64(s.cfg.GoalPriorityMediumMin):
		return models.GoalPriorityMedium
	default:
		return models.GoalPriorityLow
	}
}

func (s *syncService) syncProjects(ctx context.Context) (int, error) {
	records, err := s.source.Projects(ctx)
	if err != nil {
		return 0, err
	}

	projects := make([]models.Project, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.ProjectID.String())
		if id == "" {
			continue
		}
		projects = append(projects, models.Project{
			ProjectID:         id,
			Name:              rec.Name.String(),
			Description:       rec.Description.String(),
			Status:            defaultIfBlank(rec.Status, models.ProjectStatusActive),
			ClientName:        rec.ClientName.String(),
			ProjectType:       rec.ProjectType.String(),
			ProjectManager:    rec.ProjectManager.String(),
			ManagerEmployeeID: optionalID(rec.ManagerEmployeeID),
			StartDate:         rec.StartDate.Ptr(),
			EndDate:           rec.EndDate.Ptr(),
		})
	}
	return s.projectRepo.UpsertBatch(ctx, projects)
}

func (s *syncService) syncSkills(ctx context.Context) (int, error) {
	records, err := s.source.Skills(ctx)
	if err != nil {
		return 0, err
	}

	skills := make([]models.Skill, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.SkillID.String())
		if id == "" {
			continue
		}
		skills = append(skills, models.Skill{
			SkillID:     id,
			Name:        rec.Name.String(),
			Category:    rec.Category.String(),
			Description: rec.Description.String(),
		})
	}
	return s.skillRepo.UpsertBatch(ctx, skills)
}

func (s *syncService) syncEmployeeProjects(ctx context.Context, employeeIDs map[string]struct{}) (int, error) {
	records, err := s.source.EmployeeProjects(ctx)
	if err != nil {
		return 0, err
	}
	projectIDs, err := s.knownProjectIDs(ctx)
	if err != nil {
		return 0, err
	}

	skipped := 0
	links := make([]models.EmployeeProject, 0, len(records))
	for _, rec := range records {
		empID := strings.TrimSpace(rec.EmployeeID.String())
		projID := strings.TrimSpace(rec.ProjectID.String())
		if empID == "" || projID == "" {
			continue
		}
		if !contains(employeeIDs, empID) || !contains(projectIDs, projID) {
			skipped++
			continue
		}
		links = append(links, models.EmployeeProject{
			EmployeeID:           empID,
			ProjectID:            projID,
			Role:                 rec.Role.String(),
			AllocationPercentage: rec.AllocationPercentage.Float64(),
			StartDate:            rec.StartDate.Ptr(),
			EndDate:              rec.EndDate.Ptr(),
		})
	}
	if skipped > 0 {
		s.logger.Warn("Skipped project assignments with unknown references",
			zap.Int("skipped", skipped))
	}
	return s.projectRepo.UpsertAssignments(ctx, links)
}

func (s *syncService) syncEmployeeSkills(ctx context.Context, employeeIDs map[string]struct{}) (int, error) {
	records, err := s.source.EmployeeSkills(ctx)
	if err != nil {
		return 0, err
	}
	skillIDs, err := s.knownSkillIDs(ctx)
	if err != nil {
		return 0, err
	}

	skipped := 0
	links := make([]models.EmployeeSkill, 0, len(records))
	for _, rec := range records {
		empID := strings.TrimSpace(rec.EmployeeID.String())
		skillID := strings.TrimSpace(rec.SkillID.String())
		if empID == "" || skillID == "" {
			continue
		}
		if !contains(employeeIDs, empID) || !contains(skillIDs, skillID) {
			skipped++
			continue
		}
		links = append(links, models.EmployeeSkill{
			EmployeeID:        empID,
			SkillID:           skillID,
			ProficiencyLevel:  defaultIfBlank(rec.ProficiencyLevel, "Beginner"),
			YearsOfExperience: rec.YearsOfExperience.Float64(),
			LastUsed:          rec.LastUsed.Ptr(),
			Certified:         rec.Certified.Bool(),
		})
	}
	if skipped > 0 {
		s.logger.Warn("Skipped skill assignments with unknown references",
			zap.Int("skipped", skipped))
	}
	return s.skillRepo.UpsertEmployeeSkills(ctx, links)
}

// knownEmployeeIDs reads the set of employee business keys present
// locally. Goals and assignments are reconciled against it because
// upstream records keep referencing employees after their deletion.
func (s *syncService) knownEmployeeIDs(ctx context.Context) map[string]struct{} {
	names, err := s.employeeRepo.ListNames(ctx)
	if err != nil {
		s.logger.Warn("Failed to list local employees for reference checks", zap.Error(err))
		return map[string]struct{}{}
	}
	ids := make(map[string]struct{}, len(names))
	for _, n := range names {
		ids[n.EmployeeID] = struct{}{}
	}
	return ids
}

func (s *syncService) knownProjectIDs(ctx context.Context) (map[string]struct{}, error) {
	projects, err := s.projectRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		ids[p.ProjectID] = struct{}{}
	}
	return ids, nil
}

func (s *syncService) knownSkillIDs(ctx context.Context) (map[string]struct{}, error) {
	skills, err := s.skillRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(skills))
	for _, sk := range skills {
		ids[sk.SkillID] = struct{}{}
	}
	return ids, nil
}

// optionalID converts a blank upstream reference to NULL.
func optionalID(v jsonutil.FlexString) *string {
	id := strings.TrimSpace(v.String())
	if id == "" {
		return nil
	}
	return &id
}

// knownRef keeps an employee reference only when that employee exists
// locally. The goals table enforces these references, so a stale one
// would reject the whole batch.
func knownRef(v jsonutil.FlexString, known map[string]struct{}) *string {
	id := strings.TrimSpace(v.String())
	if id == "" {
		return nil
	}
	if _, ok := known[id]; !ok {
		return nil
	}
	return &id
}

func defaultIfBlank(v jsonutil.FlexString, fallback string) string {
	if s := strings.TrimSpace(v.String()); s != "" {
		return s
	}
	return fallback
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
