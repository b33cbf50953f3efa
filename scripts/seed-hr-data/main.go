// seed-hr-data loads a YAML demo dataset into the application database
// through the repositories. It replaces the upstream sync for local
// development and demos: run it once against an empty database and the
// API has employees, departments, projects, goals, and skills to answer
// questions about.
//
// Usage: go run ./scripts/seed-hr-data [-file scripts/seed-hr-data/dataset.yaml]
//
// Database connection: config.yaml plus the PG* environment variables,
// the same configuration the server reads. Migrations run first, so a
// fresh database works.
//
// Flags:
//
//	-file  Path to the dataset YAML (default: scripts/seed-hr-data/dataset.yaml)
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
)

// dataset is the YAML file shape. Dates use the 2006-01-02 layout.
type dataset struct {
	Departments []struct {
		DepartmentID   string  `yaml:"department_id"`
		Name           string  `yaml:"name"`
		Description    string  `yaml:"description"`
		HeadEmployeeID *string `yaml:"head_employee_id"`
	} `yaml:"departments"`

	Employees []struct {
		EmployeeID        string   `yaml:"employee_id"`
		FullName          string   `yaml:"full_name"`
		Email             string   `yaml:"email"`
		DepartmentID      *string  `yaml:"department_id"`
		Designation       string   `yaml:"designation"`
		Salary            *float64 `yaml:"salary"`
		ManagerEmployeeID *string  `yaml:"manager_employee_id"`
		Blocked           bool     `yaml:"blocked"`
		Active            *bool    `yaml:"active"`
	} `yaml:"employees"`

	Projects []struct {
		ProjectID         string  `yaml:"project_id"`
		Name              string  `yaml:"name"`
		Description       string  `yaml:"description"`
		Status            string  `yaml:"status"`
		ClientName        string  `yaml:"client_name"`
		ProjectType       string  `yaml:"project_type"`
		ProjectManager    string  `yaml:"project_manager"`
		ManagerEmployeeID *string `yaml:"manager_employee_id"`
		StartDate         string  `yaml:"start_date"`
		EndDate           string  `yaml:"end_date"`
	} `yaml:"projects"`

	Goals []struct {
		GoalID               string   `yaml:"goal_id"`
		Title                string   `yaml:"title"`
		Description          string   `yaml:"description"`
		AssignedToEmployeeID *string  `yaml:"assigned_to_employee_id"`
		AssignedByEmployeeID *string  `yaml:"assigned_by_employee_id"`
		Status               string   `yaml:"status"`
		ProgressPercentage   float64  `yaml:"progress_percentage"`
		Weight               *float64 `yaml:"weight"`
		Priority             string   `yaml:"priority"`
		Category             string   `yaml:"category"`
		TargetDate           string   `yaml:"target_date"`
	} `yaml:"goals"`

	Skills []struct {
		SkillID     string `yaml:"skill_id"`
		Name        string `yaml:"name"`
		Category    string `yaml:"category"`
		Description string `yaml:"description"`
	} `yaml:"skills"`

	Assignments []struct {
		EmployeeID           string  `yaml:"employee_id"`
		ProjectID            string  `yaml:"project_id"`
		Role                 string  `yaml:"role"`
		AllocationPercentage float64 `yaml:"allocation_percentage"`
		StartDate            string  `yaml:"start_date"`
	} `yaml:"assignments"`

	EmployeeSkills []struct {
		EmployeeID        string  `yaml:"employee_id"`
		SkillID           string  `yaml:"skill_id"`
		ProficiencyLevel  string  `yaml:"proficiency_level"`
		YearsOfExperience float64 `yaml:"years_of_experience"`
		Certified         bool    `yaml:"certified"`
	} `yaml:"employee_skills"`
}

func main() {
	file := flag.String("file", "scripts/seed-hr-data/dataset.yaml", "Path to the dataset YAML")
	flag.Parse()

	if err := run(*file); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	var data dataset
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse dataset: %w", err)
	}

	cfg, err := config.Load("seed")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := zap.NewNop()

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	_ = migrationDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: 5,
	})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	return seed(ctx, db, &data)
}

// seed writes the dataset in dependency order: referenced entities
// before the rows that point at them.
func seed(ctx context.Context, db *database.DB, data *dataset) error {
	departments := make([]models.Department, 0, len(data.Departments))
	for _, d := range data.Departments {
		departments = append(departments, models.Department{
			DepartmentID:   d.DepartmentID,
			Name:           d.Name,
			Description:    d.Description,
			HeadEmployeeID: d.HeadEmployeeID,
		})
	}
	n, err := repositories.NewDepartmentRepository(db).UpsertBatch(ctx, departments)
	if err != nil {
		return fmt.Errorf("failed to seed departments: %w", err)
	}
	fmt.Printf("departments: %d\n", n)

	employees := make([]models.Employee, 0, len(data.Employees))
	for _, e := range data.Employees {
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		employees = append(employees, models.Employee{
			EmployeeID:        e.EmployeeID,
			FullName:          e.FullName,
			Email:             e.Email,
			DepartmentID:      e.DepartmentID,
			Designation:       e.Designation,
			Salary:            e.Salary,
			ManagerEmployeeID: e.ManagerEmployeeID,
			Blocked:           e.Blocked,
			Active:            active,
		})
	}
	n, err = repositories.NewEmployeeRepository(db).UpsertBatch(ctx, employees)
	if err != nil {
		return fmt.Errorf("failed to seed employees: %w", err)
	}
	fmt.Printf("employees: %d\n", n)

	projectRepo := repositories.NewProjectRepository(db)
	projects := make([]models.Project, 0, len(data.Projects))
	for _, p := range data.Projects {
		projects = append(projects, models.Project{
			ProjectID:         p.ProjectID,
			Name:              p.Name,
			Description:       p.Description,
			Status:            p.Status,
			ClientName:        p.ClientName,
			ProjectType:       p.ProjectType,
			ProjectManager:    p.ProjectManager,
			ManagerEmployeeID: p.ManagerEmployeeID,
			StartDate:         parseDate(p.StartDate),
			EndDate:           parseDate(p.EndDate),
		})
	}
	n, err = projectRepo.UpsertBatch(ctx, projects)
	if err != nil {
		return fmt.Errorf("failed to seed projects: %w", err)
	}
	fmt.Printf("projects: %d\n", n)

	goals := make([]models.Goal, 0, len(data.Goals))
	for _, g := range data.Goals {
		goals = append(goals, models.Goal{
			GoalID:               g.GoalID,
			Title:                g.Title,
			Description:          g.Description,
			AssignedToEmployeeID: g.AssignedToEmployeeID,
			AssignedByEmployeeID: g.AssignedByEmployeeID,
			Status:               g.Status,
			ProgressPercentage:   g.ProgressPercentage,
			Weight:               g.Weight,
			Priority:             g.Priority,
			Category:             g.Category,
			TargetDate:           parseDate(g.TargetDate),
		})
	}
	n, err = repositories.NewGoalRepository(db).UpsertBatch(ctx, goals)
	if err != nil {
		return fmt.Errorf("failed to seed goals: %w", err)
	}
	fmt.Printf("goals: %d\n", n)

	skillRepo := repositories.NewSkillRepository(db)
	skills := make([]models.Skill, 0, len(data.Skills))
	for _, s := range data.Skills {
		skills = append(skills, models.Skill{
			SkillID:     s.SkillID,
			Name:        s.Name,
			Category:    s.Category,
			Description: s.Description,
		})
	}
	n, err = skillRepo.UpsertBatch(ctx, skills)
	if err != nil {
		return fmt.Errorf("failed to seed skills: %w", err)
	}
	fmt.Printf("skills: %d\n", n)

	assignments := make([]models.EmployeeProject, 0, len(data.Assignments))
	for _, a := range data.Assignments {
		assignments = append(assignments, models.EmployeeProject{
			EmployeeID:           a.EmployeeID,
			ProjectID:            a.ProjectID,
			Role:                 a.Role,
			AllocationPercentage: a.AllocationPercentage,
			StartDate:            parseDate(a.StartDate),
		})
	}
	n, err = projectRepo.UpsertAssignments(ctx, assignments)
	if err != nil {
		return fmt.Errorf("failed to seed project assignments: %w", err)
	}
	fmt.Printf("assignments: %d\n", n)

	links := make([]models.EmployeeSkill, 0, len(data.EmployeeSkills))
	for _, l := range data.EmployeeSkills {
		links = append(links, models.EmployeeSkill{
			EmployeeID:        l.EmployeeID,
			SkillID:           l.SkillID,
			ProficiencyLevel:  l.ProficiencyLevel,
			YearsOfExperience: l.YearsOfExperience,
			Certified:         l.Certified,
		})
	}
	n, err = skillRepo.UpsertEmployeeSkills(ctx, links)
	if err != nil {
		return fmt.Errorf("failed to seed employee skills: %w", err)
	}
	fmt.Printf("employee skills: %d\n", n)

	return nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skipping unparseable date %q\n", s)
		return nil
	}
	return &t
}
