package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// SkillRepository defines data access for the synced skill catalog and
// employee proficiency links.
type SkillRepository interface {
	// UpsertBatch inserts or updates skills by business key.
	// Returns the number of rows written.
	UpsertBatch(ctx context.Context, skills []models.Skill) (int, error)

	// UpsertEmployeeSkills inserts or updates employee skill links.
	// Returns the number of rows written.
	UpsertEmployeeSkills(ctx context.Context, links []models.EmployeeSkill) (int, error)

	// ListAll retrieves every skill ordered by business key.
	ListAll(ctx context.Context) ([]models.Skill, error)

	// Count returns the number of catalog skills.
	Count(ctx context.Context) (int, error)
}

// skillRepository implements SkillRepository using PostgreSQL.
type skillRepository struct {
	db *database.DB
}

// NewSkillRepository creates a new skill repository.
func NewSkillRepository(db *database.DB) SkillRepository {
	return &skillRepository{db: db}
}

// UpsertBatch inserts or updates skills by business key.
func (r *skillRepository) UpsertBatch(ctx context.Context, skills []models.Skill) (int, error) {
	if len(skills) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO skills (skill_id, name, category, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (skill_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			description = EXCLUDED.description`

	batch := &pgx.Batch{}
	for _, skill := range skills {
		batch.Queue(query, skill.SkillID, skill.Name, skill.Category, skill.Description)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range skills {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert skill %s: %w", skills[i].SkillID, err)
		}
	}

	return len(skills), nil
}

// UpsertEmployeeSkills inserts or updates employee skill links.
func (r *skillRepository) UpsertEmployeeSkills(ctx context.Context, links []models.EmployeeSkill) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO employee_skills (employee_id, skill_id, proficiency_level, years_of_experience, last_used, certified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, skill_id) DO UPDATE SET
			proficiency_level = EXCLUDED.proficiency_level,
			years_of_experience = EXCLUDED.years_of_experience,
			last_used = EXCLUDED.last_used,
			certified = EXCLUDED.certified`

	batch := &pgx.Batch{}
	for _, link := range links {
		batch.Queue(query,
			link.EmployeeID,
			link.SkillID,
			link.ProficiencyLevel,
			link.YearsOfExperience,
			link.LastUsed,
			link.Certified,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range links {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert employee skill %s/%s: %w",
				links[i].EmployeeID, links[i].SkillID, err)
		}
	}

	return len(links), nil
}

// ListAll retrieves every skill ordered by business key.
func (r *skillRepository) ListAll(ctx context.Context) ([]models.Skill, error) {
	query := `
		SELECT id, skill_id, name, category, description, created_at
		FROM skills
		ORDER BY skill_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var skills []models.Skill
	for rows.Next() {
		var skill models.Skill
		err := rows.Scan(
			&skill.ID,
			&skill.SkillID,
			&skill.Name,
			&skill.Category,
			&skill.Description,
			&skill.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skills: %w", err)
	}
	return skills, nil
}

// Count returns the number of catalog skills.
func (r *skillRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM skills`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count skills: %w", err)
	}
	return count, nil
}

var _ SkillRepository = (*skillRepository)(nil)
