package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
)

// Row bounds for fallback lookups.
const (
	exactCandidateLimit     = 5
	subordinateLimit        = 50
	nameMatchedProjectLimit = 10
	teamMemberLimit         = 50
)

// reportingKeywords gate fallback resolution: at least one must appear in
// the lowercased question for it to count as a reporting question.
var reportingKeywords = []string{"report", "team", "subordinate", "under", "manage"}

// FallbackResolver recovers an answer for reporting questions whose SQL
// path returned no rows. Strategies run strictly in order: exact name
// match, semantic candidates, fuzzy candidates, then team inference via
// projects and departments. Direct reports found by any strategy win
// immediately; candidate suggestions are held back until team inference
// has had its chance.
type FallbackResolver interface {
	// Resolve returns the replacement answer and true when any strategy
	// produced one. It returns ("", false) when the question or parameters
	// do not look like a reporting query, or when nothing matched the name
	// at all.
	Resolve(ctx context.Context, question string, params map[string]any) (string, bool)
}

type fallbackResolver struct {
	employeeRepo   repositories.EmployeeRepository
	projectRepo    repositories.ProjectRepository
	departmentRepo repositories.DepartmentRepository
	index          SemanticIndexService
	cfg            config.AnsweringConfig
	vectorCfg      config.VectorConfig
	logger         *zap.Logger
}

// NewFallbackResolver creates the fallback resolver for reporting
// questions.
func NewFallbackResolver(
	employeeRepo repositories.EmployeeRepository,
	projectRepo repositories.ProjectRepository,
	departmentRepo repositories.DepartmentRepository,
	index SemanticIndexService,
	cfg config.AnsweringConfig,
	vectorCfg config.VectorConfig,
	logger *zap.Logger,
) FallbackResolver {
	return &fallbackResolver{
		employeeRepo:   employeeRepo,
		projectRepo:    projectRepo,
		departmentRepo: departmentRepo,
		index:          index,
		cfg:            cfg,
		vectorCfg:      vectorCfg,
		logger:         logger,
	}
}

func (r *fallbackResolver) Resolve(ctx context.Context, question string, params map[string]any) (string, bool) {
	if !hasReportingKeyword(question) {
		return "", false
	}
	rawName := managerNameParameter(params)
	if rawName == "" {
		return "", false
	}
	stripped := strings.TrimSpace(strings.ReplaceAll(rawName, "%", ""))
	if stripped == "" {
		return "", false
	}

	exact, err := r.employeeRepo.SearchByName(ctx, wildcardPattern(rawName), exactCandidateLimit)
	if err != nil {
		r.logger.Warn("Fallback manager lookup failed", zap.Error(err))
		return "", false
	}
	if len(exact) == 0 {
		r.logger.Debug("No manager found by name", zap.String("name", stripped))
	}

	if msg := r.directReports(ctx, toCandidates(exact, models.CandidateSourceExact), "manager name match"); msg != "" {
		return msg, true
	}

	semanticCandidates := r.semanticCandidates(ctx, stripped)
	if msg := r.directReports(ctx, semanticCandidates, "semantic manager match"); msg != "" {
		return msg, true
	}

	fuzzyCandidates := r.fuzzyCandidates(ctx, stripped)
	if msg := r.directReports(ctx, fuzzyCandidates, "fuzzy manager match"); msg != "" {
		return msg, true
	}

	allCandidates := dedupeCandidates(toCandidates(exact, models.CandidateSourceExact), semanticCandidates, fuzzyCandidates)
	if msg := r.inferredTeam(ctx, stripped, allCandidates); msg != "" {
		return msg, true
	}

	if len(semanticCandidates) > 0 {
		return fmt.Sprintf("Nearest manager name match(es): %s. No direct reports recorded under these candidates. Verify manager_employee_id assignments or use the exact employee ID.",
			joinCandidates(semanticCandidates, false)), true
	}
	if len(fuzzyCandidates) > 0 {
		return fmt.Sprintf("Nearest manager name match(es) by fuzzy search: %s. No direct reports recorded under these candidates. Verify manager_employee_id assignments or use exact employee ID.",
			joinCandidates(fuzzyCandidates, true)), true
	}
	if len(exact) > 0 {
		return fmt.Sprintf("Found manager candidate(s): %s. No direct reports are recorded. Verify subordinates have their manager_employee_id set to the manager's employee_id.",
			joinCandidates(toCandidates(exact, models.CandidateSourceExact), false)), true
	}
	return "", false
}

// directReports lists subordinates under each candidate, grouped per
// manager. Every candidate is checked; nearest-neighbor rank does not
// decide which candidate is the right person. Returns "" when no
// candidate has any.
func (r *fallbackResolver) directReports(ctx context.Context, candidates []models.FallbackCandidate, matchKind string) string {
	var parts []string
	for _, c := range candidates {
		subs, err := r.employeeRepo.ListSubordinates(ctx, c.EmployeeID, subordinateLimit)
		if err != nil {
			r.logger.Warn("Failed to list subordinates for fallback candidate",
				zap.String("employee_id", c.EmployeeID),
				zap.Error(err))
			continue
		}
		if len(subs) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("Under %s (%s): %s", c.FullName, c.EmployeeID, joinMembers(subs)))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("Found direct reports via %s. %s", matchKind, strings.Join(parts, " | "))
}

// semanticCandidates resolves the stripped manager name against the
// vector index, employee documents only.
func (r *fallbackResolver) semanticCandidates(ctx context.Context, stripped string) []models.FallbackCandidate {
	if !r.index.Enabled() {
		return nil
	}
	matches := r.index.Search(ctx, stripped, r.vectorCfg.FallbackTopK, KindEmployee)

	var candidates []models.FallbackCandidate
	for _, match := range matches {
		id := match.MetadataString("employee_id")
		if id == "" {
			continue
		}
		name := match.MetadataString("full_name")
		if name == "" {
			name = employeeNameFromContent(match.Content)
		}
		candidates = append(candidates, models.FallbackCandidate{
			EmployeeID: id,
			FullName:   name,
			Source:     models.CandidateSourceSemantic,
		})
	}
	return candidates
}

// fuzzyCandidates ranks every employee name by token-set similarity to
// the query, keeping the top-N at or above the threshold. The full name
// list is pulled into memory; the corpus is bounded by organization size.
func (r *fallbackResolver) fuzzyCandidates(ctx context.Context, stripped string) []models.FallbackCandidate {
	names, err := r.employeeRepo.ListNames(ctx)
	if err != nil {
		r.logger.Warn("Failed to list employee names for fuzzy matching", zap.Error(err))
		return nil
	}
	query := normalizeName(stripped)
	if query == "" {
		return nil
	}

	threshold := r.cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = 75
	}

	var scored []models.FallbackCandidate
	for _, n := range names {
		score := fuzzy.TokenSetRatio(query, normalizeName(n.FullName))
		if score < threshold {
			continue
		}
		scored = append(scored, models.FallbackCandidate{
			EmployeeID: n.EmployeeID,
			FullName:   n.FullName,
			Source:     models.CandidateSourceFuzzy,
			Score:      score,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	topN := r.cfg.FuzzyTopN
	if topN <= 0 {
		topN = 5
	}
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// inferredTeam widens "team" to projects the candidate manages and
// departments they head, listing the other members of each context. The
// candidate themselves is never listed in their own team.
func (r *fallbackResolver) inferredTeam(ctx context.Context, stripped string, candidates []models.FallbackCandidate) string {
	var parts []string
	seenProjects := make(map[string]bool)

	for _, c := range candidates {
		projects, err := r.projectRepo.ListManagedBy(ctx, c.EmployeeID)
		if err != nil {
			r.logger.Warn("Failed to list managed projects for fallback candidate",
				zap.String("employee_id", c.EmployeeID),
				zap.Error(err))
			continue
		}
		for _, p := range projects {
			if seenProjects[p.ProjectID] {
				continue
			}
			seenProjects[p.ProjectID] = true
			if part := r.projectTeamPart(ctx, p, c.EmployeeID); part != "" {
				parts = append(parts, part)
			}
		}
	}

	// Older upstream records carry only the manager's display name.
	named, err := r.projectRepo.ListByManagerName(ctx, "%"+stripped+"%", nameMatchedProjectLimit)
	if err != nil {
		r.logger.Warn("Failed to match projects by manager name", zap.Error(err))
	}
	for _, p := range named {
		if seenProjects[p.ProjectID] {
			continue
		}
		seenProjects[p.ProjectID] = true
		if part := r.projectTeamPart(ctx, p, stringOrEmpty(p.ManagerEmployeeID)); part != "" {
			parts = append(parts, part)
		}
	}

	seenDepartments := make(map[string]bool)
	for _, c := range candidates {
		departments, err := r.departmentRepo.ListHeadedBy(ctx, c.EmployeeID)
		if err != nil {
			r.logger.Warn("Failed to list headed departments for fallback candidate",
				zap.String("employee_id", c.EmployeeID),
				zap.Error(err))
			continue
		}
		for _, d := range departments {
			if seenDepartments[d.DepartmentID] {
				continue
			}
			seenDepartments[d.DepartmentID] = true
			members, err := r.departmentRepo.ListMembers(ctx, d.DepartmentID, c.EmployeeID, teamMemberLimit)
			if err != nil {
				r.logger.Warn("Failed to list department members",
					zap.String("department_id", d.DepartmentID),
					zap.Error(err))
				continue
			}
			if len(members) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("Under Department %s (%s): %s", d.Name, d.DepartmentID, joinMembers(dedupeEmployees(members))))
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return "No direct reports recorded. Inferred team via projects/departments. " + strings.Join(parts, " | ")
}

func (r *fallbackResolver) projectTeamPart(ctx context.Context, p models.Project, excludeEmployeeID string) string {
	members, err := r.projectRepo.ListMembers(ctx, p.ProjectID, excludeEmployeeID, teamMemberLimit)
	if err != nil {
		r.logger.Warn("Failed to list project members",
			zap.String("project_id", p.ProjectID),
			zap.Error(err))
		return ""
	}
	if len(members) == 0 {
		return ""
	}
	return fmt.Sprintf("Under Project %s (%s): %s", p.Name, p.ProjectID, joinMembers(dedupeEmployees(members)))
}

func hasReportingKeyword(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range reportingKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// managerNameParameter finds the manager name binding: the conventional
// manager_name key first, otherwise any parameter whose name mentions
// manager and carries a non-empty string.
func managerNameParameter(params map[string]any) string {
	if v, ok := params["manager_name"].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	for name, value := range params {
		if !strings.Contains(strings.ToLower(name), "manager") {
			continue
		}
		if v, ok := value.(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// wildcardPattern keeps an already-wrapped LIKE value as is and wraps a
// bare name.
func wildcardPattern(value string) string {
	if strings.Contains(value, "%") {
		return value
	}
	return "%" + value + "%"
}

// normalizeName canonicalizes a name for fuzzy comparison: wildcards
// removed, lowercased, accents stripped.
func normalizeName(s string) string {
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ToLower(strings.TrimSpace(s))
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripAccents, s); err == nil {
		return folded
	}
	return s
}

// employeeNameFromContent recovers the display name from an indexed
// employee document of the form "Employee: Name | designation | email".
func employeeNameFromContent(content string) string {
	head, _, _ := strings.Cut(content, "|")
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(head), "Employee:"))
}

func toCandidates(employees []models.Employee, source string) []models.FallbackCandidate {
	candidates := make([]models.FallbackCandidate, 0, len(employees))
	for _, e := range employees {
		candidates = append(candidates, models.FallbackCandidate{
			EmployeeID:  e.EmployeeID,
			FullName:    e.FullName,
			Designation: e.Designation,
			Source:      source,
		})
	}
	return candidates
}

// dedupeCandidates keeps the first candidate seen per employee ID,
// preserving strategy order.
func dedupeCandidates(groups ...[]models.FallbackCandidate) []models.FallbackCandidate {
	seen := make(map[string]bool)
	var result []models.FallbackCandidate
	for _, group := range groups {
		for _, c := range group {
			if c.EmployeeID == "" || seen[c.EmployeeID] {
				continue
			}
			seen[c.EmployeeID] = true
			result = append(result, c)
		}
	}
	return result
}

func dedupeEmployees(employees []models.Employee) []models.Employee {
	seen := make(map[string]bool, len(employees))
	var result []models.Employee
	for _, e := range employees {
		if seen[e.EmployeeID] {
			continue
		}
		seen[e.EmployeeID] = true
		result = append(result, e)
	}
	return result
}

// joinMembers renders employees as "Name [ID] - Designation" joined with
// semicolons, the shared grouping format of every fallback message.
func joinMembers(employees []models.Employee) string {
	rendered := make([]string, 0, len(employees))
	for _, e := range employees {
		rendered = append(rendered, fmt.Sprintf("%s [%s] - %s", e.FullName, e.EmployeeID, e.Designation))
	}
	return strings.Join(rendered, "; ")
}

// joinCandidates renders candidates for suggestion messages. Fuzzy
// candidates carry their similarity score.
func joinCandidates(candidates []models.FallbackCandidate, withScore bool) string {
	rendered := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if withScore {
			rendered = append(rendered, fmt.Sprintf("%s (%s) ~%d", c.FullName, c.EmployeeID, c.Score))
		} else {
			rendered = append(rendered, fmt.Sprintf("%s (%s)", c.FullName, c.EmployeeID))
		}
	}
	return strings.Join(rendered, ", ")
}
