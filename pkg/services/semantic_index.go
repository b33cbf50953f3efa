package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/llm"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
)

// Entity kinds stored in the vector index. Document IDs are
// "kind:business_key", so re-indexing overwrites in place.
const (
	KindEmployee = "employee"
	KindGoal     = "goal"
	KindProject  = "project"
	KindSkill    = "skill"
)

const defaultEmbeddingBatchSize = 128

// SemanticIndexService maintains the vector index over HR entities and
// answers nearest-neighbor searches against it.
type SemanticIndexService interface {
	// Enabled reports whether the vector index is configured on.
	Enabled() bool

	// RebuildAll re-embeds every employee, goal, project, and skill and
	// upserts the documents in batches. Batches embed concurrently with
	// bounded parallelism behind a circuit breaker. It returns the number
	// of documents stored: zero with no error when the index is disabled,
	// an error only when the source tables cannot be read. Failed batches
	// are logged and skipped, so the count reflects documents actually
	// written.
	RebuildAll(ctx context.Context) (int, error)

	// EnsureIndexed rebuilds the index only when it holds no documents.
	// Callers use it to populate the index lazily before the first
	// semantic search.
	EnsureIndexed(ctx context.Context) error

	// Search embeds the query and returns the closest stored documents,
	// optionally restricted to entity kinds. Failures are logged and
	// degrade to an empty result.
	Search(ctx context.Context, query string, topK int, kinds ...string) []models.SemanticMatch
}

type semanticIndexService struct {
	embeddingRepo repositories.EmbeddingRepository
	employeeRepo  repositories.EmployeeRepository
	goalRepo      repositories.GoalRepository
	projectRepo   repositories.ProjectRepository
	skillRepo     repositories.SkillRepository
	embedder      llm.LLMClient
	pool          *llm.WorkerPool
	breaker       *llm.CircuitBreaker
	cfg           config.VectorConfig
	logger        *zap.Logger
}

// NewSemanticIndexService creates a semantic index service. The embedder
// must be an embedding-capable client; its GetModel() names the embedding
// model used for documents and queries alike.
func NewSemanticIndexService(
	embeddingRepo repositories.EmbeddingRepository,
	employeeRepo repositories.EmployeeRepository,
	goalRepo repositories.GoalRepository,
	projectRepo repositories.ProjectRepository,
	skillRepo repositories.SkillRepository,
	embedder llm.LLMClient,
	cfg config.VectorConfig,
	logger *zap.Logger,
) SemanticIndexService {
	return &semanticIndexService{
		embeddingRepo: embeddingRepo,
		employeeRepo:  employeeRepo,
		goalRepo:      goalRepo,
		projectRepo:   projectRepo,
		skillRepo:     skillRepo,
		embedder:      embedder,
		pool:          llm.NewWorkerPool(llm.DefaultWorkerPoolConfig(), logger),
		breaker:       llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()),
		cfg:           cfg,
		logger:        logger,
	}
}

func (s *semanticIndexService) Enabled() bool {
	return s.cfg.Enabled
}

func (s *semanticIndexService) RebuildAll(ctx context.Context) (int, error) {
	if !s.cfg.Enabled {
		s.logger.Info("Vector index disabled, skipping rebuild")
		return 0, nil
	}

	docs, err := s.collectDocuments(ctx)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		s.logger.Info("No documents found to embed")
		return 0, nil
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatchSize
	}

	items := make([]llm.WorkItem[embeddedBatch], 0, (len(docs)+batchSize-1)/batchSize)
	for start := 0; start < len(docs); start += batchSize {
		batch := docs[start:min(start+batchSize, len(docs))]
		items = append(items, llm.WorkItem[embeddedBatch]{
			ID: fmt.Sprintf("offset=%d size=%d", start, len(batch)),
			Execute: func(ctx context.Context) (embeddedBatch, error) {
				return s.embedBatch(ctx, batch)
			},
		})
	}

	// Embedding calls run concurrently; upserts stay on this goroutine and
	// happen in completion order.
	total := 0
	for _, r := range llm.Process(ctx, s.pool, items, nil) {
		if r.Err != nil {
			s.logger.Error("Embedding batch failed",
				zap.String("batch", r.ID),
				zap.Error(r.Err))
			continue
		}
		stored, err := s.embeddingRepo.UpsertBatch(ctx, r.Result.docs, r.Result.vectors)
		if err != nil {
			s.logger.Error("Vector upsert batch failed",
				zap.String("batch", r.ID),
				zap.Error(err))
			continue
		}
		total += stored
	}

	s.logger.Info("Vector index rebuilt", zap.Int("documents", total))
	return total, nil
}

// embeddedBatch carries one batch of documents and their vectors from the
// embedding call to the upsert.
type embeddedBatch struct {
	docs    []models.EmbeddingDocument
	vectors [][]float32
}

// embedBatch runs one embedding call behind the circuit breaker. A tripped
// breaker fails the batch without reaching the provider.
func (s *semanticIndexService) embedBatch(ctx context.Context, batch []models.EmbeddingDocument) (embeddedBatch, error) {
	if err := s.breaker.Allow(); err != nil {
		return embeddedBatch{}, err
	}

	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.Content
	}

	vectors, err := s.embedder.CreateEmbeddings(ctx, texts, s.embedder.GetModel())
	if err != nil {
		s.breaker.RecordFailure()
		return embeddedBatch{}, err
	}
	s.breaker.RecordSuccess()

	if len(vectors) != len(batch) {
		return embeddedBatch{}, fmt.Errorf("embedding returned %d vectors for %d documents", len(vectors), len(batch))
	}
	return embeddedBatch{docs: batch, vectors: vectors}, nil
}

func (s *semanticIndexService) EnsureIndexed(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	count, err := s.embeddingRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count indexed documents: %w", err)
	}
	if count > 0 {
		return nil
	}
	s.logger.Info("Vector index is empty, rebuilding")
	_, err = s.RebuildAll(ctx)
	return err
}

func (s *semanticIndexService) Search(ctx context.Context, query string, topK int, kinds ...string) []models.SemanticMatch {
	if !s.cfg.Enabled {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	vector, err := s.embedder.CreateEmbedding(ctx, query, s.embedder.GetModel())
	if err != nil {
		s.logger.Warn("Failed to embed search query", zap.Error(err))
		return nil
	}

	if topK <= 0 {
		topK = s.cfg.SearchTopK
	}
	matches, err := s.embeddingRepo.Search(ctx, vector, topK, kinds...)
	if err != nil {
		s.logger.Warn("Vector search failed", zap.Error(err))
		return nil
	}
	return matches
}

// collectDocuments renders one document per entity. The text formats are
// the search corpus; changing them changes what questions can match.
func (s *semanticIndexService) collectDocuments(ctx context.Context) ([]models.EmbeddingDocument, error) {
	employees, err := s.employeeRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for indexing: %w", err)
	}
	goals, err := s.goalRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals for indexing: %w", err)
	}
	projects, err := s.projectRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for indexing: %w", err)
	}
	skills, err := s.skillRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills for indexing: %w", err)
	}

	docs := make([]models.EmbeddingDocument, 0, len(employees)+len(goals)+len(projects)+len(skills))

	for _, e := range employees {
		docs = append(docs, models.EmbeddingDocument{
			ID:      KindEmployee + ":" + e.EmployeeID,
			Kind:    KindEmployee,
			Content: fmt.Sprintf("Employee: %s | %s | %s", e.FullName, e.Designation, e.Email),
			Metadata: models.JSONBMap{
				"type":        KindEmployee,
				"employee_id": e.EmployeeID,
				"full_name":   e.FullName,
			},
		})
	}

	for _, g := range goals {
		docs = append(docs, models.EmbeddingDocument{
			ID:      KindGoal + ":" + g.GoalID,
			Kind:    KindGoal,
			Content: fmt.Sprintf("Goal: %s | %s | %s | %s", g.Title, g.Description, g.Status, g.Category),
			Metadata: models.JSONBMap{
				"type":        KindGoal,
				"goal_id":     g.GoalID,
				"employee_id": stringOrEmpty(g.AssignedToEmployeeID),
				"status":      g.Status,
			},
		})
	}

	for _, p := range projects {
		docs = append(docs, models.EmbeddingDocument{
			ID:      KindProject + ":" + p.ProjectID,
			Kind:    KindProject,
			Content: fmt.Sprintf("Project: %s | %s | Manager: %s", p.Name, p.Description, p.ProjectManager),
			Metadata: models.JSONBMap{
				"type":       KindProject,
				"project_id": p.ProjectID,
				"name":       p.Name,
			},
		})
	}

	for _, sk := range skills {
		docs = append(docs, models.EmbeddingDocument{
			ID:      KindSkill + ":" + sk.SkillID,
			Kind:    KindSkill,
			Content: fmt.Sprintf("Skill: %s | %s | %s", sk.Name, sk.Category, sk.Description),
			Metadata: models.JSONBMap{
				"type":     KindSkill,
				"skill_id": sk.SkillID,
				"name":     sk.Name,
			},
		})
	}

	return docs, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
