package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for crewstack-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL, the application store)
	Database DatabaseConfig `yaml:"database"`

	// Datasource configuration (the database generated SQL runs against)
	Datasource DatasourceConfig `yaml:"datasource"`

	// AI model endpoints and credentials
	AI AIConfig `yaml:"ai"`

	// Vector index configuration
	Vector VectorConfig `yaml:"vector"`

	// Upstream HR source synchronization
	Sync SyncConfig `yaml:"sync"`

	// Question answering behavior
	Answering AnsweringConfig `yaml:"answering"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// Enabled controls whether bearer tokens are required on /api routes.
	// Defaults to false so a local instance works without any token setup.
	Enabled bool `yaml:"enabled" env:"API_AUTH_ENABLED" env-default:"false"`

	// Secret signs and verifies HS256 API tokens. Required when Enabled.
	// Tokens are minted out-of-band with scripts/mint-token.
	Secret string `yaml:"-" env:"API_AUTH_SECRET"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"crewstack"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"crewstack_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// DatasourceConfig describes the database that generated SQL executes against.
// When Host is empty the application database doubles as the datasource, which
// is the single-database deployment the sync pipeline fills.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"postgres"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:""`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"0"`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:""`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:""`
	// SSLMode applies to postgres datasources.
	SSLMode string `yaml:"ssl_mode" env:"DATASOURCE_SSL_MODE" env-default:"disable"`
	// Encrypt applies to mssql datasources (disable, false, true).
	Encrypt string `yaml:"encrypt" env:"DATASOURCE_ENCRYPT" env-default:"disable"`
}

// IsExternal reports whether a dedicated datasource host is configured.
func (c *DatasourceConfig) IsExternal() bool {
	return c.Host != ""
}

// AIConfig holds model endpoints and credentials for chat and embeddings.
type AIConfig struct {
	// Provider selects the answer composition backend: "openai" or "anthropic".
	// Routing and SQL generation always use the OpenAI-compatible endpoint.
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`

	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-5-20250929"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML

	// EmbeddingEndpoint falls back to Endpoint when empty.
	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"EMBEDDING_ENDPOINT" env-default:""`
	EmbeddingModel    string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingAPIKey   string `yaml:"-" env:"EMBEDDING_API_KEY"` // Secret - not in YAML
}

// EmbeddingBaseURL returns the endpoint used for embedding requests.
func (c *AIConfig) EmbeddingBaseURL() string {
	if c.EmbeddingEndpoint != "" {
		return c.EmbeddingEndpoint
	}
	return c.Endpoint
}

// EmbeddingKey returns the API key used for embedding requests.
func (c *AIConfig) EmbeddingKey() string {
	if c.EmbeddingAPIKey != "" {
		return c.EmbeddingAPIKey
	}
	return c.APIKey
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	// Enabled turns the semantic index on. When false every semantic
	// operation returns empty results instead of failing.
	Enabled bool `yaml:"enabled" env:"VECTOR_ENABLED" env-default:"true"`

	// Dimension must match the embedding model output size.
	Dimension int `yaml:"dimension" env:"VECTOR_DIMENSION" env-default:"1536"`

	// BatchSize is the number of documents embedded per request during rebuilds.
	BatchSize int `yaml:"batch_size" env:"VECTOR_BATCH_SIZE" env-default:"128"`

	// SearchTopK is the match count for orchestrated semantic search.
	SearchTopK int `yaml:"search_top_k" env:"VECTOR_SEARCH_TOP_K" env-default:"10"`

	// FallbackTopK is the candidate count for fallback name resolution.
	FallbackTopK int `yaml:"fallback_top_k" env:"VECTOR_FALLBACK_TOP_K" env-default:"5"`
}

// SyncConfig holds upstream HR source synchronization settings.
type SyncConfig struct {
	SourceBaseURL string `yaml:"source_base_url" env:"HR_SOURCE_BASE_URL" env-default:"http://localhost:8080/rest/employeeservice/v1"`
	Username      string `yaml:"username" env:"HR_SOURCE_USERNAME" env-default:""`
	Password      string `yaml:"-" env:"HR_SOURCE_PASSWORD"` // Secret - not in YAML

	// IntervalMinutes is the scheduled sync cadence. Zero disables the scheduler.
	IntervalMinutes int `yaml:"interval_minutes" env:"SYNC_INTERVAL_MINUTES" env-default:"5"`

	// TimeoutSeconds bounds each upstream HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"HR_SOURCE_TIMEOUT_SECONDS" env-default:"30"`

	// PageSize is the record count requested per upstream page.
	PageSize int `yaml:"page_size" env:"HR_SOURCE_PAGE_SIZE" env-default:"200"`

	// Goal priority thresholds map numeric goal weight onto a priority
	// label when the upstream record carries no priority of its own:
	// weight >= high_min is High, weight >= medium_min is Medium, else Low.
	GoalPriorityHighMin   float64 `yaml:"goal_priority_high_min" env:"GOAL_PRIORITY_HIGH_MIN" env-default:"7"`
	GoalPriorityMediumMin float64 `yaml:"goal_priority_medium_min" env:"GOAL_PRIORITY_MEDIUM_MIN" env-default:"4"`
}

// AnsweringConfig holds question answering behavior settings.
type AnsweringConfig struct {
	// RowLimit caps rows returned by any generated query.
	RowLimit int `yaml:"row_limit" env:"ANSWER_ROW_LIMIT" env-default:"50"`

	// PreviewRows caps the data preview attached to responses.
	PreviewRows int `yaml:"preview_rows" env:"ANSWER_PREVIEW_ROWS" env-default:"10"`

	// EmployeeIDPrefix marks question tokens that are employee IDs rather
	// than names, e.g. "LCL16110165".
	EmployeeIDPrefix string `yaml:"employee_id_prefix" env:"EMPLOYEE_ID_PREFIX" env-default:"LCL"`

	// FuzzyThreshold is the minimum token-set ratio (0-100) for a fuzzy
	// name candidate.
	FuzzyThreshold int `yaml:"fuzzy_threshold" env:"FUZZY_MATCH_THRESHOLD" env-default:"75"`

	// FuzzyTopN caps fuzzy name candidates per question.
	FuzzyTopN int `yaml:"fuzzy_top_n" env:"FUZZY_MATCH_TOP_N" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, LLM_API_KEY, API_AUTH_SECRET, ...) must come from
// environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// Load config from YAML file with environment variable overrides
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth is enabled but API_AUTH_SECRET is not set")
	}
	switch c.Datasource.Type {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported datasource type: %s", c.Datasource.Type)
	}
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported ai provider: %s", c.AI.Provider)
	}
	return nil
}

// EffectiveDatasource returns the datasource settings with the application
// database substituted when no external datasource host is configured.
func (c *Config) EffectiveDatasource() DatasourceConfig {
	if c.Datasource.IsExternal() {
		ds := c.Datasource
		if ds.Port == 0 {
			if ds.Type == "mssql" {
				ds.Port = 1433
			} else {
				ds.Port = 5432
			}
		}
		return ds
	}
	return DatasourceConfig{
		Type:     "postgres",
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Database,
		SSLMode:  c.Database.SSLMode,
	}
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
