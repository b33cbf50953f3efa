package datasource

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
)

// DatasourceAdapterInfo describes a registered adapter.
type DatasourceAdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "mssql"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`  // "Connect to PostgreSQL 12+"
}

// DatasourceAdapterRegistration bundles adapter metadata with the factories
// that build its connection tester, schema discoverer, and query executor.
// Factories receive the static datasource settings from the application
// config; each created adapter opens and owns its own connection.
type DatasourceAdapterRegistration struct {
	Info                    DatasourceAdapterInfo
	Factory                 func(ctx context.Context, ds *config.DatasourceConfig) (ConnectionTester, error)
	SchemaDiscovererFactory func(ctx context.Context, ds *config.DatasourceConfig, logger *zap.Logger) (SchemaDiscoverer, error)
	QueryExecutorFactory    func(ctx context.Context, ds *config.DatasourceConfig) (QueryExecutor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DatasourceAdapterRegistration)
)

// Register records an adapter under its type. Adapters call it from init(),
// which may run concurrently across packages.
func Register(reg DatasourceAdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// lookup returns the registration for a type, zero-valued when absent. All
// factory fields of the zero value are nil.
func lookup(dsType string) DatasourceAdapterRegistration {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[dsType]
}

// RegisteredAdapters returns info for all registered adapters, sorted by
// type so API responses are stable.
func RegisteredAdapters() []DatasourceAdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	infos := make([]DatasourceAdapterInfo, 0, len(registry))
	for _, reg := range registry {
		infos = append(infos, reg.Info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

// GetFactory returns the connection tester factory for a datasource type, or
// nil when the type is not registered.
func GetFactory(dsType string) func(ctx context.Context, ds *config.DatasourceConfig) (ConnectionTester, error) {
	return lookup(dsType).Factory
}

// GetSchemaDiscovererFactory returns the schema discoverer factory for a
// datasource type, or nil when the type is not registered.
func GetSchemaDiscovererFactory(dsType string) func(ctx context.Context, ds *config.DatasourceConfig, logger *zap.Logger) (SchemaDiscoverer, error) {
	return lookup(dsType).SchemaDiscovererFactory
}

// GetQueryExecutorFactory returns the query executor factory for a datasource
// type, or nil when the type is not registered.
func GetQueryExecutorFactory(dsType string) func(ctx context.Context, ds *config.DatasourceConfig) (QueryExecutor, error) {
	return lookup(dsType).QueryExecutorFactory
}

// IsRegistered reports whether an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}
