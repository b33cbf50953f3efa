package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
)

// NewConnectionTester creates a connection tester for the configured
// datasource type.
func NewConnectionTester(ctx context.Context, ds *config.DatasourceConfig) (ConnectionTester, error) {
	factory := GetFactory(ds.Type)
	if factory == nil {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", ds.Type)
	}
	return factory(ctx, ds)
}

// NewSchemaDiscoverer creates a schema discoverer for the configured
// datasource type.
func NewSchemaDiscoverer(ctx context.Context, ds *config.DatasourceConfig, logger *zap.Logger) (SchemaDiscoverer, error) {
	factory := GetSchemaDiscovererFactory(ds.Type)
	if factory == nil {
		return nil, fmt.Errorf("schema discovery not supported for type: %s", ds.Type)
	}
	return factory(ctx, ds, logger)
}

// NewQueryExecutor creates a query executor for the configured datasource
// type.
func NewQueryExecutor(ctx context.Context, ds *config.DatasourceConfig) (QueryExecutor, error) {
	factory := GetQueryExecutorFactory(ds.Type)
	if factory == nil {
		return nil, fmt.Errorf("query execution not supported for type: %s", ds.Type)
	}
	return factory(ctx, ds)
}
