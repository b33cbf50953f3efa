package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/config"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, ds *config.DatasourceConfig) (datasource.ConnectionTester, error) {
			cfg, err := FromConfig(ds)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg)
		},
		SchemaDiscovererFactory: func(ctx context.Context, ds *config.DatasourceConfig, logger *zap.Logger) (datasource.SchemaDiscoverer, error) {
			cfg, err := FromConfig(ds)
			if err != nil {
				return nil, err
			}
			return NewSchemaDiscoverer(ctx, cfg, logger)
		},
		QueryExecutorFactory: func(ctx context.Context, ds *config.DatasourceConfig) (datasource.QueryExecutor, error) {
			cfg, err := FromConfig(ds)
			if err != nil {
				return nil, err
			}
			return NewQueryExecutor(ctx, cfg)
		},
	})
}
