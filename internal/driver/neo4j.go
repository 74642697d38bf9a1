package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jDriver wraps the bolt driver. Every ExecuteQuery call runs in its own
// scoped session; no session is held across calls.
type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jDriver(uri, username, password, database string) (*Neo4jDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := d.VerifyConnectivity(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity to %s: %w", uri, err)
	}

	slog.Info("connected to neo4j", "uri", uri, "database", database)
	return &Neo4jDriver{Driver: d, database: database}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}

	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX note_title IF NOT EXISTS FOR (n:Note) ON (n.title);",
		"CREATE INDEX entity_name IF NOT EXISTS FOR (n:Entity) ON (n.name);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Index may already exist or the server may use older syntax.
			slog.Warn("failed to create index", "query", q, "error", err)
		}
	}

	return nil
}
