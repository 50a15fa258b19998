package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runner executes one Cypher statement and buffers its result.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error)
}

// DriverRunner runs statements through a driver with ExecuteQuery, which
// manages sessions and retries.
type DriverRunner struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// Dial creates a driver for uri and verifies connectivity.
func Dial(ctx context.Context, uri, username, password, database string) (*DriverRunner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &DriverRunner{Driver: driver, Database: database}, nil
}

func (r *DriverRunner) Run(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if r.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.Database))
	}
	res, err := neo4j.ExecuteQuery(ctx, r.Driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("neo4j query: %w", err)
	}
	return res, nil
}

func (r *DriverRunner) Close(ctx context.Context) error { return r.Driver.Close(ctx) }
