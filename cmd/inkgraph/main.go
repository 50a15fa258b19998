package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/config"
	"github.com/hanpama/inkgraph/internal/graph"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
	"github.com/hanpama/inkgraph/internal/store/neo4jstore"
	"github.com/hanpama/inkgraph/internal/store/sqlstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inkgraph:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inkgraph",
		Short:         "GraphQL API over users, posts and comments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSchemaCmd(), newTokenCmd())
	return root
}

// loadConfig merges defaults, the config file, the environment and the
// flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	file, _ := cmd.Flags().GetString("config")
	return config.Load(v, file)
}

func storeFlags(fs *pflag.FlagSet) {
	fs.String("store.driver", "sqlite", "store backend: "+strings.Join(config.Drivers, ", "))
	fs.String("store.dsn", "file:inkgraph.db?_pragma=foreign_keys(1)", "data source name or neo4j URI")
	fs.Duration("store.query-timeout", 5*time.Second, "per-query timeout")
}

type migrator interface {
	Migrate(ctx context.Context) error
}

func openStore(ctx context.Context, c config.Store) (store.Store, error) {
	if c.Driver == "neo4j" {
		r, err := neo4jstore.Dial(ctx, c.DSN, c.Neo4j.Username, c.Neo4j.Password, c.Neo4j.Database)
		if err != nil {
			return nil, err
		}
		return neo4jstore.New(r,
			neo4jstore.WithQueryTimeout(c.QueryTimeout),
			neo4jstore.WithCloser(func() error { return r.Close(context.Background()) }),
		), nil
	}
	return sqlstore.Open(ctx, c.Driver, c.DSN, sqlstore.WithQueryTimeout(c.QueryTimeout))
}

func migrate(ctx context.Context, st store.Store) error {
	m, ok := st.(migrator)
	if !ok {
		return fmt.Errorf("store %T cannot be migrated", st)
	}
	return m.Migrate(ctx)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables or constraints of the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), c.Store)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := migrate(cmd.Context(), st); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", c.Store.Driver)
			return nil
		},
	}
	storeFlags(cmd.Flags())
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the GraphQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), graph.SDL)
			return err
		},
	}
}

func newTokenCmd() *cobra.Command {
	var sub, role, email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if c.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt-secret is required")
			}
			r := model.Role(strings.ToUpper(role))
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if sub == "" {
				return fmt.Errorf("--sub is required")
			}
			token, err := auth.NewHMACSigner(c.Auth.JWTSecret, c.Auth.TokenTTL).
				Sign(auth.Identity{SubjectID: sub, Role: r, Email: email})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleReader), "role: READER, AUTHOR or ADMIN")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().String("auth.jwt-secret", "", "HMAC secret")
	cmd.Flags().Duration("auth.token-ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}
