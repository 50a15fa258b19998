package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/config"
	"github.com/hanpama/inkgraph/internal/dataloader"
	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/graph"
	"github.com/hanpama/inkgraph/internal/logging"
	"github.com/hanpama/inkgraph/internal/metrics"
	"github.com/hanpama/inkgraph/internal/otel"
	"github.com/hanpama/inkgraph/internal/server"
	"github.com/hanpama/inkgraph/internal/store/sqlstore"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c, nil)
		},
	}
	fs := cmd.Flags()
	fs.String("server.addr", ":4000", "HTTP listen address")
	fs.Duration("server.timeout", 10*time.Second, "per-request timeout")
	fs.Bool("server.pretty", false, "pretty-print JSON responses")
	fs.Int64("server.max-body-bytes", 1<<20, "maximum request body size")
	fs.StringSlice("server.cors-origins", nil, "allowed CORS origins")
	fs.Bool("server.graphiql", true, "serve GraphiQL to browsers")
	storeFlags(fs)
	fs.String("auth.jwt-secret", "", "HMAC secret for bearer tokens")
	fs.Duration("auth.token-ttl", 168*time.Hour, "token lifetime")
	fs.Int("auth.bcrypt-cost", 10, "bcrypt cost of password hashes")
	fs.Duration("loader.batch-timeout", 5*time.Second, "timeout of one loader batch fetch")
	fs.Int("loader.max-batch", 0, "maximum keys per batch fetch, 0 for unlimited")
	fs.String("log.level", "info", "log level")
	fs.String("log.format", "json", "log format: json or console")
	fs.String("otel.endpoint", "", "OTLP gRPC collector endpoint")
	fs.String("otel.service", "inkgraph", "OpenTelemetry service name")
	fs.Bool("metrics.enabled", true, "serve Prometheus metrics on /metrics")
	return cmd
}

// serve runs until ctx is done. When ready is non-nil it receives the
// listener address once the server accepts connections.
func serve(ctx context.Context, c *config.Config, ready chan<- string) error {
	logger, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)
	defer logging.Subscribe(bus, logger)()

	shutdownTracing, err := otel.Setup(ctx, bus, c.Otel.Endpoint, c.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := openStore(ctx, c.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	if c.Store.Driver == sqlstore.SQLite {
		if err := migrate(ctx, st); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	signer := auth.NewHMACSigner(c.Auth.JWTSecret, c.Auth.TokenTTL)
	sch, err := graph.NewSchema(&graph.Resolver{
		Store:  st,
		Hasher: auth.NewBcryptHasher(c.Auth.BcryptCost),
		Signer: signer,
	})
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	loaderOpts := []dataloader.Option{dataloader.WithBatchTimeout(c.Loader.BatchTimeout)}
	if c.Loader.MaxBatch > 0 {
		loaderOpts = append(loaderOpts, dataloader.WithMaxBatch(c.Loader.MaxBatch))
	}
	sopts := []server.Option{
		server.WithTimeout(c.Server.Timeout),
		server.WithMaxBodyBytes(c.Server.MaxBodyBytes),
		server.WithGraphiQL(c.Server.GraphiQL),
		server.WithSigner(signer),
		server.WithLogger(logger),
		server.WithOperationContext(func(ctx context.Context) context.Context {
			return graph.WithLoaders(ctx, graph.NewLoaders(st, loaderOpts...))
		}),
	}
	if c.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(c.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(c.Server.CORSOrigins...))
	}
	h, err := server.New(graph.NewRuntime(sch), sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if c.Metrics.Enabled {
		m := metrics.New()
		defer m.Subscribe(bus)()
		mux.Handle("/metrics", m.Handler())
	}

	ln, err := net.Listen("tcp", c.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("GraphQL server listening", zap.String("addr", ln.Addr().String()), zap.String("store", c.Store.Driver))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Server.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
