// Package sqlstore implements store.Store on database/sql. It speaks the
// sqlite, postgres and mysql dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

// DefaultQueryTimeout bounds each statement unless overridden.
const DefaultQueryTimeout = 5 * time.Second

type Option func(*Store)

// WithQueryTimeout bounds every statement; zero disables the bound.
func WithQueryTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }

// WithClock replaces the time source used for CreatedAt.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDs replaces the identifier generator.
func WithIDs(newID func() string) Option { return func(s *Store) { s.newID = newID } }

type Store struct {
	db      *sql.DB
	dialect dialect
	timeout time.Duration
	now     func() time.Time
	newID   func() string

	users    *collection[*model.User]
	posts    *collection[*model.Post]
	comments *collection[*model.Comment]
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn with the named driver and checks the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if _, err := lookupDialect(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == SQLite {
		// One writer; also keeps an in-memory database alive and shared.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db, driver, opts...)
}

// New wraps an open handle speaking the named dialect.
func New(db *sql.DB, driver string, opts ...Option) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:      db,
		dialect: d,
		timeout: DefaultQueryTimeout,
		now:     time.Now,
		newID:   store.NewID,
	}
	for _, o := range opts {
		o(s)
	}
	s.users = newCollection(s, userTable)
	s.posts = newCollection(s, postTable)
	s.comments = newCollection(s, commentTable)
	return s, nil
}

func (s *Store) Users() store.Collection[*model.User]       { return s.users }
func (s *Store) Posts() store.Collection[*model.Post]       { return s.posts }
func (s *Store) Comments() store.Collection[*model.Comment] { return s.comments }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) publish(ctx context.Context, collection, op string, start time.Time, err error) {
	eventbus.Publish(ctx, events.StoreQuery{
		Backend:    s.dialect.name,
		Collection: collection,
		Op:         op,
		Start:      start,
		Duration:   time.Since(start),
		Err:        err,
	})
}

func (s *Store) exec(ctx context.Context, collection, op, q string, args ...any) (sql.Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(q), args...)
	s.publish(ctx, collection, op, start, err)
	return res, err
}

// query runs q and calls scan for every row.
func (s *Store) query(ctx context.Context, collection, op, q string, args []any, scan func(*sql.Rows) error) (err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	defer func() { s.publish(ctx, collection, op, start, err) }()

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err = scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
