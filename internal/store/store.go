// Package store defines the persistence capability the graph resolves
// against. Implementations live in the sqlstore and neo4jstore packages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hanpama/inkgraph/internal/model"
)

// ErrUnsupportedFilter is returned when a query filters on a field the
// collection does not have.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Sort selects the row order of a Find.
type Sort int

const (
	// SortCreatedDesc orders newest first, ties broken by id descending.
	SortCreatedDesc Sort = iota
	SortCreatedAsc
	// SortIDDesc orders by id descending. Ids are time ordered.
	SortIDDesc
)

func (s Sort) String() string {
	switch s {
	case SortCreatedDesc:
		return "created_desc"
	case SortCreatedAsc:
		return "created_asc"
	case SortIDDesc:
		return "id_desc"
	default:
		return fmt.Sprintf("Sort(%d)", int(s))
	}
}

// Filter restricts the rows of a query. Zero fields are ignored; set fields
// are combined with AND.
type Filter struct {
	IDs []string
	// IDBefore keeps rows whose id sorts strictly before the anchor.
	IDBefore string
	Email    string
	Category model.Category
	// TitleContains is a case-insensitive substring match on the title.
	TitleContains string
	AuthorIDs     []string
	PostIDs       []string
}

// Filter field names, as reported by Fields.
const (
	FieldIDs           = "ids"
	FieldIDBefore      = "idBefore"
	FieldEmail         = "email"
	FieldCategory      = "category"
	FieldTitleContains = "titleContains"
	FieldAuthorIDs     = "authorIds"
	FieldPostIDs       = "postIds"
)

// Fields returns the names of the set fields.
func (f Filter) Fields() []string {
	var out []string
	if len(f.IDs) > 0 {
		out = append(out, FieldIDs)
	}
	if f.IDBefore != "" {
		out = append(out, FieldIDBefore)
	}
	if f.Email != "" {
		out = append(out, FieldEmail)
	}
	if f.Category != "" {
		out = append(out, FieldCategory)
	}
	if f.TitleContains != "" {
		out = append(out, FieldTitleContains)
	}
	if len(f.AuthorIDs) > 0 {
		out = append(out, FieldAuthorIDs)
	}
	if len(f.PostIDs) > 0 {
		out = append(out, FieldPostIDs)
	}
	return out
}

// Check fails with ErrUnsupportedFilter when f sets a field outside allowed.
func (f Filter) Check(collection string, allowed ...string) error {
	var bad []string
	for _, name := range f.Fields() {
		ok := false
		for _, a := range allowed {
			if a == name {
				ok = true
				break
			}
		}
		if !ok {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedFilter, strings.Join(bad, ", "), collection)
	}
	return nil
}

// Query is a filtered, ordered window of rows. A zero Limit means no limit.
type Query struct {
	Filter Filter
	Sort   Sort
	Skip   int
	Limit  int
}

// Collection is the access path to one entity kind.
type Collection[T any] interface {
	// FindByID returns the zero value (nil) when no row has id.
	FindByID(ctx context.Context, id string) (T, error)
	// FindByIDs returns rows aligned with ids, with nil for absent ones.
	FindByIDs(ctx context.Context, ids []string) ([]T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, f Filter) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Create stores a copy of v with a fresh ID and CreatedAt and returns it.
	Create(ctx context.Context, v T) (T, error)
}

type Store interface {
	Users() Collection[*model.User]
	Posts() Collection[*model.Post]
	Comments() Collection[*model.Comment]
	Close() error
}

// Supported filter fields per collection.
var (
	UserFilters    = []string{FieldIDs, FieldIDBefore, FieldEmail}
	PostFilters    = []string{FieldIDs, FieldIDBefore, FieldCategory, FieldTitleContains, FieldAuthorIDs}
	CommentFilters = []string{FieldIDs, FieldIDBefore, FieldAuthorIDs, FieldPostIDs}
)

// NewID returns a new time-ordered (version 7) UUID string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
