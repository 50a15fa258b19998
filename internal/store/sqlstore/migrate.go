package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

type index struct {
	name    string
	columns string
	unique  bool
}

type tableDef struct {
	name    string
	columns []string
	indexes []index
}

var tables = []tableDef{
	{
		name: "users",
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"name VARCHAR(255) NOT NULL",
			"email VARCHAR(255) NOT NULL",
			"role VARCHAR(16) NOT NULL",
			"password_hash VARCHAR(255) NOT NULL",
			"created_at BIGINT NOT NULL",
			"updated_at BIGINT NULL",
		},
		indexes: []index{{name: "users_email_key", columns: "email", unique: true}},
	},
	{
		name: "posts",
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"author_id VARCHAR(36) NOT NULL REFERENCES users(id)",
			"category VARCHAR(16) NOT NULL",
			"title VARCHAR(255) NOT NULL",
			"body TEXT NOT NULL",
			"created_at BIGINT NOT NULL",
			"updated_at BIGINT NULL",
		},
		indexes: []index{
			{name: "posts_author_id_idx", columns: "author_id"},
			{name: "posts_created_at_idx", columns: "created_at, id"},
		},
	},
	{
		name: "comments",
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"author_id VARCHAR(36) NOT NULL REFERENCES users(id)",
			"post_id VARCHAR(36) NOT NULL REFERENCES posts(id)",
			"body TEXT NOT NULL",
			"created_at BIGINT NOT NULL",
			"updated_at BIGINT NULL",
		},
		indexes: []index{{name: "comments_post_id_idx", columns: "post_id, created_at"}},
	},
}

// migrations returns the DDL statements creating every table and index.
func (d dialect) migrations() []string {
	var stmts []string
	for _, t := range tables {
		cols := append([]string(nil), t.columns...)
		if d.inlineIndexes {
			for _, ix := range t.indexes {
				kind := "INDEX"
				if ix.unique {
					kind = "UNIQUE INDEX"
				}
				cols = append(cols, fmt.Sprintf("%s %s (%s)", kind, ix.name, ix.columns))
			}
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.name, strings.Join(cols, ",\n\t")))
		if d.inlineIndexes {
			continue
		}
		for _, ix := range t.indexes {
			kind := "INDEX"
			if ix.unique {
				kind = "UNIQUE INDEX"
			}
			stmts = append(stmts, fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, ix.name, t.name, ix.columns))
		}
	}
	return stmts
}

// Migrate creates the tables and indexes that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.migrations() {
		if _, err := s.exec(ctx, "schema", "migrate", stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
