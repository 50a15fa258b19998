package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported dialect names, also the database/sql driver names.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// inlineIndexes declares secondary indexes inside CREATE TABLE.
	inlineIndexes bool
	// noLimit is the LIMIT used when only an offset is given.
	noLimit string
}

var dialects = map[string]dialect{
	SQLite:   {name: SQLite, noLimit: "-1"},
	Postgres: {name: Postgres, numbered: true, noLimit: "ALL"},
	MySQL:    {name: MySQL, inlineIndexes: true, noLimit: "18446744073709551615"},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("sqlstore: unknown driver %q", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders into the dialect's form.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d dialect) limit(limit, skip int) string {
	switch {
	case limit > 0 && skip > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, skip)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case skip > 0:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", d.noLimit, skip)
	default:
		return ""
	}
}
