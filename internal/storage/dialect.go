package storage

import (
	"strconv"
	"strings"
)

// Driver selects the relational store and its SQL dialect.
type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
	MySQL    Driver = "mysql"
)

// String implements fmt.Stringer
func (d Driver) String() string {
	return string(d)
}

// IsValid returns true if the driver is supported
func (d Driver) IsValid() bool {
	switch d {
	case SQLite, Postgres, MySQL:
		return true
	default:
		return false
	}
}

// Drivers returns all supported drivers
func Drivers() []Driver {
	return []Driver{SQLite, Postgres, MySQL}
}

// Rebind rewrites '?' placeholders into the driver's bind syntax. Queries
// never carry literal question marks, values always travel as arguments.
func (d Driver) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// returning reports whether generated keys are read with RETURNING rather
// than the driver's LastInsertId.
func (d Driver) returning() bool {
	return d == Postgres
}
