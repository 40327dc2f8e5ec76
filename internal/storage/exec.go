package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/repository"
)

// logger returns the request's logger tagged as storage.
func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentStorage)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// withConn scopes one connection to fn. The connection is released on every
// path; statement failures are wrapped with the operation name.
func withConn(ctx context.Context, gw Gateway, op string, fn func(conn *sql.Conn) error) error {
	conn, err := gw.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := fn(conn); err != nil {
		return &OperationError{Op: op, Err: err}
	}
	return nil
}

// insert runs an INSERT and returns the generated id.
func insert(ctx context.Context, gw Gateway, op, query string, args ...any) (int64, error) {
	d := gw.Driver()
	var id int64
	err := withConn(ctx, gw, op, func(conn *sql.Conn) error {
		if d.returning() {
			return conn.QueryRowContext(ctx, d.Rebind(query+" RETURNING id"), args...).Scan(&id)
		}
		res, err := conn.ExecContext(ctx, d.Rebind(query), args...)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read generated id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// update runs an UPDATE keyed by id. No matched row is reported as
// repository.ErrNotFound.
func update(ctx context.Context, gw Gateway, op, query string, args ...any) error {
	d := gw.Driver()
	return withConn(ctx, gw, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, d.Rebind(query), args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read affected rows: %w", err)
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// exec runs a statement and returns the number of affected rows.
func exec(ctx context.Context, gw Gateway, op, query string, args ...any) (int64, error) {
	d := gw.Driver()
	var n int64
	err := withConn(ctx, gw, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, d.Rebind(query), args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// queryOne reads at most one row. No row is reported with found == false.
func queryOne[T any](ctx context.Context, gw Gateway, op string, scan func(rowScanner) (T, error), query string, args ...any) (T, bool, error) {
	d := gw.Driver()
	var (
		out   T
		found bool
	)
	err := withConn(ctx, gw, op, func(conn *sql.Conn) error {
		v, err := scan(conn.QueryRowContext(ctx, d.Rebind(query), args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out, found = v, true
		return nil
	})
	return out, found, err
}

// queryAll maps every returned row with scan.
func queryAll[T any](ctx context.Context, gw Gateway, op string, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	d := gw.Driver()
	var out []T
	err := withConn(ctx, gw, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, d.Rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// timeLayouts covers how the supported drivers hand back DATE, DATETIME and
// TIMESTAMP values when they are not already time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	core.DateLayout,
}

// timeValue converts store date/time values to time.Time.
type timeValue struct {
	Time time.Time
}

func (t *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

// dateArg binds a calendar date as YYYY-MM-DD text, which every supported
// store compares and casts as a date.
func dateArg(d core.Date) string {
	return d.Format(core.DateLayout)
}
