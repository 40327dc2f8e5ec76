package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/repository"

	"github.com/shopspring/decimal"
)

func newTestGateway(t *testing.T) *DBGateway {
	t.Helper()
	cfg := Config{Driver: SQLite, URL: filepath.Join(t.TempDir(), "data", "test.db")}
	if err := RunMigrations(cfg); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	// Applying twice is a no-op.
	if err := RunMigrations(cfg); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
	gw, err := Open(cfg)
	if err != nil {
		t.Fatalf("open gateway: %v", err)
	}
	t.Cleanup(func() { gw.Close() })
	return gw
}

func mustUser(t *testing.T, repo *UserRepository, name, email string) core.User {
	t.Helper()
	u := core.User{Name: name, Email: email}
	if err := repo.Save(context.Background(), &u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u
}

func mustCategory(t *testing.T, repo *CategoryRepository, userID int64, name string) core.Category {
	t.Helper()
	c := core.Category{UserID: userID, Name: name}
	if err := repo.Save(context.Background(), &c); err != nil {
		t.Fatalf("save category: %v", err)
	}
	return c
}

func TestGatewayPing(t *testing.T) {
	gw := newTestGateway(t)
	if err := gw.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if gw.Driver() != SQLite {
		t.Fatalf("unexpected driver %s", gw.Driver())
	}
}

func TestUserRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestGateway(t))

	u := mustUser(t, repo, "Ada", "ada@example.com")
	if !u.ID.IsPersisted() || u.ID.Value() <= 0 {
		t.Fatalf("expected a positive generated id, got %v", u.ID)
	}

	got, found, err := repo.FindByID(ctx, u.ID.Value())
	if err != nil || !found {
		t.Fatalf("find by id: found=%v err=%v", found, err)
	}
	if got.ID != u.ID || got.Name != "Ada" || got.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at should be set by the store")
	}

	byEmail, found, err := repo.FindByEmail(ctx, "ada@example.com")
	if err != nil || !found || byEmail.ID != u.ID {
		t.Fatalf("find by email: got=%+v found=%v err=%v", byEmail, found, err)
	}
}

func TestUserRepository_AbsentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestGateway(t))

	if _, found, err := repo.FindByID(ctx, 12345); err != nil || found {
		t.Fatalf("expected absent, got found=%v err=%v", found, err)
	}
	if _, found, err := repo.FindByEmail(ctx, "nobody@example.com"); err != nil || found {
		t.Fatalf("expected absent, got found=%v err=%v", found, err)
	}
	all, err := repo.FindAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("expected no users, got %v err=%v", all, err)
	}
}

func TestUserRepository_UpdateKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestGateway(t))

	u := mustUser(t, repo, "Ada", "ada@example.com")
	id := u.ID
	u.Name = "Ada Lovelace"
	if err := repo.Save(ctx, &u); err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.ID != id {
		t.Fatalf("update changed id from %v to %v", id, u.ID)
	}

	got, _, _ := repo.FindByID(ctx, id.Value())
	if got.Name != "Ada Lovelace" {
		t.Fatalf("update not stored: %+v", got)
	}

	all, err := repo.FindAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("update must not insert: %v err=%v", all, err)
	}
}

func TestUserRepository_UpdateMissingReportsNotFound(t *testing.T) {
	repo := NewUserRepository(newTestGateway(t))

	u := core.User{ID: core.PersistedID(999), Name: "Ghost", Email: "ghost@example.com"}
	err := repo.Save(context.Background(), &u)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "update user" {
		t.Fatalf("expected update user OperationError, got %v", err)
	}
	if u.ID != core.PersistedID(999) {
		t.Fatalf("failed update must not touch the id")
	}
}

func TestUserRepository_DuplicateEmailIsOperationError(t *testing.T) {
	repo := NewUserRepository(newTestGateway(t))
	mustUser(t, repo, "Ada", "ada@example.com")

	dup := core.User{Name: "Other", Email: "ada@example.com"}
	err := repo.Save(context.Background(), &dup)
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "insert user" {
		t.Fatalf("expected insert user OperationError, got %v", err)
	}
	if dup.ID.IsPersisted() {
		t.Fatalf("failed insert must leave the user unsaved")
	}
}

func TestUserRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestGateway(t))
	u := mustUser(t, repo, "Ada", "ada@example.com")

	for i := 0; i < 2; i++ {
		if err := repo.DeleteByID(ctx, u.ID.Value()); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if _, found, _ := repo.FindByID(ctx, u.ID.Value()); found {
		t.Fatalf("user still present after delete")
	}
	if err := repo.DeleteByID(ctx, 4242); err != nil {
		t.Fatalf("delete of unknown id: %v", err)
	}
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	users := NewUserRepository(gw)
	cats := NewCategoryRepository(gw)

	ada := mustUser(t, users, "Ada", "ada@example.com")
	bob := mustUser(t, users, "Bob", "bob@example.com")

	food := mustCategory(t, cats, ada.ID.Value(), "Food")
	mustCategory(t, cats, ada.ID.Value(), "Rent")
	mustCategory(t, cats, bob.ID.Value(), "Food")

	got, found, err := cats.FindByID(ctx, food.ID.Value())
	if err != nil || !found || got.UserID != ada.ID.Value() || got.Name != "Food" {
		t.Fatalf("find by id: got=%+v found=%v err=%v", got, found, err)
	}

	adas, err := cats.FindByUserID(ctx, ada.ID.Value())
	if err != nil || len(adas) != 2 {
		t.Fatalf("expected 2 categories for ada, got %v err=%v", adas, err)
	}

	byName, found, err := cats.FindByUserIDAndName(ctx, bob.ID.Value(), "Food")
	if err != nil || !found || byName.UserID != bob.ID.Value() {
		t.Fatalf("find by user and name: got=%+v found=%v err=%v", byName, found, err)
	}
	if _, found, _ := cats.FindByUserIDAndName(ctx, bob.ID.Value(), "Rent"); found {
		t.Fatalf("bob has no Rent category")
	}

	food.Name = "Groceries"
	if err := cats.Save(ctx, &food); err != nil {
		t.Fatalf("update category: %v", err)
	}
	got, _, _ = cats.FindByID(ctx, food.ID.Value())
	if got.Name != "Groceries" {
		t.Fatalf("update not stored: %+v", got)
	}

	if err := cats.DeleteByID(ctx, food.ID.Value()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cats.DeleteByID(ctx, food.ID.Value()); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestCategoryRepository_UnknownUserRejectedByStore(t *testing.T) {
	cats := NewCategoryRepository(newTestGateway(t))
	c := core.Category{UserID: 777, Name: "Orphan"}
	err := cats.Save(context.Background(), &c)
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "insert category" {
		t.Fatalf("expected insert category OperationError, got %v", err)
	}
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	users := NewUserRepository(gw)
	cats := NewCategoryRepository(gw)
	txs := NewTransactionRepository(gw)

	u := mustUser(t, users, "Ada", "ada@example.com")
	c := mustCategory(t, cats, u.ID.Value(), "Salary")

	tx := core.Transaction{
		UserID:      u.ID.Value(),
		CategoryID:  c.ID.Value(),
		Type:        core.Income,
		Amount:      decimal.RequireFromString("1234.5678"),
		Date:        core.NewDate(2025, 3, 15),
		Description: "March salary",
	}
	if err := txs.Save(ctx, &tx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !tx.ID.IsPersisted() || tx.ID.Value() <= 0 {
		t.Fatalf("expected generated id, got %v", tx.ID)
	}

	got, found, err := txs.FindByID(ctx, tx.ID.Value())
	if err != nil || !found {
		t.Fatalf("find: found=%v err=%v", found, err)
	}
	if got.UserID != tx.UserID || got.CategoryID != tx.CategoryID || got.Type != core.Income {
		t.Fatalf("unexpected transaction: %+v", got)
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Fatalf("amount drifted: stored %s, read %s", tx.Amount, got.Amount)
	}
	if got.Date.String() != "2025-03-15" || got.Description != "March salary" {
		t.Fatalf("unexpected date/description: %s %q", got.Date, got.Description)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps should be store-assigned: %+v", got)
	}

	tx.Description = ""
	tx.Type = core.Expense
	if err := txs.Save(ctx, &tx); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _, _ = txs.FindByID(ctx, tx.ID.Value())
	if got.Description != "" || got.Type != core.Expense || got.ID != tx.ID {
		t.Fatalf("update not stored: %+v", got)
	}

	all, err := txs.FindByUserID(ctx, u.ID.Value())
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one transaction, got %v err=%v", all, err)
	}
}

func TestTransactionRepository_DateRangeIsInclusive(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	users := NewUserRepository(gw)
	cats := NewCategoryRepository(gw)
	txs := NewTransactionRepository(gw)

	u := mustUser(t, users, "Ada", "ada@example.com")
	other := mustUser(t, users, "Bob", "bob@example.com")
	c := mustCategory(t, cats, u.ID.Value(), "Misc")
	oc := mustCategory(t, cats, other.ID.Value(), "Misc")

	add := func(userID, catID int64, d core.Date) {
		t.Helper()
		tx := core.Transaction{UserID: userID, CategoryID: catID, Type: core.Expense, Amount: decimal.NewFromInt(1), Date: d}
		if err := txs.Save(ctx, &tx); err != nil {
			t.Fatalf("save %s: %v", d, err)
		}
	}
	add(u.ID.Value(), c.ID.Value(), core.NewDate(2024, 1, 31))
	add(u.ID.Value(), c.ID.Value(), core.NewDate(2024, 2, 1))  // on from
	add(u.ID.Value(), c.ID.Value(), core.NewDate(2024, 2, 15))
	add(u.ID.Value(), c.ID.Value(), core.NewDate(2024, 2, 29)) // on to
	add(u.ID.Value(), c.ID.Value(), core.NewDate(2024, 3, 1))
	add(other.ID.Value(), oc.ID.Value(), core.NewDate(2024, 2, 10))

	got, err := txs.FindByUserIDAndDateRange(ctx, u.ID.Value(), core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 transactions, got %d: %+v", len(got), got)
	}
	if got[0].Date.String() != "2024-02-01" || got[2].Date.String() != "2024-02-29" {
		t.Fatalf("bounds not included: first=%s last=%s", got[0].Date, got[2].Date)
	}

	empty, err := txs.FindByUserIDAndDateRange(ctx, u.ID.Value(), core.NewDate(2023, 1, 1), core.NewDate(2023, 12, 31))
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty range, got %v err=%v", empty, err)
	}
}

func TestTransactionRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	u := mustUser(t, NewUserRepository(gw), "Ada", "ada@example.com")
	c := mustCategory(t, NewCategoryRepository(gw), u.ID.Value(), "Misc")
	txs := NewTransactionRepository(gw)

	tx := core.Transaction{UserID: u.ID.Value(), CategoryID: c.ID.Value(), Type: core.Income, Amount: decimal.NewFromInt(5), Date: core.NewDate(2025, 1, 1)}
	if err := txs.Save(ctx, &tx); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := txs.DeleteByID(ctx, tx.ID.Value()); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if _, found, _ := txs.FindByID(ctx, tx.ID.Value()); found {
		t.Fatalf("transaction still present")
	}
}

type failingGateway struct{ err error }

func (g failingGateway) Acquire(context.Context) (*sql.Conn, error) {
	return nil, &ConnectionError{Driver: SQLite, Err: g.err}
}

func (g failingGateway) Driver() Driver { return SQLite }

func TestRepositories_PropagateConnectionError(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("connection refused")
	gw := failingGateway{err: cause}

	_, _, err := NewUserRepository(gw).FindByID(ctx, 1)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || !errors.Is(err, cause) {
		t.Fatalf("expected ConnectionError wrapping cause, got %v", err)
	}

	c := core.Category{UserID: 1, Name: "x"}
	if err := NewCategoryRepository(gw).Save(ctx, &c); !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if err := NewTransactionRepository(gw).DeleteByID(ctx, 1); !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestDriverRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y BETWEEN ? AND ?"
	if got := SQLite.Rebind(q); got != q {
		t.Fatalf("sqlite must keep ? placeholders: %s", got)
	}
	if got := MySQL.Rebind(q); got != q {
		t.Fatalf("mysql must keep ? placeholders: %s", got)
	}
	want := "SELECT a FROM t WHERE x = $1 AND y BETWEEN $2 AND $3"
	if got := Postgres.Rebind(q); got != want {
		t.Fatalf("postgres rebind: got %s, want %s", got, want)
	}
}

func TestDriverIsValid(t *testing.T) {
	for _, d := range Drivers() {
		if !d.IsValid() {
			t.Fatalf("%s should be valid", d)
		}
	}
	if Driver("oracle").IsValid() {
		t.Fatalf("oracle should be invalid")
	}
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestTimeValueScan(t *testing.T) {
	want := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	cases := []any{
		want,
		"2025-03-01 10:30:00",
		[]byte("2025-03-01T10:30:00Z"),
	}
	for _, src := range cases {
		var tv timeValue
		if err := tv.Scan(src); err != nil {
			t.Fatalf("scan %v: %v", src, err)
		}
		if !tv.Time.Equal(want) {
			t.Fatalf("scan %v: got %v", src, tv.Time)
		}
	}

	var d timeValue
	if err := d.Scan("2024-02-29"); err != nil || core.DateOf(d.Time).String() != "2024-02-29" {
		t.Fatalf("date scan: %v %v", d.Time, err)
	}
	if err := d.Scan(nil); err != nil || !d.Time.IsZero() {
		t.Fatalf("nil scan should zero the time")
	}
	if err := d.Scan("not a time"); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := d.Scan(3.14); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestTransactionRepository_AmountKeepsEveryDigit(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	users := NewUserRepository(gw)
	cats := NewCategoryRepository(gw)
	txs := NewTransactionRepository(gw)

	u := mustUser(t, users, "Ada", "ada@example.com")
	c := mustCategory(t, cats, u.ID.Value(), "Misc")

	amounts := []string{
		"0.123456789",
		"0.000000000000000000000000000001",
		"12345678901234567890.123456789012345678901234567890",
		"0.1",
	}
	for _, a := range amounts {
		t.Run(a, func(t *testing.T) {
			tx := core.Transaction{
				UserID:     u.ID.Value(),
				CategoryID: c.ID.Value(),
				Type:       core.Expense,
				Amount:     decimal.RequireFromString(a),
				Date:       core.NewDate(2023, 2, 10),
			}
			if err := tx.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if err := txs.Save(ctx, &tx); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, _, err := txs.FindByID(ctx, tx.ID.Value())
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if !got.Amount.Equal(tx.Amount) {
				t.Fatalf("amount rounded: stored %s, read %s", tx.Amount, got.Amount)
			}
		})
	}
}

// Server-side schemas must not round amounts that core.FitsStorage accepts.
func TestMigrations_AmountColumnPrecision(t *testing.T) {
	tests := []struct {
		driver string
		want   *regexp.Regexp
	}{
		{"postgres", regexp.MustCompile(`(?m)^\s*amount\s+NUMERIC\s+NOT NULL`)},
		{"mysql", regexp.MustCompile(`(?m)^\s*amount\s+DECIMAL\(65, 30\)\s+NOT NULL`)},
		{"sqlite", regexp.MustCompile(`(?m)^\s*amount\s+TEXT\s+NOT NULL`)},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			body, err := migrationsFS.ReadFile("migrations/" + tt.driver + "/000001_create_tables.up.sql")
			if err != nil {
				t.Fatalf("read migration: %v", err)
			}
			if !tt.want.Match(body) {
				t.Fatalf("amount column does not match %s", tt.want)
			}
		})
	}
	if core.MaxAmountScale != 30 || core.MaxAmountIntDigits != 65-30 {
		t.Fatalf("amount bounds drifted from DECIMAL(65, 30)")
	}
}

func TestMySQLConfig(t *testing.T) {
	cfg := Config{Driver: MySQL, URL: "mysql://tcp(localhost:3306)/expensetracker", User: "app", Password: "secret"}

	app, err := mysqlConfig(cfg, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if app.MultiStatements {
		t.Error("application connections must not allow stacked statements")
	}
	if !app.ParseTime || !app.ClientFoundRows {
		t.Errorf("ParseTime=%v ClientFoundRows=%v, want both set", app.ParseTime, app.ClientFoundRows)
	}
	if app.User != "app" || app.Passwd != "secret" || app.DBName != "expensetracker" {
		t.Errorf("unexpected config: user=%q db=%q", app.User, app.DBName)
	}

	migrations, err := mysqlConfig(cfg, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !migrations.MultiStatements {
		t.Error("migration connections need stacked statements")
	}

	if _, err := mysqlConfig(Config{Driver: MySQL, URL: "not a dsn"}, false); err == nil {
		t.Error("expected error for malformed dsn")
	}
}

func TestRepositories_SaveLeavesTimestampsToTheStore(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t)
	users := NewUserRepository(gw)
	txs := NewTransactionRepository(gw)

	u := mustUser(t, users, "Ada", "ada@example.com")
	if !u.CreatedAt.IsZero() {
		t.Fatalf("saved user must keep a zero CreatedAt, got %v", u.CreatedAt)
	}
	c := mustCategory(t, NewCategoryRepository(gw), u.ID.Value(), "Food")

	tx := core.Transaction{UserID: u.ID.Value(), CategoryID: c.ID.Value(), Type: core.Expense, Amount: decimal.NewFromInt(3), Date: core.NewDate(2025, 1, 2)}
	if err := txs.Save(ctx, &tx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !tx.CreatedAt.IsZero() || !tx.UpdatedAt.IsZero() {
		t.Fatalf("saved transaction must keep zero timestamps, got %+v", tx)
	}
	got, _, _ := txs.FindByID(ctx, tx.ID.Value())
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("stored row must be timestamped, got %+v", got)
	}
}

func TestRepositories_LogThroughContextLogger(t *testing.T) {
	gw := newTestGateway(t)
	var buf bytes.Buffer
	ctx := applog.NewContext(context.Background(), applog.New(applog.Config{
		Component: applog.ComponentCLI,
		Output:    &buf,
		Level:     slog.LevelDebug,
	}))

	users := NewUserRepository(gw)
	u := core.User{Name: "Ada", Email: "ada@example.com"}
	if err := users.Save(ctx, &u); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := users.DeleteByID(ctx, u.ID.Value()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	tests := []struct {
		msg string
		op  string
	}{
		{"User saved", applog.OpCreate},
		{"User delete completed", applog.OpDelete},
	}
	if len(lines) != len(tests) {
		t.Fatalf("expected %d records, got %q", len(tests), buf.String())
	}
	for i, tt := range tests {
		for _, want := range []string{tt.msg, "component=storage", "operation=" + tt.op} {
			if !strings.Contains(lines[i], want) {
				t.Errorf("record %d missing %q: %s", i, want, lines[i])
			}
		}
		if strings.Contains(lines[i], "component=cli") {
			t.Errorf("record %d kept the caller component: %s", i, lines[i])
		}
	}
}
