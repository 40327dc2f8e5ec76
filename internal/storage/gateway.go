package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Gateway hands out one live connection per logical operation. Callers must
// Close the connection on every exit path.
type Gateway interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Driver() Driver
}

// Config locates the store. For SQLite URL is a file path and the
// credentials are ignored; for PostgreSQL it is a postgres:// URL; for MySQL
// it is a go-sql-driver DSN such as "tcp(localhost:3306)/expensetracker".
type Config struct {
	Driver   Driver
	URL      string
	User     string
	Password string
}

// DBGateway is the database/sql backed Gateway. It keeps no idle
// connections, so a released handle is closed rather than reused.
type DBGateway struct {
	db     *sql.DB
	driver Driver
}

// Open prepares a gateway without connecting; the first Acquire dials.
func Open(cfg Config) (*DBGateway, error) {
	db, err := openDB(cfg, false)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(0)
	return &DBGateway{db: db, driver: cfg.Driver}, nil
}

// Acquire opens a dedicated connection for one operation.
func (g *DBGateway) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Driver: g.driver, Err: err}
	}
	return conn, nil
}

func (g *DBGateway) Driver() Driver {
	return g.driver
}

// Ping acquires and releases a connection, verifying the store is reachable.
func (g *DBGateway) Ping(ctx context.Context) error {
	conn, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		return &ConnectionError{Driver: g.driver, Err: err}
	}
	return nil
}

func (g *DBGateway) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

// openDB opens a handle for cfg. multiStatements allows several statements
// per Exec, which only migration files need.
func openDB(cfg Config, multiStatements bool) (*sql.DB, error) {
	switch cfg.Driver {
	case SQLite:
		return openSQLite(cfg.URL)
	case Postgres:
		return openPostgres(cfg)
	case MySQL:
		mc, err := mysqlConfig(cfg, multiStatements)
		if err != nil {
			return nil, err
		}
		return openMySQL(mc)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	// Pragmas are per connection; every fresh handle gets them from the DSN.
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	db, err := sql.Open("sqlite", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return db, nil
}

func openPostgres(cfg Config) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.User != "" {
		connConfig.User = cfg.User
	}
	if cfg.Password != "" {
		connConfig.Password = cfg.Password
	}
	return stdlib.OpenDB(*connConfig), nil
}

func mysqlConfig(cfg Config, multiStatements bool) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(strings.TrimPrefix(cfg.URL, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.User != "" {
		mc.User = cfg.User
	}
	if cfg.Password != "" {
		mc.Passwd = cfg.Password
	}
	mc.ParseTime = true
	// Report matched rather than changed rows so an UPDATE that rewrites
	// identical values is not mistaken for a missing row.
	mc.ClientFoundRows = true
	mc.MultiStatements = multiStatements
	return mc, nil
}

func openMySQL(mc *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}
