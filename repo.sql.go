package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // sql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // sql dialect
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	tableBooks  = "books"
	tableLoans  = "loans"
	colID       = "id"
	colTitle    = "title"
	colAuthor   = "author"
	colIsbn     = "isbn"
	colBookID   = "book_id"
	colCustomer = "customer"
	colLoanDate = "loan_date"
	colReturned = "returned"

	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	// sqliteLowerFunc folds text like strings.ToLower since the
	// builtin LOWER of sqlite only folds ascii letters.
	sqliteLowerFunc = "unicode_lower"

	sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id BIGSERIAL PRIMARY KEY,
		book_id BIGINT NOT NULL REFERENCES books (id) ON DELETE RESTRICT,
		customer TEXT NOT NULL,
		loan_date DATE NOT NULL,
		returned BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS loans_customer_idx ON loans (customer)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loans_outstanding_book_idx ON loans (book_id) WHERE returned = FALSE`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE RESTRICT,
		customer TEXT NOT NULL,
		loan_date DATE NOT NULL,
		returned BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS loans_customer_idx ON loans (customer)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loans_outstanding_book_idx ON loans (book_id) WHERE returned = 0`,
}

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLowerFunc, 1, sqliteLower)
}

// sqliteLower implements the unicode_lower sql function.
func sqliteLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// sqlStore holds what both sql-based storages share.
type sqlStore struct {
	logger  *zap.Logger
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	// returning tells if the dialect can return the inserted id.
	returning bool
	// lower is the sql function used to fold the case of a column.
	lower string
}

func newSQLStore(logger *zap.Logger, db *sqlx.DB) sqlStore {
	dialect := SQLDialect(db.DriverName())
	lower := "LOWER"
	if dialect == dialectSQLite {
		lower = sqliteLowerFunc
	}
	return sqlStore{
		logger:    logger,
		db:        db,
		dialect:   goqu.Dialect(dialect),
		returning: dialect == dialectPostgres,
		lower:     lower,
	}
}

// GetDatabaseClient opens a connection pool to the configured database
// and checks it can be reached.
func GetDatabaseClient(config *Config) (*sqlx.DB, error) {
	dsn := config.Database.DSN
	if config.Database.Driver == DriverSQLite {
		var err error
		if dsn, err = prepareSQLiteDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(config.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %v", err)
	}

	if config.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.Database.MaxOpenConns)
	}
	if config.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.Database.MaxIdleConns)
	}
	db.SetConnMaxLifetime(config.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.Database.ConnMaxIdleTime)

	// test connection.
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return db, nil
}

// prepareSQLiteDSN ensures the database folder exists and the
// pragmas are applied on every pooled connection.
func prepareSQLiteDSN(dsn string) (string, error) {
	path := strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:")
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return dsn, fmt.Errorf("failed to create database folder: %v", err)
		}
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn, nil
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas, nil
	}
	return dsn + "?" + sqlitePragmas, nil
}

// SQLDialect returns the goqu dialect name for a driver name.
func SQLDialect(driver string) string {
	if driver == DriverSQLite {
		return dialectSQLite
	}
	return dialectPostgres
}

// MigrateSchema creates the tables and indexes if they do not exist yet.
// The partial unique index on open loans backs the one outstanding loan
// per book rule at storage level.
func MigrateSchema(ctx context.Context, db *sqlx.DB) error {
	schema := postgresSchema
	if SQLDialect(db.DriverName()) == dialectSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation checks the driver error code for a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

// isForeignKeyViolation checks the driver error code for a foreign key failure.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgForeignKeyViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
			(liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "FOREIGN KEY"))
	}
	return false
}

// containsIgnoreCase builds a case-insensitive substring predicate.
// Both sides are folded with unicode rules.
func (s sqlStore) containsIgnoreCase(column, value string) goqu.Expression {
	pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
	return goqu.L(s.lower+"(?) LIKE ? ESCAPE '!'", goqu.I(column), pattern)
}

// checkAffected returns notFound when the statement touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// escapeLike neutralizes the LIKE wildcards found in user input.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// logQuery prints the executed sql at debug level.
func (s sqlStore) logQuery(action, query string, args []interface{}) {
	s.logger.Debug("sql: executed query", zap.String("sql.action", action), zap.String("sql.query", query), zap.Int("sql.args", len(args)))
}
