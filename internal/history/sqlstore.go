package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-map/internal/common"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			default_city TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			city TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON history (user_id)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			default_city TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			city TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON history (user_id)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(191) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL,
			default_city VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			city VARCHAR(255) NOT NULL,
			INDEX idx_history_user (user_id)
		)`,
	},
}

// SQLStore is a Store over database/sql. The same queries serve SQLite,
// PostgreSQL and MySQL; only DDL and placeholders differ.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens the database, waits for it to answer and creates the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	ddl, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping is used by the health endpoint.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
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

func (s *SQLStore) userID(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM users WHERE username = ?`), username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user %s: %w", username, err)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	// sqlite: "UNIQUE constraint failed", postgres: SQLSTATE 23505, mysql: Error 1062 "Duplicate entry".
	return common.ContainsAnyFold(err.Error(), "unique constraint", "23505", "duplicate entry")
}

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (username, password) VALUES (?, ?)`), username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) PasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT password FROM users WHERE username = ?`), username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup password: %w", err)
	}
	return hash, nil
}

func (s *SQLStore) DeleteUser(ctx context.Context, username string) error {
	id, err := s.userID(ctx, username)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM history WHERE user_id = ?`), id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Append(ctx context.Context, username, city string) error {
	id, err := s.userID(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO history (user_id, city) VALUES (?, ?)`), id, city); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, username string) ([]Entry, error) {
	id, err := s.userID(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT city FROM history WHERE user_id = ? ORDER BY id DESC`), id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.City); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) Clear(ctx context.Context, username string) error {
	id, err := s.userID(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM history WHERE user_id = ?`), id); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *SQLStore) TopCities(ctx context.Context, username string, limit int) ([]string, error) {
	id, err := s.userID(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT city FROM history
		WHERE user_id = ?
		GROUP BY city
		ORDER BY COUNT(*) DESC, city ASC
		LIMIT ?`), id, limit)
	if err != nil {
		return nil, fmt.Errorf("query top cities: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("scan top cities: %w", err)
		}
		out = append(out, city)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetDefaultCity(ctx context.Context, username, city string) error {
	id, err := s.userID(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET default_city = ? WHERE id = ?`), city, id); err != nil {
		return fmt.Errorf("set default city: %w", err)
	}
	return nil
}

func (s *SQLStore) DefaultCity(ctx context.Context, username string) (string, error) {
	var city sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT default_city FROM users WHERE username = ?`), username).Scan(&city)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup default city: %w", err)
	}
	return city.String, nil
}
