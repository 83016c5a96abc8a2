package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"   // postgres driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/kailas-cloud/nearlot/internal/db"
	"github.com/kailas-cloud/nearlot/internal/logger"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Dialect selects the SQL flavour.
type Dialect string

// Supported dialects. Values double as database/sql driver names.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config holds connection parameters for a SQL store.
type Config struct {
	Dialect Dialect
	DSN     string
}

// Store implements db.Store over database/sql. Records live in one table as
// JSON bodies; indexed fields are mirrored into record_index with a bytewise
// collation so range scans follow the same order as the redis driver.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore opens the database and creates the tables if missing.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Dialect != DialectSQLite && cfg.Dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	conn, err := sql.Open(string(cfg.Dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Dialect == DialectSQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent scans.
		conn.SetMaxOpenConns(1)
	}

	s := &Store{db: conn, dialect: cfg.Dialect}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	collate := ""
	if s.dialect == DialectPostgres {
		collate = ` COLLATE "C"`
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			id TEXT` + collate + ` NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE TABLE IF NOT EXISTS record_index (
			collection TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT` + collate + ` NOT NULL,
			id TEXT` + collate + ` NOT NULL,
			PRIMARY KEY (collection, field, value, id)
		)`,
		`CREATE INDEX IF NOT EXISTS record_index_by_id ON record_index (collection, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Insert stores a new record and its index rows.
func (s *Store) Insert(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	body, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.exists(ctx, tx, schema.Collection, rec.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("insert %s/%s: %w", schema.Collection, rec.ID, db.ErrKeyExists)
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO records (collection, id, body) VALUES (?, ?, ?)`),
			schema.Collection, rec.ID, string(body)); err != nil {
			return &db.Error{Op: db.OpInsert, Err: err}
		}
		return s.writeIndex(ctx, tx, schema, rec)
	})
}

// Update replaces a record's fields and rebuilds its index rows.
func (s *Store) Update(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	body, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.rebind(`UPDATE records SET body = ? WHERE collection = ? AND id = ?`),
			string(body), schema.Collection, rec.ID)
		if err != nil {
			return &db.Error{Op: db.OpUpdate, Err: err}
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update %s/%s: %w", schema.Collection, rec.ID, db.ErrKeyNotFound)
		}
		if err := s.dropIndex(ctx, tx, schema.Collection, rec.ID); err != nil {
			return err
		}
		return s.writeIndex(ctx, tx, schema, rec)
	})
}

// Delete removes a record and its index rows.
func (s *Store) Delete(ctx context.Context, schema *db.Schema, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.rebind(`DELETE FROM records WHERE collection = ? AND id = ?`),
			schema.Collection, id)
		if err != nil {
			return &db.Error{Op: db.OpDelete, Err: err}
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("delete %s/%s: %w", schema.Collection, id, db.ErrKeyNotFound)
		}
		return s.dropIndex(ctx, tx, schema.Collection, id)
	})
}

// Get returns one record by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (db.Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT body FROM records WHERE collection = ? AND id = ?`),
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Record{}, fmt.Errorf("get %s/%s: %w", collection, id, db.ErrKeyNotFound)
	}
	if err != nil {
		return db.Record{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	return decodeRecord(id, body)
}

// RangeScan returns records whose indexed field lies in [q.Lower, q.Upper).
// An empty Upper leaves the range open.
func (s *Store) RangeScan(ctx context.Context, q *db.RangeQuery) ([]db.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrInvalidKey, err)
	}
	query := `SELECT r.id, r.body FROM record_index i
		JOIN records r ON r.collection = i.collection AND r.id = i.id
		WHERE i.collection = ? AND i.field = ? AND i.value >= ?`
	args := []any{q.Collection, q.Field, q.Lower}
	if q.Upper != "" {
		query += ` AND i.value < ?`
		args = append(args, q.Upper)
	}
	query += ` ORDER BY i.value, i.id`
	return s.query(ctx, query, args...)
}

// FindBy returns records whose indexed field equals value, ordered by ID.
func (s *Store) FindBy(ctx context.Context, collection, field, value string) ([]db.Record, error) {
	return s.query(ctx, `SELECT r.id, r.body FROM record_index i
		JOIN records r ON r.collection = i.collection AND r.id = i.id
		WHERE i.collection = ? AND i.field = ? AND i.value = ?
		ORDER BY i.id`, collection, field, value)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]db.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := []db.Record{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		rec, err := decodeRecord(id, body)
		if err != nil {
			// A corrupt body drops only its own record.
			logger.FromContext(ctx).Warn("skipping undecodable record",
				zap.String("record_id", id),
				zap.Error(err),
			)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

func (s *Store) exists(ctx context.Context, tx *sql.Tx, collection, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM records WHERE collection = ? AND id = ?`),
		collection, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &db.Error{Op: db.OpSelect, Err: err}
	}
	return true, nil
}

func (s *Store) writeIndex(ctx context.Context, tx *sql.Tx, schema *db.Schema, rec db.Record) error {
	stmt := s.rebind(`INSERT INTO record_index (collection, field, value, id) VALUES (?, ?, ?, ?)`)
	for _, field := range schema.Indexed {
		v, ok := rec.Fields[field]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt, schema.Collection, field, v, rec.ID); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("index %s: %w", field, err)}
		}
	}
	return nil
}

func (s *Store) dropIndex(ctx context.Context, tx *sql.Tx, collection, id string) error {
	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM record_index WHERE collection = ? AND id = ?`),
		collection, id); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func decodeRecord(id, body string) (db.Record, error) {
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return db.Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return db.Record{ID: id, Fields: fields}, nil
}

func validateRecord(rec db.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record ID is required", db.ErrInvalidKey)
	}
	if len(rec.Fields) == 0 {
		return fmt.Errorf("%w: record %s has no fields", db.ErrInvalidKey, rec.ID)
	}
	return nil
}
