package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/schema"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS variables (
	name       TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store implements ports.VariableStore on a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts a variable.
func (s *Store) Save(ctx context.Context, v domain.Variable) error {
	data, err := json.Marshal(v.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal variable %s: %w", v.Name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO variables (name, type, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET type = excluded.type, value = excluded.value, updated_at = excluded.updated_at`,
		v.Name, v.TypeName(), string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save variable %s: %w", v.Name, err)
	}
	return nil
}

// Load retrieves a variable, restoring its type from the stored tag.
func (s *Store) Load(ctx context.Context, name string) (domain.Variable, error) {
	var typeName, raw string
	err := s.db.QueryRowContext(ctx, `SELECT type, value FROM variables WHERE name = ?`, name).Scan(&typeName, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Variable{}, domain.ErrVariableNotFound
	}
	if err != nil {
		return domain.Variable{}, fmt.Errorf("failed to load variable %s: %w", name, err)
	}

	typ, err := schema.ParseType(typeName)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("variable %s: %w", name, err)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return domain.Variable{}, fmt.Errorf("failed to unmarshal variable %s: %w", name, err)
	}
	return domain.Variable{Name: name, Value: schema.Normalize(typ, value), Type: typ}, nil
}

// Delete removes a variable.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM variables WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete variable %s: %w", name, err)
	}
	return nil
}

// List returns the stored names in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM variables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
