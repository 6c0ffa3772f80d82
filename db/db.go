package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"micmd/model"
	"micmd/shortcut"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrExists   = errors.New("command already exists")
	ErrNotFound = errors.New("command not found")
)

type DB struct {
	conn  *sql.DB
	rules shortcut.Rules
}

// DefaultPath is ~/.micmd/commands.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".micmd", "commands.db"), nil
}

// New opens (creating if needed) the saved-command database at path.
// reserved lists shortcuts that may never be bound.
func New(path string, reserved []string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, rules: shortcut.NewRules(reserved)}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS saved_commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			method TEXT NOT NULL,
			params TEXT NOT NULL DEFAULT '',
			shortcut TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_saved_commands_shortcut ON saved_commands(shortcut);
	`)
	return err
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) List() ([]model.SavedCommand, error) {
	rows, err := d.conn.Query(`
		SELECT id, name, method, params, shortcut, created_at, last_used_at
		FROM saved_commands
		ORDER BY last_used_at DESC NULLS LAST, created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []model.SavedCommand
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

// Get returns the command named name, or ErrNotFound.
func (d *DB) Get(name string) (model.SavedCommand, error) {
	row := d.conn.QueryRow(`
		SELECT id, name, method, params, shortcut, created_at, last_used_at
		FROM saved_commands WHERE name = ?
	`, name)
	c, err := scanCommand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SavedCommand{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommand(s scanner) (model.SavedCommand, error) {
	var c model.SavedCommand
	var lastUsed sql.NullTime
	if err := s.Scan(&c.ID, &c.Name, &c.Method, &c.Params, &c.Shortcut, &c.CreatedAt, &lastUsed); err != nil {
		return c, err
	}
	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}
	return c, nil
}

// Create inserts a new command. A name that is already taken yields ErrExists.
func (d *DB) Create(c model.SavedCommand) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("command name is required")
	}
	_, err := d.conn.Exec(
		`INSERT INTO saved_commands (name, method, params, shortcut) VALUES (?, ?, ?, ?)`,
		c.Name, c.Method, c.Params, c.Shortcut,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q", ErrExists, c.Name)
	}
	return err
}

// Update replaces method, params and shortcut of the command with the same name.
func (d *DB) Update(c model.SavedCommand) error {
	result, err := d.conn.Exec(
		`UPDATE saved_commands SET method = ?, params = ?, shortcut = ? WHERE name = ?`,
		c.Method, c.Params, c.Shortcut, c.Name,
	)
	if err != nil {
		return err
	}
	return expectOne(result, c.Name)
}

func (d *DB) Delete(name string) error {
	result, err := d.conn.Exec(`DELETE FROM saved_commands WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return expectOne(result, name)
}

func (d *DB) MarkUsed(name string) error {
	result, err := d.conn.Exec(
		`UPDATE saved_commands SET last_used_at = ? WHERE name = ?`,
		time.Now(), name,
	)
	if err != nil {
		return err
	}
	return expectOne(result, name)
}

// CheckShortcut rejects shortcuts that are malformed, reserved, or already
// bound to a command other than owner.
func (d *DB) CheckShortcut(sc, owner string) error {
	if err := d.rules.Check(sc); err != nil {
		return err
	}

	var other string
	err := d.conn.QueryRow(
		`SELECT name FROM saved_commands WHERE shortcut = ? AND name != ? LIMIT 1`,
		sc, owner,
	).Scan(&other)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("shortcut is already in use by %q", other)
}

func expectOne(result sql.Result, name string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
