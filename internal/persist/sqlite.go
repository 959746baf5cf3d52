package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/holmsten/stepwise/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tours (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite persists tour documents in a single-table SQLite database.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("persist: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// SaveTour upserts the tour's JSON document.
func (s *SQLite) SaveTour(t models.Tour) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("persist: marshal tour %s: %w", t.ID, err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO tours (id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document   = excluded.document,
			updated_at = excluded.updated_at
	`, t.ID, string(doc), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("persist: upsert tour %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTour removes the tour row. Deleting an absent row is fine.
func (s *SQLite) DeleteTour(id string) error {
	if _, err := s.conn.Exec(`DELETE FROM tours WHERE id = ?`, id); err != nil {
		return fmt.Errorf("persist: delete tour %s: %w", id, err)
	}
	return nil
}

// LoadAll decodes every stored tour document.
func (s *SQLite) LoadAll() ([]models.Tour, error) {
	rows, err := s.conn.Query(`SELECT document FROM tours`)
	if err != nil {
		return nil, fmt.Errorf("persist: load tours: %w", err)
	}
	defer rows.Close()

	var out []models.Tour
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var t models.Tour
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, fmt.Errorf("persist: decode tour document: %w", err)
		}
		if t.Steps == nil {
			t.Steps = []models.TourStep{}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
