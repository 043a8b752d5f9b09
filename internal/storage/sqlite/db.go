package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"shopforge/internal/pipeline"
)

// InitDB opens the experiment log database, creating the schema on first
// use.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		ts         DATETIME NOT NULL,
		handle     TEXT NOT NULL,
		old_title  TEXT NOT NULL,
		new_title  TEXT NOT NULL,
		old_price  TEXT DEFAULT '',
		base       TEXT DEFAULT '',
		plus10     TEXT DEFAULT '',
		minus10    TEXT DEFAULT '',
		notes      TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_experiments_handle ON experiments(handle);
	CREATE INDEX IF NOT EXISTS idx_experiments_ts ON experiments(ts);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// InsertExperiments appends one optimizer run's records in a single
// transaction.
func InsertExperiments(db *sql.DB, items []pipeline.Experiment) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO experiments (ts, handle, old_title, new_title, old_price, base, plus10, minus10, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, e := range items {
		_, err := stmt.Exec(now, e.Handle, e.OldTitle, e.NewTitle, e.OldPrice, e.Base, e.Plus10, e.Minus10, e.Notes)
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

// ExperimentsForHandle returns past price experiments for one product,
// newest first.
func ExperimentsForHandle(db *sql.DB, handle string, limit int) ([]pipeline.Experiment, error) {
	rows, err := db.Query(
		`SELECT handle, old_title, new_title, old_price, base, plus10, minus10, notes
		 FROM experiments WHERE handle = ? ORDER BY ts DESC LIMIT ?`, handle, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Experiment
	for rows.Next() {
		var e pipeline.Experiment
		if err := rows.Scan(&e.Handle, &e.OldTitle, &e.NewTitle, &e.OldPrice, &e.Base, &e.Plus10, &e.Minus10, &e.Notes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
