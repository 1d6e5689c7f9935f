package sde

import (
	"database/sql"
	"fmt"

	"eve-intel/internal/graph"

	_ "modernc.org/sqlite"
)

// Schema is the layout of a SQLite universe snapshot.
const Schema = `
	CREATE TABLE IF NOT EXISTS systems (
		id            INTEGER PRIMARY KEY,
		name          TEXT NOT NULL,
		constellation TEXT NOT NULL DEFAULT '',
		region        TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS jumps (
		from_id INTEGER NOT NULL,
		to_id   INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS aliases (
		alias     TEXT NOT NULL,
		system_id INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ships (
		name TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS stop_words (
		word TEXT PRIMARY KEY
	);
`

// LoadSQLite opens a SQLite universe snapshot read-only and loads it.
func LoadSQLite(path string) (*graph.Universe, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping snapshot: %w", err)
	}
	return loadSQL(db)
}

func loadSQL(db *sql.DB) (*graph.Universe, error) {
	u := graph.NewUniverse()

	err := eachRow(db, "SELECT id, name, constellation, region FROM systems", func(rows *sql.Rows) error {
		s := &graph.System{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Constellation, &s.Region); err != nil {
			return err
		}
		u.AddSystem(s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load systems: %w", err)
	}

	err = eachRow(db, "SELECT from_id, to_id FROM jumps", func(rows *sql.Rows) error {
		var from, to int32
		if err := rows.Scan(&from, &to); err != nil {
			return err
		}
		u.AddGate(from, to)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load jumps: %w", err)
	}

	err = eachRow(db, "SELECT alias, system_id FROM aliases", func(rows *sql.Rows) error {
		var alias string
		var id int32
		if err := rows.Scan(&alias, &id); err != nil {
			return err
		}
		u.AddAlias(alias, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}

	err = eachRow(db, "SELECT name FROM ships", func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		u.AddShip(name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load ships: %w", err)
	}

	err = eachRow(db, "SELECT word FROM stop_words", func(rows *sql.Rows) error {
		var word string
		if err := rows.Scan(&word); err != nil {
			return err
		}
		u.AddStopWord(word)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load stop words: %w", err)
	}
	return u, nil
}

func eachRow(db *sql.DB, query string, fn func(*sql.Rows) error) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
