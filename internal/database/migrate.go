package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sort"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded SQL migrations in filename order.  Applied
// filenames are recorded in schema_migrations, and a MySQL named lock keeps
// concurrently starting instances from racing each other.
func Migrate(ctx context.Context, db *sql.DB) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	var locked int
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK('schema_migrations', 30)`).Scan(&locked); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if locked != 1 {
		return fmt.Errorf("migration lock held by another instance")
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, `SELECT RELEASE_LOCK('schema_migrations')`); err != nil {
			log.Printf("migrate: release lock: %v", err)
		}
	}()

	const track = `CREATE TABLE IF NOT EXISTS schema_migrations (
	    filename   VARCHAR(255) NOT NULL,
	    applied_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    PRIMARY KEY (filename)
	) ENGINE = InnoDB`
	if _, err := conn.ExecContext(ctx, track); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, name := range names {
		var exists int
		err := conn.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE filename = ?`, name).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		raw, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(raw)) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
		if _, err := conn.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES (?)`, name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		log.Printf("migrate: applied %s", name)
	}
	return nil
}

// splitStatements breaks a migration file into individual statements on the
// trailing semicolon.  The MySQL driver executes one statement per call.
func splitStatements(script string) []string {
	var out []string
	var stmt []rune
	for _, r := range script {
		stmt = append(stmt, r)
		if r == ';' {
			out = append(out, string(stmt))
			stmt = stmt[:0]
		}
	}
	trimmed := make([]string, 0, len(out))
	for _, s := range out {
		if hasSQL(s) {
			trimmed = append(trimmed, s)
		}
	}
	return trimmed
}

func hasSQL(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', ';':
		default:
			return true
		}
	}
	return false
}
