package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := "CREATE TABLE a (id INT);\n\nCREATE TABLE b (id INT);\n"

	stmts := splitStatements(script)

	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE TABLE b")
}

func TestSplitStatements_IgnoresTrailingWhitespace(t *testing.T) {
	assert.Empty(t, splitStatements("   \n\t"))
	assert.Len(t, splitStatements("SELECT 1;  \n  "), 1)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	raw, err := migrationFiles.ReadFile("migrations/" + entries[0].Name())
	require.NoError(t, err)

	stmts := splitStatements(string(raw))
	tables := 0
	for _, s := range stmts {
		if strings.Contains(s, "CREATE TABLE") {
			tables++
		}
	}
	assert.GreaterOrEqual(t, tables, 4, "init migration should create the core tables")
}
