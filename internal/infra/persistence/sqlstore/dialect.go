package sqlstore

import (
	"bufio"
	_ "embed"
	"strconv"
	"strings"
)

//go:embed schema/sqlite.sql
var sqliteDDL string

//go:embed schema/postgres.sql
var postgresDDL string

// Dialect captures the differences between supported SQL backends.
type Dialect struct {
	Name string
	DDL  string
	// numbered placeholders ($1, $2, ...) instead of "?"
	numbered bool
}

var (
	// SQLite is the dialect for modernc.org/sqlite.
	SQLite = Dialect{Name: "sqlite", DDL: sqliteDDL}
	// Postgres is the dialect for pgx's database/sql driver.
	Postgres = Dialect{Name: "postgres", DDL: postgresDDL, numbered: true}
)

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				stmts = append(stmts, stmt)
			}
			current.Reset()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}
	return stmts
}
