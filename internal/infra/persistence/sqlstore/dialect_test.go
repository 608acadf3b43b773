package sqlstore

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	for _, dialect := range []Dialect{SQLite, Postgres} {
		stmts := SplitStatements(dialect.DDL)
		if len(stmts) != 4 {
			t.Fatalf("%s: expected 4 statements, got %d", dialect.Name, len(stmts))
		}
		for _, stmt := range stmts {
			if strings.HasPrefix(stmt, "--") {
				t.Fatalf("%s: statement should not start with comment: %q", dialect.Name, stmt)
			}
			if !strings.HasSuffix(stmt, ";") {
				t.Fatalf("%s: statement should end with semicolon: %q", dialect.Name, stmt)
			}
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (id TEXT);\n\nCREATE TABLE b (id TEXT)")
	if len(stmts) != 2 || stmts[1] != "CREATE TABLE b (id TEXT)" {
		t.Fatalf("unexpected statements %q", stmts)
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE records SET status = ? WHERE kind = ? AND id = ?"
	if got := SQLite.Rebind(query); got != query {
		t.Fatalf("sqlite must keep question marks, got %q", got)
	}
	want := "UPDATE records SET status = $1 WHERE kind = $2 AND id = $3"
	if got := Postgres.Rebind(query); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
