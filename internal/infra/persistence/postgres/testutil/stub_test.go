package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBRecordsAndScriptsQueries(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	conn.RowsAffected["update records"] = 0
	conn.Query = func(string, []driver.NamedValue) ([]string, [][]driver.Value, error) {
		return []string{"value"}, [][]driver.Value{{int64(7)}}, nil
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO sequences (name, value) VALUES ($1, 1)", "plan"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	res, err := db.ExecContext(ctx, "UPDATE records SET status = $1", "DRAFT")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 0 {
		t.Fatalf("expected scripted rows affected 0, got %d", n)
	}
	var value int64
	if err := db.QueryRowContext(ctx, "SELECT value FROM sequences").Scan(&value); err != nil {
		t.Fatalf("query: %v", err)
	}
	if value != 7 {
		t.Fatalf("expected scripted value 7, got %d", value)
	}
	if got := conn.ExecsContaining("INSERT INTO sequences"); len(got) != 1 {
		t.Fatalf("expected insert to be recorded, got %v", conn.Execs)
	}
}

func TestStubDBFailureToggles(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	conn.FailPing = true
	if err := db.PingContext(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailPing = false
	conn.FailExec = true
	if _, err := db.ExecContext(ctx, "DELETE FROM records"); err == nil {
		t.Fatalf("expected exec failure")
	}
	conn.FailExec = false
	conn.FailBegin = true
	if _, err := db.BeginTx(ctx, nil); err == nil {
		t.Fatalf("expected begin failure")
	}
}
