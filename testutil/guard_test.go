package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testForbiddenImport = "some/forbidden/package"

type recordingFatal struct {
	msg string
}

func (r *recordingFatal) Fatalf(format string, args ...any) {
	r.msg = fmt.Sprintf(format, args...)
}

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDomainImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"expansioncore/pkg/domain", true},
		{"example.com/mod/pkg/domain@v1", true},
		{"example.com/mod/pkg/domain/sub", false},
		{"example.com/mod/pkg/domainutil", false},
		{"", false},
	}
	for _, c := range cases {
		if got := DomainImportForbidden(c.in); got != c.want {
			t.Fatalf("DomainImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"expansioncore/internal/core", true},
		{"some/internal/deep/path", true},
		{"example.com/internal", false},
		{"notinternal", false},
		{"expansioncore/pkg/domain", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestDriverImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"modernc.org/sqlite", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"github.com/aws/aws-sdk-go-v2", true},
		{"github.com/aws/aws-sdk-go-v2x", false},
		{"modernc.org/sqlitex", false},
		{"github.com/google/uuid", false},
		{"database/sql", false},
	}
	for _, c := range cases {
		if got := DriverImportForbidden(c.in); got != c.want {
			t.Fatalf("DriverImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestImportPrefixForbiddenIgnoresEmptyPrefix(t *testing.T) {
	pred := ImportPrefixForbidden("", "a/b")
	if pred("x/y") {
		t.Fatalf("empty prefix must not match everything")
	}
	if !pred("a/b/c") || !pred("a/b") {
		t.Fatalf("expected a/b and nested paths to match")
	}
}

func TestAnyForbidden(t *testing.T) {
	pred := AnyForbidden(DomainImportForbidden, DriverImportForbidden)
	if !pred("expansioncore/pkg/domain") || !pred("modernc.org/sqlite") {
		t.Fatalf("expected combined predicate to match both sources")
	}
	if pred("fmt") {
		t.Fatalf("fmt must not match")
	}
	if AnyForbidden()("anything") {
		t.Fatalf("empty combination forbids nothing")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

func TestAssertNoDirectImportsSkipsTestsDirsAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(\"ok\") }")
	writeSource(t, dir, "main_test.go", "package tmp\nimport \"testing\"\nimport \""+testForbiddenImport+"\"\nfunc TestX(t *testing.T) {}")
	writeSource(t, dir, "readme.txt", "import \""+testForbiddenImport+"\"")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSource(t, sub, "sub.go", "package sub\nimport \""+testForbiddenImport+"\"")

	AssertNoDirectImports(t, dir, func(p string) bool { return p == testForbiddenImport }, "scope")
}

func TestDirectImportViolationsReportsFileAndAliases(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "store.go", `package tmp
import (
	"os"
	pg "github.com/jackc/pgx/v5/stdlib"
	. "io"
)
func X() {}`)
	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "github.com/jackc/pgx/v5/stdlib (in store.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), DomainImportForbidden); err == nil {
		t.Fatalf("expected error for missing directory")
	}
	dir := t.TempDir()
	writeSource(t, dir, "broken.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, DomainImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })

	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\n\nexpansioncore/pkg/domain\n  modernc.org/sqlite  \n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", DriverImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "modernc.org/sqlite" {
		t.Fatalf("unexpected violations %v", viols)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations(".", DriverImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list failure to surface with output, got %v %q", err, out)
	}
}

func TestFailHelpers(t *testing.T) {
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "reason", nil)
	failIfTransitiveViolations(rec, "reason", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail, got %q", rec.msg)
	}
	failIfDirectViolations(rec, "domain purity", []string{"a (in x.go)"})
	if !strings.Contains(rec.msg, "domain purity") || !strings.Contains(rec.msg, "a (in x.go)") {
		t.Fatalf("unexpected direct message %q", rec.msg)
	}
	failIfTransitiveViolations(rec, "no drivers", []string{"modernc.org/sqlite"})
	if !strings.Contains(rec.msg, "transitive") || !strings.Contains(rec.msg, "modernc.org/sqlite") {
		t.Fatalf("unexpected transitive message %q", rec.msg)
	}
}
