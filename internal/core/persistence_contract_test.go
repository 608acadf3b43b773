package core

import (
	"go/types"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath   = "expansioncore"
	domainPath   = modulePath + "/pkg/domain"
	sqlstorePath = modulePath + "/internal/infra/persistence/sqlstore"
)

// storeRole is the way a package may satisfy domain.PersistentStore.
type storeRole int

const (
	roleBackend    storeRole = iota + 1 // owns its storage
	roleSQLDialect                      // embeds *sqlstore.Store
	roleWrapper                         // embeds domain.PersistentStore
)

var storeRoles = map[string]storeRole{
	modulePath + "/internal/infra/persistence/memory":   roleBackend,
	modulePath + "/internal/infra/persistence/sqlstore": roleBackend,
	modulePath + "/internal/infra/persistence/sqlite":   roleSQLDialect,
	modulePath + "/internal/infra/persistence/postgres": roleSQLDialect,
	modulePath + "/internal/core":                       roleWrapper,
}

// TestPersistentStoreImplementations keeps SQL in sqlstore: sqlite and
// postgres may only contribute a dialect around *sqlstore.Store, and core may
// only hold wrappers over another store.
func TestPersistentStoreImplementations(t *testing.T) {
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}, modulePath+"/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	iface := lookupInterface(t, pkgs, domainPath, "PersistentStore")

	seen := make(map[string]bool)
	var problems []string
	for _, p := range pkgs {
		if p.Types == nil {
			continue
		}
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			st, ok := named.Underlying().(*types.Struct)
			if !ok || !types.Implements(types.NewPointer(named), iface) {
				continue
			}
			where := p.PkgPath + "." + name
			role, known := storeRoles[p.PkgPath]
			switch {
			case !known:
				problems = append(problems, where+": outside the persistence packages")
			case role == roleSQLDialect && !embeds(st, sqlstorePath, "Store"):
				problems = append(problems, where+": SQL backends must embed *sqlstore.Store")
			case role == roleWrapper && !embeds(st, domainPath, "PersistentStore"):
				problems = append(problems, where+": must wrap a domain.PersistentStore")
			}
			seen[p.PkgPath] = true
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		t.Fatalf("unexpected PersistentStore implementations:\n%s", strings.Join(problems, "\n"))
	}
	for path, role := range storeRoles {
		if role != roleWrapper && !seen[path] {
			t.Fatalf("%s no longer implements domain.PersistentStore", path)
		}
	}
}

func lookupInterface(t *testing.T, pkgs []*packages.Package, pkgPath, name string) *types.Interface {
	t.Helper()
	for _, p := range pkgs {
		if p.PkgPath != pkgPath || p.Types == nil {
			continue
		}
		obj := p.Types.Scope().Lookup(name)
		if obj == nil {
			t.Fatalf("%s.%s not found", pkgPath, name)
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			t.Fatalf("%s.%s is not an interface", pkgPath, name)
		}
		return iface
	}
	t.Fatalf("package %s not loaded", pkgPath)
	return nil
}

// embeds reports whether st has an embedded field of pkgPath.name or a
// pointer to it.
func embeds(st *types.Struct, pkgPath, name string) bool {
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		typ := f.Type()
		if ptr, ok := typ.(*types.Pointer); ok {
			typ = ptr.Elem()
		}
		named, ok := typ.(*types.Named)
		if !ok {
			continue
		}
		obj := named.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == pkgPath && obj.Name() == name {
			return true
		}
	}
	return false
}
