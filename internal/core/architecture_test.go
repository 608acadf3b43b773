package core

import (
	"testing"

	"expansioncore/testutil"
)

func TestCoreReachesDriversOnlyThroughInfra(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DriverImportForbidden, "core talks to storage through domain.PersistentStore and blob.Store")
}
