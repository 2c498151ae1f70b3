package domain

import (
	"testing"

	"aeracore/testutil"
)

// The persisted document shape stays free of internal packages and
// third-party modules.
func TestDomainImportsOnlyStdlib(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.Any(testutil.InternalImportForbidden, testutil.ThirdPartyImportForbidden),
		"pkg/domain must only use the standard library")
}
