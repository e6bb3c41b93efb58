package selftests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/framework"
)

// The whole self-test suite must pass when run under the Go test runner; it is
// the harness checking itself.
func TestSuitePasses(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns local shells")
	}
	results := RunSuite(nil, framework.NullTestLogger(), nil)
	for _, f := range results.Failures {
		for _, err := range f.Errors {
			t.Errorf("[%s] %s", f.TestID, err)
		}
	}
	assert.True(t, results.OK())
	assert.NotEmpty(t, results.Tests)
}

func TestSuiteHonorsFilter(t *testing.T) {
	var filters framework.RegexFilters
	require.NoError(t, filters.MustMatch.Set("board lifecycle"))
	results := RunSuite(filters.AsFilter, framework.NullTestLogger(), nil)
	assert.True(t, results.OK())
	for _, r := range results.Tests {
		if len(r.TestID.Path) == 0 {
			continue
		}
		assert.Contains(t, r.TestID.String(), "board lifecycle")
	}
}
