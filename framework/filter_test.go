package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexFiltersDefaultAcceptsAll(t *testing.T) {
	var f RegexFilters
	assert.True(t, f.AsFilter(TestID{Path: []string{"uboot", "build"}}))
}

func TestRegexFiltersMustMatch(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("^uboot/"))
	assert.True(t, f.AsFilter(TestID{Path: []string{"uboot", "build"}}))
	assert.False(t, f.AsFilter(TestID{Path: []string{"tftp", "setup"}}))
}

func TestRegexFiltersMustNotMatchWins(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("^uboot/"))
	require.NoError(t, f.MustNotMatch.Set("check-version"))
	assert.True(t, f.AsFilter(TestID{Path: []string{"uboot", "build"}}))
	assert.False(t, f.AsFilter(TestID{Path: []string{"uboot", "check-version"}}))
}

func TestRegexListSetRejectsBadPatterns(t *testing.T) {
	var l RegexList
	require.Error(t, l.Set("(unclosed"))
	assert.False(t, l.IsDefined())
}

func TestRegexListString(t *testing.T) {
	var l RegexList
	require.NoError(t, l.Set("a"))
	require.NoError(t, l.Set("b"))
	assert.Equal(t, `"a" or "b"`, l.String())
	assert.Equal(t, "regex", l.Type())
}
