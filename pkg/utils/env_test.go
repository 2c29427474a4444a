package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TRACKX_TEST_STR", "value")
	t.Setenv("TRACKX_TEST_INT", "42")
	t.Setenv("TRACKX_TEST_BAD_INT", "-3")
	t.Setenv("TRACKX_TEST_DUR", "250ms")
	t.Setenv("TRACKX_TEST_BOOL", "yes")

	assert.Equal(t, "value", Env("TRACKX_TEST_STR", "def"))
	assert.Equal(t, "def", Env("TRACKX_TEST_MISSING", "def"))
	assert.Equal(t, 42, EnvInt("TRACKX_TEST_INT", 1))
	assert.Equal(t, 1, EnvInt("TRACKX_TEST_BAD_INT", 1))
	assert.Equal(t, 250*time.Millisecond, EnvDuration("TRACKX_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDuration("TRACKX_TEST_MISSING", time.Second))
	assert.True(t, EnvBool("TRACKX_TEST_BOOL", false))
	assert.False(t, EnvBool("TRACKX_TEST_MISSING", false))
}

func TestRepoFullName(t *testing.T) {
	assert.Equal(t, "golang/go", RepoFullName("golang", "go"))
}

func TestDayStart(t *testing.T) {
	in := time.Date(2025, 1, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), DayStart(in))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", Snippet(strings.NewReader("  abcdef"), 5))
	assert.Equal(t, "", Snippet(nil, 5))
}
