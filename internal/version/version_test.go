package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	original := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = original[0], original[1], original[2] })

	Version, Commit, Date = "v1.4.0", "abc1234", "2025-10-09"
	assert.Equal(t, "nodetel v1.4.0 (abc1234, 2025-10-09)", String())

	Date = ""
	assert.Equal(t, "nodetel v1.4.0 (abc1234)", String())

	Commit = ""
	assert.Equal(t, "nodetel v1.4.0", String())

	Version = "dev"
	assert.True(t, strings.HasPrefix(String(), "nodetel "))
}
