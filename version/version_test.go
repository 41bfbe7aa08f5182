package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(s, r string) { semver, revision = s, r }(semver, revision)

	semver, revision = "1.2.3", "unknown"
	assert.Equal(t, "1.2.3", String())

	revision = "0123456789abcdef"
	assert.Equal(t, "1.2.3+01234567", String())

	revision = "abc"
	assert.Equal(t, "1.2.3+abc", String())
}
