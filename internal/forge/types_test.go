package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortSHA(t *testing.T) {
	full := "0123456789abcdef0123456789abcdef01234567"
	assert.Equal(t, "0123456789ab", ShortSHA(full))
	assert.Len(t, ShortSHA(full), ShortSHALength)
	assert.Equal(t, "abc", ShortSHA("abc"))
	assert.Empty(t, ShortSHA(""))

	b := BranchRef{Name: "main", HeadCommit: full}
	assert.Equal(t, ShortSHA(full), b.ShortCommit())
}
