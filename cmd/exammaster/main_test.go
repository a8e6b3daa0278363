package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", "1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 42}, ids)

	ids, err = parseIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDs([]string{"7", "x"})
	assert.EqualError(t, err, `invalid id "x"`)
}
