package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.jetify.com/typeid/v2"
)

func TestPrefixedIDs(t *testing.T) {
	id := NewPolygonID()
	assert.True(t, strings.HasPrefix(id, "poly_"))
	parsed, err := typeid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, PrefixPolygon, parsed.Prefix())
	assert.NotEqual(t, id, NewPolygonID())

	job, err := typeid.Parse(NewJobID())
	require.NoError(t, err)
	assert.Equal(t, PrefixJob, job.Prefix())
}
