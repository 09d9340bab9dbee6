package travel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	src := NewStaticSource()

	hist, err := src.VisitedSystems(t.Context(), "owner-hash")
	require.NoError(t, err)

	assert.Equal(t, 5, hist.TotalCount)
	assert.Len(t, hist.Systems, hist.TotalCount)
	assert.Equal(t, "Jita", hist.Systems[0].SystemName)
	assert.NotEmpty(t, hist.LastUpdated)

	for _, sys := range hist.Systems {
		assert.NotZero(t, sys.SystemID)
		assert.NotEmpty(t, sys.SystemName)
		assert.Positive(t, sys.VisitCount)
	}
}

func TestStaticSource_SameForAllOwners(t *testing.T) {
	src := NewStaticSource()

	a, err := src.VisitedSystems(t.Context(), "owner-a")
	require.NoError(t, err)
	b, err := src.VisitedSystems(t.Context(), "owner-b")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
