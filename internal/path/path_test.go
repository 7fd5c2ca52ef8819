package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionIsIdempotent(t *testing.T) {
	held := NewSet("EGO", "MONEY")
	merged := held.Union(NewSet("EGO"))
	assert.True(t, merged.Equal(held), "granting an already-held track must not change the set")
}

func TestUnionWithAllSwallowsEverything(t *testing.T) {
	assert.True(t, NewSet("EGO").Union(AllSet()).All)
	assert.True(t, AllSet().Union(NewSet("EGO")).All)
}

func TestDiffFiltersHeldTracks(t *testing.T) {
	grant := NewSet("MONEY", "EGO")
	remaining := grant.Diff(NewSet("EGO"))
	assert.Equal(t, []string{"MONEY"}, remaining.IDs)

	assert.True(t, grant.Diff(AllSet()).IsEmpty(), "a user with everything gets nothing new")
	assert.True(t, AllSet().Diff(NewSet("EGO")).All, "an all grant stays all")
}

func TestContains(t *testing.T) {
	s := NewSet("DISCIPLINE")
	assert.True(t, s.Contains("DISCIPLINE"))
	assert.False(t, s.Contains("EGO"))
	assert.True(t, AllSet().Contains("anything"))
}

func TestFromFirestoreSentinel(t *testing.T) {
	s, err := FromFirestore("all")
	require.NoError(t, err)
	assert.True(t, s.All)

	_, err = FromFirestore("some-garbage")
	assert.Error(t, err)
}

func TestFromFirestoreInterfaceSlice(t *testing.T) {
	// Firestore and encoding/json both hand back []interface{}.
	s, err := FromFirestore([]interface{}{"EGO", "MONEY"})
	require.NoError(t, err)
	assert.Equal(t, []string{"EGO", "MONEY"}, s.IDs)
}

func TestFromFirestoreMissingField(t *testing.T) {
	s, err := FromFirestore(nil)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
}

func TestToFirestoreShape(t *testing.T) {
	assert.Equal(t, "all", AllSet().ToFirestore())
	assert.Equal(t, []string{}, Set{}.ToFirestore())
	assert.Equal(t, []string{"EGO"}, NewSet("EGO").ToFirestore())
}
