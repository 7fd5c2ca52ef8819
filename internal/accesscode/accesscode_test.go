package accesscode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoicPathAPI/internal/path"
)

func TestNewProducesWellFormedCodes(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := New()
		require.NoError(t, err)
		assert.True(t, Valid(code), "generated code %q not in NNNN-NNNN-NNNN format", code)
		seen[code] = true
	}
	// Not a uniqueness guarantee, but 100 collisions out of 10^12 would
	// mean the RNG is broken.
	assert.Greater(t, len(seen), 90)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("1234-5678-9012"))
	assert.False(t, Valid("1234-5678-901"))
	assert.False(t, Valid("abcd-efgh-ijkl"))
	assert.False(t, Valid("123456789012"))
	assert.False(t, Valid(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1234-5678-9012", Normalize("  1234-5678-9012\n"))
}

func TestGrantedAdminChoice(t *testing.T) {
	c := &AccessCode{Code: "0000-0000-0001", AccessType: AdminMulti, Paths: path.NewSet("EGO", "MONEY")}
	granted, err := c.Granted(path.Set{})
	require.NoError(t, err)
	assert.Equal(t, []string{"EGO", "MONEY"}, granted.IDs)
}

func TestGrantedAllEvergreen(t *testing.T) {
	c := &AccessCode{Code: "0000-0000-0002", AccessType: AllEvergreen, Paths: path.NewSet("EGO")}
	granted, err := c.Granted(path.Set{})
	require.NoError(t, err)
	assert.True(t, granted.All, "evergreen codes grant everything regardless of listed paths")
}

func TestGrantedUserChoice(t *testing.T) {
	c := &AccessCode{Code: "0000-0000-0003", AccessType: UserOne, Paths: path.NewSet("EGO", "MONEY")}

	granted, err := c.Granted(path.NewSet("MONEY"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MONEY"}, granted.IDs)

	_, err = c.Granted(path.NewSet("DISCIPLINE"))
	assert.Error(t, err, "picking a track the code does not cover must fail")

	_, err = c.Granted(path.NewSet("EGO", "MONEY"))
	assert.Error(t, err, "userOne codes grant exactly one track")
}

func TestDocRoundTrip(t *testing.T) {
	claimedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	original := &AccessCode{
		Code:       "1111-2222-3333",
		AccessType: AdminOne,
		Paths:      path.NewSet("MONEY"),
		IsClaimed:  true,
		ClaimedBy:  "user_abc",
		ClaimedAt:  &claimedAt,
		CreatedAt:  claimedAt.Add(-time.Hour),
	}

	decoded, err := FromDoc(original.Code, original.Doc())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestFromDocRejectsUnknownAccessType(t *testing.T) {
	_, err := FromDoc("1111-2222-3333", map[string]interface{}{
		"accessType": "goldenTicket",
		"paths":      "all",
	})
	assert.Error(t, err)
}
