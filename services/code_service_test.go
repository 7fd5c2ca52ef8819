package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoicPathAPI/internal/accesscode"
	"stoicPathAPI/internal/path"
	"stoicPathAPI/internal/user"
)

func TestGenerateStoresUnclaimedCode(t *testing.T) {
	client, codes, _, _, _ := newTestServices(t)
	ctx := context.Background()

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("MONEY"))
	require.NoError(t, err)
	assert.True(t, accesscode.Valid(ac.Code))

	snap, err := client.Collection(accessCodesCollection).Doc(ac.Code).Get(ctx)
	require.NoError(t, err)

	stored, err := accesscode.FromDoc(ac.Code, snap.Data())
	require.NoError(t, err)
	assert.False(t, stored.IsClaimed)
	assert.Equal(t, accesscode.AdminOne, stored.AccessType)
	assert.Equal(t, []string{"MONEY"}, stored.Paths.IDs)
}

func TestValidateUnknownCode(t *testing.T) {
	_, codes, _, _, _ := newTestServices(t)

	_, err := codes.Validate(context.Background(), "0000-0000-0000", "")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = codes.Validate(context.Background(), "not-a-code", "")
	assert.ErrorIs(t, err, ErrCodeInvalidFormat)
}

// A code for MONEY validated by a user who holds EGO grants
// MONEY; validated by a user who already holds MONEY it grants nothing,
// which is not an error.
func TestValidateFiltersHeldPaths(t *testing.T) {
	client, codes, _, _, _ := newTestServices(t)
	ctx := context.Background()

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("MONEY"))
	require.NoError(t, err)

	egoUser := newUID()
	seedProfile(t, client, &user.Profile{UID: egoUser, ActivePath: "EGO", UnlockedPaths: path.NewSet("EGO")})

	result, err := codes.Validate(ctx, ac.Code, egoUser)
	require.NoError(t, err)
	assert.False(t, result.NoNewPaths)
	assert.Equal(t, []string{"MONEY"}, result.Paths.IDs)

	richUser := newUID()
	seedProfile(t, client, &user.Profile{UID: richUser, ActivePath: "MONEY", UnlockedPaths: path.NewSet("MONEY")})

	result, err = codes.Validate(ctx, ac.Code, richUser)
	require.NoError(t, err)
	assert.True(t, result.NoNewPaths)
	assert.True(t, result.Paths.IsEmpty())
}

func TestValidateClaimedCode(t *testing.T) {
	_, codes, _, _, _ := newTestServices(t)
	ctx := context.Background()

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("MONEY"))
	require.NoError(t, err)
	require.NoError(t, codes.Claim(ctx, ac.Code, newUID()))

	_, err = codes.Validate(ctx, ac.Code, "")
	assert.ErrorIs(t, err, ErrCodeAlreadyClaimed)
}

func TestClaimIsExactlyOnce(t *testing.T) {
	client, codes, _, _, _ := newTestServices(t)
	ctx := context.Background()

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("MONEY"))
	require.NoError(t, err)

	const claimers = 8
	var wg sync.WaitGroup
	errs := make([]error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = codes.Claim(ctx, ac.Code, newUID())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrCodeAlreadyClaimed)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent claim must win")

	snap, err := client.Collection(accessCodesCollection).Doc(ac.Code).Get(ctx)
	require.NoError(t, err)
	stored, err := accesscode.FromDoc(ac.Code, snap.Data())
	require.NoError(t, err)
	assert.True(t, stored.IsClaimed)
	assert.NotEmpty(t, stored.ClaimedBy)
	assert.NotNil(t, stored.ClaimedAt)
}
