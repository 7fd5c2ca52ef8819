package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoicPathAPI/internal/accesscode"
	"stoicPathAPI/internal/challenge"
	"stoicPathAPI/internal/path"
	"stoicPathAPI/internal/user"
)

func TestCreateUserAndClaim(t *testing.T) {
	client, codes, access, _, _ := newTestServices(t)
	ctx := context.Background()
	seedTrack(t, client, "EGO", "Ego")

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("EGO"))
	require.NoError(t, err)

	uid := newUID()
	reminders := &user.Reminders{PushEnabled: true, MorningTime: "07:00", EveningTime: "21:00", Timezone: "UTC"}
	err = access.CreateUserAndClaim(ctx, uid, "EGO", path.Set{}, reminders, ac.Code)
	require.NoError(t, err)

	snap, err := client.Collection(usersCollection).Doc(uid).Get(ctx)
	require.NoError(t, err)
	profile, err := user.ParseProfile(uid, snap.Data())
	require.NoError(t, err)
	assert.Equal(t, "EGO", profile.ActivePath)
	assert.True(t, profile.UnlockedPaths.Contains("EGO"))
	require.NotNil(t, profile.Reminders)
	assert.Equal(t, "07:00", profile.Reminders.MorningTime)

	namespace := challenge.Namespace("EGO", time.Now().UTC())
	assert.Equal(t, namespace, profile.ActiveChallengePath)
	assertSnapshotComplete(t, client, uid, namespace)

	codeSnap, err := client.Collection(accessCodesCollection).Doc(ac.Code).Get(ctx)
	require.NoError(t, err)
	stored, err := accesscode.FromDoc(ac.Code, codeSnap.Data())
	require.NoError(t, err)
	assert.True(t, stored.IsClaimed)
	assert.Equal(t, uid, stored.ClaimedBy)
}

func TestCreateUserTwiceFails(t *testing.T) {
	client, _, access, _, _ := newTestServices(t)
	ctx := context.Background()
	seedTrack(t, client, "EGO", "Ego")

	uid := newUID()
	require.NoError(t, access.CreateUserAndClaim(ctx, uid, "EGO", path.NewSet("EGO"), nil, ""))
	err := access.CreateUserAndClaim(ctx, uid, "EGO", path.NewSet("EGO"), nil, "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestCreateUserWithoutAccessFails(t *testing.T) {
	client, _, access, _, _ := newTestServices(t)
	seedTrack(t, client, "EGO", "Ego")

	err := access.CreateUserAndClaim(context.Background(), newUID(), "EGO", path.Set{}, nil, "")
	assert.ErrorIs(t, err, ErrPathNotUnlocked)
}

// A user holding EGO claims an adminOne MONEY code. The unlocked
// set becomes {EGO, MONEY} and the code is burned.
func TestUnlockAndAddPaths(t *testing.T) {
	client, codes, access, _, _ := newTestServices(t)
	ctx := context.Background()

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("MONEY"))
	require.NoError(t, err)

	uid := newUID()
	seedProfile(t, client, &user.Profile{UID: uid, ActivePath: "EGO", UnlockedPaths: path.NewSet("EGO")})

	granted, err := access.UnlockAndAddPaths(ctx, uid, path.Set{}, ac.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"MONEY"}, granted.IDs)

	snap, err := client.Collection(usersCollection).Doc(uid).Get(ctx)
	require.NoError(t, err)
	profile, err := user.ParseProfile(uid, snap.Data())
	require.NoError(t, err)
	assert.Equal(t, []string{"EGO", "MONEY"}, profile.UnlockedPaths.IDs)

	codeSnap, err := client.Collection(accessCodesCollection).Doc(ac.Code).Get(ctx)
	require.NoError(t, err)
	stored, err := accesscode.FromDoc(ac.Code, codeSnap.Data())
	require.NoError(t, err)
	assert.True(t, stored.IsClaimed)
	assert.Equal(t, uid, stored.ClaimedBy)
}

// A valid code that grants nothing new is not burned; the user keeps it.
func TestUnlockNoNewPathsLeavesCodeUnclaimed(t *testing.T) {
	client, codes, access, _, _ := newTestServices(t)
	ctx := context.Background()

	ac, err := codes.Generate(ctx, accesscode.AdminOne, path.NewSet("EGO"))
	require.NoError(t, err)

	uid := newUID()
	seedProfile(t, client, &user.Profile{UID: uid, ActivePath: "EGO", UnlockedPaths: path.NewSet("EGO")})

	_, err = access.UnlockAndAddPaths(ctx, uid, path.Set{}, ac.Code)
	assert.ErrorIs(t, err, ErrNoNewPaths)

	codeSnap, err := client.Collection(accessCodesCollection).Doc(ac.Code).Get(ctx)
	require.NoError(t, err)
	stored, err := accesscode.FromDoc(ac.Code, codeSnap.Data())
	require.NoError(t, err)
	assert.False(t, stored.IsClaimed, "a no-op redemption must not burn the code")
}

func TestGrantPathsIsIdempotent(t *testing.T) {
	client, _, access, _, _ := newTestServices(t)
	ctx := context.Background()

	uid := newUID()
	seedProfile(t, client, &user.Profile{UID: uid, UnlockedPaths: path.NewSet("EGO")})

	require.NoError(t, access.GrantPaths(ctx, uid, path.NewSet("EGO")))

	snap, err := client.Collection(usersCollection).Doc(uid).Get(ctx)
	require.NoError(t, err)
	profile, err := user.ParseProfile(uid, snap.Data())
	require.NoError(t, err)
	assert.Equal(t, []string{"EGO"}, profile.UnlockedPaths.IDs)
}

func TestSwitchActivePathNotUnlocked(t *testing.T) {
	client, _, access, _, _ := newTestServices(t)

	uid := newUID()
	seedProfile(t, client, &user.Profile{UID: uid, ActivePath: "EGO", UnlockedPaths: path.NewSet("EGO")})

	err := access.SwitchActivePath(context.Background(), uid, "DISCIPLINE")
	assert.ErrorIs(t, err, ErrPathNotUnlocked)
}

// A user with unlockedPaths="all" switches to DISCIPLINE.
// A fresh namespace appears with 30 day rows plus a progress row at day 1.
func TestSwitchActivePathWithAllAccess(t *testing.T) {
	client, _, access, _, journal := newTestServices(t)
	ctx := context.Background()
	seedTrack(t, client, "DISCIPLINE", "Discipline")

	uid := newUID()
	seedProfile(t, client, &user.Profile{UID: uid, UnlockedPaths: path.AllSet()})

	require.NoError(t, access.SwitchActivePath(ctx, uid, "DISCIPLINE"))

	namespace := challenge.Namespace("DISCIPLINE", time.Now().UTC())
	snap, err := client.Collection(usersCollection).Doc(uid).Get(ctx)
	require.NoError(t, err)
	profile, err := user.ParseProfile(uid, snap.Data())
	require.NoError(t, err)
	assert.Equal(t, "DISCIPLINE", profile.ActivePath)
	assert.Equal(t, namespace, profile.ActiveChallengePath)
	assertSnapshotComplete(t, client, uid, namespace)

	progress, err := journal.GetProgress(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CurrentDay)
	assert.Empty(t, progress.CompletedDays)
	assert.Equal(t, 0, progress.Streak)
	assert.Equal(t, "Discipline", progress.TrackSettings.DisplayName)
}

// Switching back to a track already activated today must keep the
// in-progress journal, not reset it.
func TestSwitchActivePathSameDayKeepsJournal(t *testing.T) {
	client, _, access, _, journal := newTestServices(t)
	ctx := context.Background()
	seedTrack(t, client, "EGO", "Ego")
	seedTrack(t, client, "MONEY", "Money")

	uid := newUID()
	seedProfile(t, client, &user.Profile{UID: uid, UnlockedPaths: path.AllSet()})

	require.NoError(t, access.SwitchActivePath(ctx, uid, "EGO"))
	require.NoError(t, journal.SaveEntries(ctx, uid, 1, challenge.Entries{Morning: "keep me"}))
	_, err := journal.CompleteDay(ctx, uid, 1)
	require.NoError(t, err)

	require.NoError(t, access.SwitchActivePath(ctx, uid, "MONEY"))
	require.NoError(t, access.SwitchActivePath(ctx, uid, "EGO"))

	day, err := journal.GetDay(ctx, uid, 1)
	require.NoError(t, err)
	assert.Equal(t, "keep me", day.Entries.Morning)
	assert.True(t, day.IsComplete)
}
