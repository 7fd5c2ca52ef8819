package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"stoicPathAPI/internal/track"
	"stoicPathAPI/internal/user"
)

// These tests run against the Firestore emulator and are skipped when it
// is not available. Start one with:
//
//	gcloud emulators firestore start --host-port=localhost:8765
//	FIRESTORE_EMULATOR_HOST=localhost:8765 go test ./services/...
func newTestClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping Firestore tests")
	}

	client, err := firestore.NewClient(context.Background(), "stoicpath-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestServices(t *testing.T) (*firestore.Client, *CodeService, *AccessService, *SnapshotService, *JournalService) {
	t.Helper()
	client := newTestClient(t)
	codes := NewCodeService(client, nil)
	snapshots := NewSnapshotService(client)
	access := NewAccessService(client, codes, snapshots, nil)
	journal := NewJournalService(client)
	return client, codes, access, snapshots, journal
}

// seedTrack writes a track plus its 30 challenge templates. Safe to call
// repeatedly; Set overwrites in place.
func seedTrack(t *testing.T, client *firestore.Client, id, displayName string) {
	t.Helper()
	ctx := context.Background()

	_, err := client.Collection(tracksCollection).Doc(id).Set(ctx, track.Track{
		ID:          id,
		DisplayName: displayName,
		FullName:    displayName + " Mastery",
		Slug:        id,
		Order:       1,
		Weeks: []track.Week{
			{Week: 1, Name: "Foundation"},
			{Week: 2, Name: "Practice"},
			{Week: 3, Name: "Pressure"},
			{Week: 4, Name: "Mastery"},
		},
	})
	require.NoError(t, err)

	for day := 1; day <= 30; day++ {
		tpl := track.ChallengeTemplate{
			Day:   day,
			Week:  (day-1)/7 + 1,
			Track: displayName,
			Title: fmt.Sprintf("%s day %d", displayName, day),
			Quote: track.Quote{Text: "The obstacle is the way.", Author: "Marcus Aurelius"},
		}
		_, err := client.Collection(challengesCollection).Doc(track.TemplateDocID(displayName, day)).Set(ctx, tpl)
		require.NoError(t, err)
	}
}

// seedProfile writes a bare profile document directly, bypassing signup.
func seedProfile(t *testing.T, client *firestore.Client, p *user.Profile) {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := client.Collection(usersCollection).Doc(p.UID).Set(context.Background(), p.Doc())
	require.NoError(t, err)
}

func newUID() string {
	return "user_" + uuid.NewString()
}

// assertSnapshotComplete checks the atomicity-visible end state of a
// snapshot: all 30 day rows plus exactly one progress row.
func assertSnapshotComplete(t *testing.T, client *firestore.Client, uid, namespace string) {
	t.Helper()
	ctx := context.Background()

	iter := client.Collection(usersCollection).Doc(uid).Collection(namespace).Documents(ctx)
	defer iter.Stop()

	days, progress := 0, 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		require.NoError(t, err)
		if doc.Ref.ID == "progress" {
			progress++
		} else {
			days++
		}
	}
	require.Equal(t, 30, days, "expected one snapshot row per template day")
	require.Equal(t, 1, progress, "expected exactly one progress row")
}
