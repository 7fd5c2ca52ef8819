package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stoicPathAPI/internal/challenge"
	"stoicPathAPI/internal/track"
	"stoicPathAPI/middleware"
)

// counted after a successful commit so transaction retries don't inflate it
func countSnapshot() { middleware.ChallengeSnapshotsTotal.Inc() }

// SnapshotService freezes a track's day-by-day template content into a
// per-user namespace at activation, so admin edits to the shared templates
// never rewrite a journal in progress.
type SnapshotService struct {
	db *firestore.Client
}

func NewSnapshotService(db *firestore.Client) *SnapshotService {
	return &SnapshotService{db: db}
}

// preparedSnapshot is the full write set for one namespace: every day row
// plus the progress sibling. Built in a transaction's read phase, applied
// in its write phase, so the rows become visible all at once or not at all.
type preparedSnapshot struct {
	days     map[*firestore.DocumentRef]*challenge.Day
	progRef  *firestore.DocumentRef
	progress *challenge.Progress
}

// exists reports whether the namespace was already snapshotted, keyed off
// the progress document. Read phase of tx.
func (s *SnapshotService) exists(tx *firestore.Transaction, uid, namespace string) (bool, error) {
	ref := s.db.Collection(usersCollection).Doc(uid).Collection(namespace).Doc(challenge.ProgressDocID)
	_, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe snapshot namespace %s: %w", namespace, err)
	}
	return true, nil
}

// prepare reads the track and its challenge templates inside tx and builds
// the write set. Read phase of tx; must run before any tx writes.
func (s *SnapshotService) prepare(tx *firestore.Transaction, uid, namespace, trackID string) (*preparedSnapshot, error) {
	trackSnap, err := tx.Get(s.db.Collection(tracksCollection).Doc(trackID))
	if status.Code(err) == codes.NotFound {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read track %s: %w", trackID, err)
	}

	var t track.Track
	if err := trackSnap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("failed to decode track %s: %w", trackID, err)
	}

	query := s.db.Collection(challengesCollection).Where("track", "==", t.DisplayName)
	iter := tx.Documents(query)
	defer iter.Stop()

	userCol := s.db.Collection(usersCollection).Doc(uid).Collection(namespace)
	prep := &preparedSnapshot{
		days:     make(map[*firestore.DocumentRef]*challenge.Day),
		progRef:  userCol.Doc(challenge.ProgressDocID),
		progress: challenge.NewProgress(t),
	}

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read challenge templates for %s: %w", t.DisplayName, err)
		}
		var tpl track.ChallengeTemplate
		if err := doc.DataTo(&tpl); err != nil {
			return nil, fmt.Errorf("failed to decode challenge template %s: %w", doc.Ref.ID, err)
		}
		prep.days[userCol.Doc(challenge.DayDocID(tpl.Day))] = challenge.NewDay(tpl)
	}

	if len(prep.days) == 0 {
		return nil, fmt.Errorf("track %s has no challenge templates", trackID)
	}
	return prep, nil
}

// apply creates every row of the snapshot. Write phase of tx. Create, not
// Set: if a concurrent activation already materialized the namespace, the
// transaction fails instead of wiping the user's entries.
func (s *SnapshotService) apply(tx *firestore.Transaction, prep *preparedSnapshot) error {
	for ref, day := range prep.days {
		if err := tx.Create(ref, day); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", ref.ID, err)
		}
	}
	if err := tx.Create(prep.progRef, prep.progress); err != nil {
		return fmt.Errorf("failed to create progress record: %w", err)
	}
	return nil
}

// Snapshot materializes a namespace on its own, for callers outside the
// claim/switch flows (e.g. support backfills). Skips silently if the
// namespace already exists.
func (s *SnapshotService) Snapshot(ctx context.Context, uid, namespace, trackID string) error {
	created := false
	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		ok, err := s.exists(tx, uid, namespace)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		prep, err := s.prepare(tx, uid, namespace, trackID)
		if err != nil {
			return err
		}
		created = true
		return s.apply(tx, prep)
	})
	if err == nil && created {
		countSnapshot()
	}
	return err
}
