package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stoicPathAPI/internal/challenge"
	"stoicPathAPI/internal/user"
)

// JournalService reads and mutates the user's snapshotted challenge data:
// day entries, completion, progress. All writes go to the user's own
// namespace; shared templates are never touched from here.
type JournalService struct {
	db *firestore.Client
}

func NewJournalService(db *firestore.Client) *JournalService {
	return &JournalService{db: db}
}

// activeNamespace resolves users/{uid}'s current snapshot collection.
func (s *JournalService) activeNamespace(ctx context.Context, uid string) (string, error) {
	snap, err := s.db.Collection(usersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user profile: %w", err)
	}
	profile, err := user.ParseProfile(uid, snap.Data())
	if err != nil {
		return "", err
	}
	if profile.ActiveChallengePath == "" {
		return "", ErrNoActiveChallenge
	}
	return profile.ActiveChallengePath, nil
}

func (s *JournalService) dayRef(uid, namespace string, day int) *firestore.DocumentRef {
	return s.db.Collection(usersCollection).Doc(uid).Collection(namespace).Doc(challenge.DayDocID(day))
}

func (s *JournalService) progressRef(uid, namespace string) *firestore.DocumentRef {
	return s.db.Collection(usersCollection).Doc(uid).Collection(namespace).Doc(challenge.ProgressDocID)
}

func (s *JournalService) GetProgress(ctx context.Context, uid string) (*challenge.Progress, error) {
	namespace, err := s.activeNamespace(ctx, uid)
	if err != nil {
		return nil, err
	}
	snap, err := s.progressRef(uid, namespace).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNoActiveChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	var p challenge.Progress
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &p, nil
}

func (s *JournalService) GetDay(ctx context.Context, uid string, day int) (*challenge.Day, error) {
	namespace, err := s.activeNamespace(ctx, uid)
	if err != nil {
		return nil, err
	}
	snap, err := s.dayRef(uid, namespace, day).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrDayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read day %d: %w", day, err)
	}
	var d challenge.Day
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode day %d: %w", day, err)
	}
	return &d, nil
}

func (s *JournalService) ListDays(ctx context.Context, uid string) ([]challenge.Day, error) {
	namespace, err := s.activeNamespace(ctx, uid)
	if err != nil {
		return nil, err
	}

	iter := s.db.Collection(usersCollection).Doc(uid).Collection(namespace).
		Where("day", ">", 0).OrderBy("day", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var days []challenge.Day
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list days: %w", err)
		}
		var d challenge.Day
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", doc.Ref.ID, err)
		}
		days = append(days, d)
	}
	return days, nil
}

// SaveEntries overwrites the journal text for a day and stamps
// lastEditedAt. Completion state is untouched.
func (s *JournalService) SaveEntries(ctx context.Context, uid string, day int, entries challenge.Entries) error {
	namespace, err := s.activeNamespace(ctx, uid)
	if err != nil {
		return err
	}
	_, err = s.dayRef(uid, namespace, day).Update(ctx, []firestore.Update{
		{Path: "entries", Value: entries},
		{Path: "lastEditedAt", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return ErrDayNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save entries for day %d: %w", day, err)
	}
	return nil
}

// CompleteDay marks a day done and rolls the progress record forward
// (completedDays, currentDay, streak) in one transaction, so two tabs
// completing at once can't drop a day or double-advance.
func (s *JournalService) CompleteDay(ctx context.Context, uid string, day int) (*challenge.Progress, error) {
	namespace, err := s.activeNamespace(ctx, uid)
	if err != nil {
		return nil, err
	}

	var result challenge.Progress
	err = s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		daySnap, err := tx.Get(s.dayRef(uid, namespace, day))
		if status.Code(err) == codes.NotFound {
			return ErrDayNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read day %d: %w", day, err)
		}

		progSnap, err := tx.Get(s.progressRef(uid, namespace))
		if status.Code(err) == codes.NotFound {
			return ErrNoActiveChallenge
		}
		if err != nil {
			return fmt.Errorf("failed to read progress: %w", err)
		}

		var progress challenge.Progress
		if err := progSnap.DataTo(&progress); err != nil {
			return fmt.Errorf("failed to decode progress: %w", err)
		}
		progress.Complete(day)

		var d challenge.Day
		if err := daySnap.DataTo(&d); err != nil {
			return fmt.Errorf("failed to decode day %d: %w", day, err)
		}
		if !d.IsComplete {
			now := time.Now().UTC()
			if err := tx.Update(daySnap.Ref, []firestore.Update{
				{Path: "isComplete", Value: true},
				{Path: "completedAt", Value: now},
			}); err != nil {
				return fmt.Errorf("failed to mark day %d complete: %w", day, err)
			}
		}

		if err := tx.Set(progSnap.Ref, &progress); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		result = progress
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
