package services

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stoicPathAPI/internal/user"
)

type UserService struct {
	db *firestore.Client
}

func NewUserService(db *firestore.Client) *UserService {
	return &UserService{db: db}
}

// GetProfile fetches and decodes users/{uid}. Early profiles sometimes lack
// an activePath even though paths are unlocked; those are reconciled here
// best-effort and the repair is logged, never surfaced.
func (s *UserService) GetProfile(ctx context.Context, uid string) (*user.Profile, error) {
	ref := s.db.Collection(usersCollection).Doc(uid)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user profile: %w", err)
	}

	profile, err := user.ParseProfile(uid, snap.Data())
	if err != nil {
		return nil, err
	}

	if profile.ActivePath == "" && len(profile.UnlockedPaths.IDs) > 0 {
		profile.ActivePath = profile.UnlockedPaths.IDs[0]
		if _, err := ref.Update(ctx, []firestore.Update{
			{Path: "activePath", Value: profile.ActivePath},
		}); err != nil {
			log.Printf("UserService: failed to backfill activePath for %s: %v", uid, err)
		} else {
			log.Printf("UserService: backfilled activePath=%s for %s", profile.ActivePath, uid)
		}
	}

	return profile, nil
}

func (s *UserService) UpdateReminders(ctx context.Context, uid string, r *user.Reminders) error {
	_, err := s.db.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "reminders", Value: map[string]interface{}{
			"pushEnabled":  r.PushEnabled,
			"emailEnabled": r.EmailEnabled,
			"morningTime":  r.MorningTime,
			"eveningTime":  r.EveningTime,
			"timezone":     r.Timezone,
		}},
	})
	if status.Code(err) == codes.NotFound {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update reminders: %w", err)
	}
	return nil
}
