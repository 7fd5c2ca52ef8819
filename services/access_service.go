package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stoicPathAPI/internal/accesscode"
	"stoicPathAPI/internal/challenge"
	"stoicPathAPI/internal/path"
	"stoicPathAPI/internal/user"
	"stoicPathAPI/middleware"
)

// AccessService is the per-user ledger of unlocked and active tracks. Every
// flow that both burns a code and changes a profile runs as one Firestore
// transaction, so a claimed-but-ungranted code can never exist.
type AccessService struct {
	db        *firestore.Client
	codes     *CodeService
	snapshots *SnapshotService
	audit     *AuditService
}

func NewAccessService(db *firestore.Client, codes *CodeService, snapshots *SnapshotService, audit *AuditService) *AccessService {
	return &AccessService{db: db, codes: codes, snapshots: snapshots, audit: audit}
}

func (s *AccessService) userRef(uid string) *firestore.DocumentRef {
	return s.db.Collection(usersCollection).Doc(uid)
}

// readProfile loads and decodes a profile inside a transaction.
func (s *AccessService) readProfile(tx *firestore.Transaction, uid string) (*user.Profile, error) {
	snap, err := tx.Get(s.userRef(uid))
	if status.Code(err) == codes.NotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user profile: %w", err)
	}
	return user.ParseProfile(uid, snap.Data())
}

// GrantPaths adds tracks to a user's unlocked set. Union semantics: tracks
// already held are a no-op, and an "all" grant swallows everything.
func (s *AccessService) GrantPaths(ctx context.Context, uid string, toAdd path.Set) error {
	return s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		profile, err := s.readProfile(tx, uid)
		if err != nil {
			return err
		}
		merged := profile.UnlockedPaths.Union(toAdd)
		if merged.Equal(profile.UnlockedPaths) {
			return nil
		}
		return tx.Update(s.userRef(uid), []firestore.Update{
			{Path: "unlockedPaths", Value: merged.ToFirestore()},
		})
	})
}

// UnlockAndAddPaths redeems a code for an existing user: validate, grant,
// burn, all in one transaction. Returns the paths actually granted. A valid
// code that grants nothing new fails with ErrNoNewPaths and stays unclaimed.
func (s *AccessService) UnlockAndAddPaths(ctx context.Context, uid string, selected path.Set, code string) (path.Set, error) {
	code = accesscode.Normalize(code)
	var granted path.Set

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ac, err := s.codes.readClaimable(tx, code)
		if err != nil {
			return err
		}
		profile, err := s.readProfile(tx, uid)
		if err != nil {
			return err
		}

		grant, err := ac.Granted(selected)
		if err != nil {
			return err
		}
		granted = grant.Diff(profile.UnlockedPaths)
		if granted.IsEmpty() {
			return ErrNoNewPaths
		}

		merged := profile.UnlockedPaths.Union(granted)
		if err := tx.Update(s.userRef(uid), []firestore.Update{
			{Path: "unlockedPaths", Value: merged.ToFirestore()},
		}); err != nil {
			return fmt.Errorf("failed to grant paths: %w", err)
		}
		return s.codes.burn(tx, s.db.Collection(accessCodesCollection).Doc(ac.Code), uid)
	})
	if err != nil {
		return path.Set{}, err
	}

	middleware.UnlockCodesClaimedTotal.Inc()
	s.audit.Record(ctx, EventCodeClaimed, code, uid, "")
	return granted, nil
}

// SwitchActivePath makes trackID the active track. The new namespace is
// keyed by today's date; if it was already snapshotted today the existing
// journal is kept, never reset.
func (s *AccessService) SwitchActivePath(ctx context.Context, uid, trackID string) error {
	namespace := challenge.Namespace(trackID, time.Now().UTC())
	snapshotted := false

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snapshotted = false
		profile, err := s.readProfile(tx, uid)
		if err != nil {
			return err
		}
		if !profile.UnlockedPaths.Contains(trackID) {
			return ErrPathNotUnlocked
		}

		exists, err := s.snapshots.exists(tx, uid, namespace)
		if err != nil {
			return err
		}

		var prep *preparedSnapshot
		if !exists {
			if prep, err = s.snapshots.prepare(tx, uid, namespace, trackID); err != nil {
				return err
			}
		}

		if err := tx.Update(s.userRef(uid), []firestore.Update{
			{Path: "activePath", Value: trackID},
			{Path: "activeChallengePath", Value: namespace},
		}); err != nil {
			return fmt.Errorf("failed to update active path: %w", err)
		}

		if prep != nil {
			snapshotted = true
			return s.snapshots.apply(tx, prep)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if snapshotted {
		countSnapshot()
	}
	s.audit.Record(ctx, EventPathSwitched, "", uid, trackID)
	return nil
}

// CreateUserAndClaim is the one-shot signup flow: profile document, initial
// challenge snapshot, and (when a code was entered) the claim, committed as
// a single transaction. A retry after any failure starts from nothing.
func (s *AccessService) CreateUserAndClaim(ctx context.Context, uid, selectedTrackID string, initialPaths path.Set, reminders *user.Reminders, unlockCode string) error {
	unlockCode = accesscode.Normalize(unlockCode)
	namespace := challenge.Namespace(selectedTrackID, time.Now().UTC())
	claimed := false

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		claimed = false
		existing, err := tx.Get(s.userRef(uid))
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to probe user profile: %w", err)
		}
		if err == nil && existing.Exists() {
			return ErrUserExists
		}

		unlocked := initialPaths
		if unlockCode != "" {
			ac, err := s.codes.readClaimable(tx, unlockCode)
			if err != nil {
				return err
			}
			granted, err := ac.Granted(path.NewSet(selectedTrackID))
			if err != nil {
				return err
			}
			unlocked = unlocked.Union(granted)
		}

		if !unlocked.Contains(selectedTrackID) {
			return ErrPathNotUnlocked
		}

		prep, err := s.snapshots.prepare(tx, uid, namespace, selectedTrackID)
		if err != nil {
			return err
		}

		profile := &user.Profile{
			UID:                 uid,
			ActivePath:          selectedTrackID,
			ActiveChallengePath: namespace,
			UnlockedPaths:       unlocked,
			Reminders:           reminders,
			CreatedAt:           time.Now().UTC(),
		}
		if err := tx.Create(s.userRef(uid), profile.Doc()); err != nil {
			return fmt.Errorf("failed to create user profile: %w", err)
		}

		if err := s.snapshots.apply(tx, prep); err != nil {
			return err
		}

		if unlockCode != "" {
			claimed = true
			return s.codes.burn(tx, s.db.Collection(accessCodesCollection).Doc(unlockCode), uid)
		}
		return nil
	})
	if err != nil {
		return err
	}

	countSnapshot()
	if claimed {
		middleware.UnlockCodesClaimedTotal.Inc()
		s.audit.Record(ctx, EventCodeClaimed, unlockCode, uid, "")
	}
	log.Printf("AccessService: created profile for %s on track %s (%s)", uid, selectedTrackID, namespace)
	return nil
}
