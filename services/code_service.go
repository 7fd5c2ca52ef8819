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
	"stoicPathAPI/internal/path"
	"stoicPathAPI/middleware"
)

// maxGenerateAttempts caps the rejection-sampling loop. The code space is
// 10^12, so hitting this cap means the RNG or the store is broken, not that
// we ran out of codes.
const maxGenerateAttempts = 50

// CodeService is the registry for one-time unlock codes: it mints them,
// answers validity queries, and burns them exactly once.
type CodeService struct {
	db    *firestore.Client
	audit *AuditService
}

func NewCodeService(db *firestore.Client, audit *AuditService) *CodeService {
	return &CodeService{db: db, audit: audit}
}

// Generate mints a new unclaimed code. Uniqueness is enforced by the store:
// Create on the code-keyed document fails with AlreadyExists on collision
// and we resample.
func (s *CodeService) Generate(ctx context.Context, accessType accesscode.AccessType, paths path.Set) (*accesscode.AccessCode, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := accesscode.New()
		if err != nil {
			return nil, err
		}

		ac := &accesscode.AccessCode{
			Code:       code,
			AccessType: accessType,
			Paths:      paths,
			CreatedAt:  time.Now().UTC(),
		}

		_, err = s.db.Collection(accessCodesCollection).Doc(code).Create(ctx, ac.Doc())
		if status.Code(err) == codes.AlreadyExists {
			log.Printf("CodeService: collision on generated code %s, resampling", code)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store unlock code: %w", err)
		}

		middleware.UnlockCodesGeneratedTotal.Inc()
		s.audit.Record(ctx, EventCodeGenerated, code, "", string(accessType))
		return ac, nil
	}
	return nil, ErrGenerationExhausted
}

// ValidationResult is what an unclaimed code would grant the asking user.
type ValidationResult struct {
	AccessType accesscode.AccessType
	// Paths is the code's grant with the user's already-held tracks
	// filtered out. NoNewPaths reports the empty case.
	Paths      path.Set
	NoNewPaths bool
}

// Validate checks a code for the given user without touching it. The uid is
// optional: at signup there is no profile yet and nothing to filter against.
func (s *CodeService) Validate(ctx context.Context, code string, uid string) (*ValidationResult, error) {
	code = accesscode.Normalize(code)
	if !accesscode.Valid(code) {
		return nil, ErrCodeInvalidFormat
	}

	snap, err := s.db.Collection(accessCodesCollection).Doc(code).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read unlock code: %w", err)
	}

	ac, err := accesscode.FromDoc(code, snap.Data())
	if err != nil {
		return nil, err
	}
	if ac.IsClaimed {
		return nil, ErrCodeAlreadyClaimed
	}

	held := path.Set{}
	if uid != "" {
		userSnap, err := s.db.Collection(usersCollection).Doc(uid).Get(ctx)
		if err != nil && status.Code(err) != codes.NotFound {
			return nil, fmt.Errorf("failed to read user profile: %w", err)
		}
		if err == nil {
			held, err = path.FromFirestore(userSnap.Data()["unlockedPaths"])
			if err != nil {
				return nil, err
			}
		}
	}

	remaining := ac.Paths.Diff(held)
	return &ValidationResult{
		AccessType: ac.AccessType,
		Paths:      remaining,
		NoNewPaths: remaining.IsEmpty(),
	}, nil
}

// Claim burns a code for uid with at-most-once semantics. The read and the
// claimed-flag flip run in one Firestore transaction, so of two concurrent
// claimers exactly one commits and the other re-runs into AlreadyClaimed.
func (s *CodeService) Claim(ctx context.Context, code string, uid string) error {
	code = accesscode.Normalize(code)
	ref := s.db.Collection(accessCodesCollection).Doc(code)

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := s.readClaimable(tx, code); err != nil {
			return err
		}
		return s.burn(tx, ref, uid)
	})
	if err != nil {
		return err
	}

	middleware.UnlockCodesClaimedTotal.Inc()
	s.audit.Record(ctx, EventCodeClaimed, code, uid, "")
	return nil
}

// readClaimable loads a code inside a transaction and rejects missing or
// already-claimed codes. Read phase only.
func (s *CodeService) readClaimable(tx *firestore.Transaction, code string) (*accesscode.AccessCode, error) {
	snap, err := tx.Get(s.db.Collection(accessCodesCollection).Doc(code))
	if status.Code(err) == codes.NotFound {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read unlock code: %w", err)
	}
	ac, err := accesscode.FromDoc(code, snap.Data())
	if err != nil {
		return nil, err
	}
	if ac.IsClaimed {
		return nil, ErrCodeAlreadyClaimed
	}
	return ac, nil
}

// burn flips isClaimed and stamps the claimer in one update. Write phase.
func (s *CodeService) burn(tx *firestore.Transaction, ref *firestore.DocumentRef, uid string) error {
	return tx.Update(ref, []firestore.Update{
		{Path: "isClaimed", Value: true},
		{Path: "claimedBy", Value: uid},
		{Path: "claimedAt", Value: time.Now().UTC()},
	})
}
