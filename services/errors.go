package services

import "errors"

// Domain failures surfaced to handlers. Handlers match with errors.Is and
// translate to HTTP statuses; anything else is a plain 500.
var (
	ErrCodeNotFound        = errors.New("unlock code not found")
	ErrCodeAlreadyClaimed  = errors.New("unlock code already claimed")
	ErrCodeInvalidFormat   = errors.New("unlock code is not in NNNN-NNNN-NNNN format")
	ErrNoNewPaths          = errors.New("code grants no paths the user does not already hold")
	ErrGenerationExhausted = errors.New("could not generate a unique unlock code")
	ErrUserNotFound        = errors.New("user profile not found")
	ErrUserExists          = errors.New("user profile already exists")
	ErrPathNotUnlocked     = errors.New("user does not have access to this path")
	ErrTrackNotFound       = errors.New("track not found")
	ErrDayNotFound         = errors.New("challenge day not found")
	ErrNoActiveChallenge   = errors.New("user has no active challenge")
)

// Firestore collection layout.
const (
	accessCodesCollection = "accessCodes"
	usersCollection       = "users"
	tracksCollection      = "tracks"
	challengesCollection  = "challenges"
)
