package accesscode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"stoicPathAPI/internal/path"
)

// AccessType governs how many tracks a code grants and who picked them.
type AccessType string

const (
	// UserOne lets the claimant pick a single track at redemption time.
	UserOne AccessType = "userOne"
	// AdminOne grants the single track the issuer chose.
	AdminOne AccessType = "adminOne"
	// AdminMulti grants the track list the issuer chose.
	AdminMulti AccessType = "adminMulti"
	// AllCurrent grants every track that exists today.
	AllCurrent AccessType = "allCurrent"
	// AllEvergreen grants every track, including ones added later.
	AllEvergreen AccessType = "allEvergreen"
)

func ParseAccessType(s string) (AccessType, error) {
	switch AccessType(s) {
	case UserOne, AdminOne, AdminMulti, AllCurrent, AllEvergreen:
		return AccessType(s), nil
	}
	return "", fmt.Errorf("unknown access type %q", s)
}

// AccessCode is one document in the accessCodes collection, keyed by the
// code string itself.
type AccessCode struct {
	Code       string     `firestore:"-" json:"code"`
	AccessType AccessType `firestore:"accessType" json:"accessType"`
	Paths      path.Set   `firestore:"-" json:"paths"`
	IsClaimed  bool       `firestore:"isClaimed" json:"isClaimed"`
	ClaimedBy  string     `firestore:"claimedBy,omitempty" json:"claimedBy,omitempty"`
	ClaimedAt  *time.Time `firestore:"claimedAt,omitempty" json:"claimedAt,omitempty"`
	CreatedAt  time.Time  `firestore:"createdAt" json:"createdAt"`
}

// Doc renders the code in its stored shape. Paths keeps the string-or-array
// wire format, so the struct tags alone can't carry it.
func (c *AccessCode) Doc() map[string]interface{} {
	m := map[string]interface{}{
		"accessType": string(c.AccessType),
		"paths":      c.Paths.ToFirestore(),
		"isClaimed":  c.IsClaimed,
		"createdAt":  c.CreatedAt,
	}
	if c.ClaimedBy != "" {
		m["claimedBy"] = c.ClaimedBy
	}
	if c.ClaimedAt != nil {
		m["claimedAt"] = *c.ClaimedAt
	}
	return m
}

// FromDoc decodes a stored code document.
func FromDoc(code string, data map[string]interface{}) (*AccessCode, error) {
	at, _ := data["accessType"].(string)
	accessType, err := ParseAccessType(at)
	if err != nil {
		return nil, fmt.Errorf("code %s: %w", code, err)
	}
	paths, err := path.FromFirestore(data["paths"])
	if err != nil {
		return nil, fmt.Errorf("code %s: %w", code, err)
	}
	c := &AccessCode{
		Code:       code,
		AccessType: accessType,
		Paths:      paths,
	}
	c.IsClaimed, _ = data["isClaimed"].(bool)
	c.ClaimedBy, _ = data["claimedBy"].(string)
	if t, ok := data["claimedAt"].(time.Time); ok {
		c.ClaimedAt = &t
	}
	if t, ok := data["createdAt"].(time.Time); ok {
		c.CreatedAt = t
	}
	return c, nil
}

// Granted resolves what a claim should actually unlock. For claimant-choice
// codes the selection must be a single track permitted by the code; for the
// rest the selection is ignored and the issuer's choice wins.
func (c *AccessCode) Granted(selected path.Set) (path.Set, error) {
	switch c.AccessType {
	case AllCurrent, AllEvergreen:
		return path.AllSet(), nil
	case AdminOne, AdminMulti:
		return c.Paths, nil
	case UserOne:
		if len(selected.IDs) != 1 || selected.All {
			return path.Set{}, fmt.Errorf("code %s requires choosing exactly one track", c.Code)
		}
		if !c.Paths.Contains(selected.IDs[0]) {
			return path.Set{}, fmt.Errorf("track %s is not covered by code %s", selected.IDs[0], c.Code)
		}
		return selected, nil
	}
	return path.Set{}, fmt.Errorf("unknown access type %q", c.AccessType)
}

var codePattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)

// Valid reports whether s is a well-formed NNNN-NNNN-NNNN code.
func Valid(s string) bool {
	return codePattern.MatchString(s)
}

// Normalize trims whitespace so pasted codes survive the format check.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}

// New generates a random dash-grouped 12-digit code. crypto/rand rather
// than math/rand: codes are bearer tokens, guessability matters.
func New() (string, error) {
	segs := make([]string, 3)
	for i := range segs {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("failed to read random segment: %w", err)
		}
		segs[i] = fmt.Sprintf("%04d", n.Int64())
	}
	return strings.Join(segs, "-"), nil
}
