package user

import (
	"time"

	"stoicPathAPI/internal/path"
)

// Reminders is the notification preference sub-record on a profile. It is
// persisted and echoed back; delivery is out of scope for this API.
type Reminders struct {
	PushEnabled  bool   `firestore:"pushEnabled" json:"pushEnabled"`
	EmailEnabled bool   `firestore:"emailEnabled" json:"emailEnabled"`
	MorningTime  string `firestore:"morningTime" json:"morningTime"`
	EveningTime  string `firestore:"eveningTime" json:"eveningTime"`
	Timezone     string `firestore:"timezone" json:"timezone"`
}

// Profile is one document in the users collection, keyed by the Clerk uid.
type Profile struct {
	UID                 string     `json:"uid"`
	ActivePath          string     `json:"activePath"`
	ActiveChallengePath string     `json:"activeChallengePath,omitempty"`
	UnlockedPaths       path.Set   `json:"unlockedPaths"`
	Reminders           *Reminders `json:"reminders,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Doc renders the profile in its stored shape. unlockedPaths keeps the
// string-or-array wire format, so this stays a map rather than struct tags.
func (p *Profile) Doc() map[string]interface{} {
	m := map[string]interface{}{
		"activePath":    p.ActivePath,
		"unlockedPaths": p.UnlockedPaths.ToFirestore(),
		"createdAt":     p.CreatedAt,
	}
	if p.ActiveChallengePath != "" {
		m["activeChallengePath"] = p.ActiveChallengePath
	}
	if p.Reminders != nil {
		m["reminders"] = map[string]interface{}{
			"pushEnabled":  p.Reminders.PushEnabled,
			"emailEnabled": p.Reminders.EmailEnabled,
			"morningTime":  p.Reminders.MorningTime,
			"eveningTime":  p.Reminders.EveningTime,
			"timezone":     p.Reminders.Timezone,
		}
	}
	return m
}

// ParseProfile decodes a stored profile, defaulting the fields that early
// profile documents are missing (activeChallengePath, reminders, even
// unlockedPaths on the oldest docs).
func ParseProfile(uid string, data map[string]interface{}) (*Profile, error) {
	unlocked, err := path.FromFirestore(data["unlockedPaths"])
	if err != nil {
		return nil, err
	}
	p := &Profile{
		UID:           uid,
		UnlockedPaths: unlocked,
	}
	p.ActivePath, _ = data["activePath"].(string)
	p.ActiveChallengePath, _ = data["activeChallengePath"].(string)
	if t, ok := data["createdAt"].(time.Time); ok {
		p.CreatedAt = t
	}
	if rm, ok := data["reminders"].(map[string]interface{}); ok {
		r := &Reminders{}
		r.PushEnabled, _ = rm["pushEnabled"].(bool)
		r.EmailEnabled, _ = rm["emailEnabled"].(bool)
		r.MorningTime, _ = rm["morningTime"].(string)
		r.EveningTime, _ = rm["eveningTime"].(string)
		r.Timezone, _ = rm["timezone"].(string)
		p.Reminders = r
	}
	return p, nil
}
