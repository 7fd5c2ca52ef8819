package user

// SignupRequest is the createUserAndClaimCode payload. UnlockedPaths uses
// the same string-or-array shape the web client sends ("all" or a list).
type SignupRequest struct {
	SelectedTrackID string      `json:"selectedTrackId"`
	UnlockedPaths   interface{} `json:"unlockedPaths"`
	Reminders       *Reminders  `json:"reminders,omitempty"`
	UnlockCode      string      `json:"unlockCode,omitempty"`
}

type UpdateRemindersRequest struct {
	PushEnabled  bool   `json:"pushEnabled"`
	EmailEnabled bool   `json:"emailEnabled"`
	MorningTime  string `json:"morningTime"`
	EveningTime  string `json:"eveningTime"`
	Timezone     string `json:"timezone"`
}

// ProfileResponse mirrors what the dashboard reads at load.
type ProfileResponse struct {
	ActivePath          string      `json:"activePath"`
	ActiveChallengePath string      `json:"activeChallengePath,omitempty"`
	UnlockedPaths       interface{} `json:"unlockedPaths"`
	Reminders           *Reminders  `json:"reminders,omitempty"`
	CreatedAt           string      `json:"createdAt,omitempty"`
}
