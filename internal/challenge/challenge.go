package challenge

import (
	"fmt"
	"sort"
	"time"

	"stoicPathAPI/internal/track"
)

// TotalDays is the fixed length of every program.
const TotalDays = 30

// Entries holds the user's journal text for one day.
type Entries struct {
	Morning string `firestore:"morning" json:"morning"`
	Evening string `firestore:"evening" json:"evening"`
	Wins    string `firestore:"wins" json:"wins"`
}

// Day is one snapshotted day document under users/{uid}/{namespace}. It is
// the template content frozen at activation plus the user-mutable fields.
type Day struct {
	track.ChallengeTemplate

	IsComplete   bool       `firestore:"isComplete" json:"isComplete"`
	CompletedAt  *time.Time `firestore:"completedAt" json:"completedAt"`
	LastEditedAt *time.Time `firestore:"lastEditedAt" json:"lastEditedAt"`
	Entries      Entries    `firestore:"entries" json:"entries"`
}

// NewDay freezes a template into a fresh, untouched day document.
func NewDay(tpl track.ChallengeTemplate) *Day {
	return &Day{ChallengeTemplate: tpl}
}

// Progress is the sibling progress document of a snapshot namespace.
// TrackSettings is the Track frozen at activation so later admin edits to
// week names never rewrite an in-flight journal.
type Progress struct {
	CurrentDay    int         `firestore:"currentDay" json:"currentDay"`
	CompletedDays []int       `firestore:"completedDays" json:"completedDays"`
	Streak        int         `firestore:"streak" json:"streak"`
	TrackSettings track.Track `firestore:"trackSettings" json:"trackSettings"`
}

func NewProgress(t track.Track) *Progress {
	return &Progress{
		CurrentDay:    1,
		CompletedDays: []int{},
		TrackSettings: t,
	}
}

// Complete records day as done and moves currentDay/streak forward.
// Completing an already-completed day is a no-op for the set.
func (p *Progress) Complete(day int) {
	found := false
	for _, d := range p.CompletedDays {
		if d == day {
			found = true
			break
		}
	}
	if !found {
		p.CompletedDays = append(p.CompletedDays, day)
		sort.Ints(p.CompletedDays)
	}
	if day >= p.CurrentDay && day < TotalDays {
		p.CurrentDay = day + 1
	}
	p.Streak = Streak(p.CompletedDays, p.CurrentDay)
}

// Streak counts the trailing run of consecutive completed days, and only
// when that run ends on currentDay or the day before; a gap resets it to
// zero. Matches how the dashboard has always displayed it.
func Streak(completedDays []int, currentDay int) int {
	if len(completedDays) == 0 {
		return 0
	}
	sorted := append([]int(nil), completedDays...)
	sort.Ints(sorted)
	last := sorted[len(sorted)-1]
	if last != currentDay && last != currentDay-1 {
		return 0
	}
	streak := 1
	for i := len(sorted) - 2; i >= 0; i-- {
		if sorted[i] != sorted[i+1]-1 {
			break
		}
		streak++
	}
	return streak
}

// Namespace derives the activeChallengePath key: track id plus activation
// date, so re-activating on another day gets a clean namespace.
func Namespace(trackID string, at time.Time) string {
	return fmt.Sprintf("%s_%s", trackID, at.Format("2006-01-02"))
}

// DayDocID keys one day document inside a namespace.
func DayDocID(day int) string {
	return fmt.Sprintf("day_%d", day)
}

// ProgressDocID keys the progress sibling document.
const ProgressDocID = "progress"
