package track

import "fmt"

// Week is one named week of a 30-day program.
type Week struct {
	Week int    `firestore:"week" json:"week"`
	Name string `firestore:"name" json:"name"`
}

// Track is one admin-managed program in the global tracks collection.
type Track struct {
	ID          string `firestore:"id" json:"id"`
	DisplayName string `firestore:"display_name" json:"display_name"`
	FullName    string `firestore:"full_name" json:"full_name"`
	Slug        string `firestore:"slug" json:"slug"`
	Category    string `firestore:"category" json:"category"`
	Color       string `firestore:"color" json:"color"`
	Icon        string `firestore:"icon" json:"icon"`
	Order       int    `firestore:"order" json:"order"`
	Weeks       []Week `firestore:"weeks" json:"weeks"`
}

// Quote is a daily stoic quote with attribution.
type Quote struct {
	Text   string `firestore:"text" json:"text"`
	Author string `firestore:"author" json:"author"`
}

// ChallengeTemplate is one day of shared program content in the global
// challenges collection. Admin edits here only affect future snapshots.
type ChallengeTemplate struct {
	Day            int    `firestore:"day" json:"day"`
	Week           int    `firestore:"week,omitempty" json:"week,omitempty"`
	Track          string `firestore:"track" json:"track"`
	Title          string `firestore:"title" json:"title"`
	Description    string `firestore:"description" json:"description"`
	Quote          Quote  `firestore:"quote" json:"quote"`
	BroTranslation string `firestore:"broTranslation,omitempty" json:"broTranslation,omitempty"`
	Challenge      string `firestore:"challenge,omitempty" json:"challenge,omitempty"`
	MorningPrompt  string `firestore:"morningPrompt,omitempty" json:"morningPrompt,omitempty"`
	EveningPrompt  string `firestore:"eveningPrompt,omitempty" json:"eveningPrompt,omitempty"`
	WinsTitle      string `firestore:"winsTitle,omitempty" json:"winsTitle,omitempty"`
}

// TemplateDocID keys a challenge template by track display name and day.
func TemplateDocID(trackName string, day int) string {
	return fmt.Sprintf("%s_day_%d", trackName, day)
}
