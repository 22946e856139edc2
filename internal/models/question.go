package models

// Question is a static catalog entry, not user data. Questions are loaded
// once per process from the bundled catalog and never mutated.
type Question struct {
	ID            string
	Role          StorytellerRole
	Category      string
	CategoryQuote string
	Text          string
	Placeholder   string
}
