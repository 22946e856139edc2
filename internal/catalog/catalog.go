// Package catalog loads the bundled question catalog: role -> ordered
// categories -> ordered questions. The catalog is read-only reference data.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"

	_ "embed"
)

//go:embed questions.json
var questionsData []byte

type rawQuestion struct {
	Question    string `json:"question"`
	Placeholder string `json:"placeholder,omitempty"`
}

type rawCategory struct {
	Name      string        `json:"name"`
	Quote     string        `json:"quote"`
	Questions []rawQuestion `json:"questions"`
}

type rawRole struct {
	ID         string        `json:"id"`
	Categories []rawCategory `json:"categories"`
}

type rawCatalog struct {
	Roles []rawRole `json:"roles"`
}

// Category is a named chapter of related questions shown with an
// introductory quote.
type Category struct {
	Name      string
	Quote     string
	Questions []models.Question
}

// Catalog holds every question for every storyteller role in catalog order.
type Catalog struct {
	byRole map[models.StorytellerRole][]models.Question
}

// Parse builds a catalog from raw JSON. Question identifiers are derived from
// the position within the role, q1..qN, so the same document always yields
// the same identifiers and every role starts at q1.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "JSON decode catalog")
	}

	c := Catalog{byRole: make(map[models.StorytellerRole][]models.Question)}
	for _, role := range raw.Roles {
		r := models.StorytellerRole(role.ID)
		if !r.Valid() {
			return nil, errors.New("unknown storyteller role in catalog", slog.String("role", role.ID))
		}
		questionID := 1
		for _, category := range role.Categories {
			for _, q := range category.Questions {
				c.byRole[r] = append(c.byRole[r], models.Question{
					ID:            fmt.Sprintf("q%d", questionID),
					Role:          r,
					Category:      category.Name,
					CategoryQuote: category.Quote,
					Text:          q.Question,
					Placeholder:   q.Placeholder,
				})
				questionID++
			}
		}
	}
	return &c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(questionsData)
})

// Default returns the catalog parsed from the bundled dataset.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// ForRole returns the ordered question list for the role. The slice must be
// treated as read-only.
func (c *Catalog) ForRole(role models.StorytellerRole) []models.Question {
	return c.byRole[role]
}

// Categories groups questions by category preserving catalog order.
func Categories(questions []models.Question) []Category {
	var (
		categories []Category
		index      = map[string]int{}
	)
	for _, q := range questions {
		i, ok := index[q.Category]
		if !ok {
			i = len(categories)
			index[q.Category] = i
			categories = append(categories, Category{Name: q.Category, Quote: q.CategoryQuote})
		}
		categories[i].Questions = append(categories[i].Questions, q)
	}
	return categories
}

// ChapterNumber returns the 1-based position of the category within the
// question list's category order, or 0 when the category is unknown.
func ChapterNumber(questions []models.Question, category string) int {
	for i, c := range Categories(questions) {
		if c.Name == category {
			return i + 1
		}
	}
	return 0
}

// DefaultPlaceholder suggests a writing prompt for questions that do not
// carry their own placeholder text.
func DefaultPlaceholder(question string) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "name"):
		return "Share your name and any nicknames or preferred names..."
	case strings.Contains(q, "born") || strings.Contains(q, "birth"):
		return "Include the city, the day, any stories you were told about it..."
	case strings.Contains(q, "earliest memory"):
		return "What do you remember? The sights, sounds, feelings, people who were there..."
	case strings.Contains(q, "school") || strings.Contains(q, "education"):
		return "Tell us about your teachers, friends, favorite subjects, memorable moments..."
	case strings.Contains(q, "wedding") || strings.Contains(q, "married"):
		return "Describe the day, the location, who was there, how you felt..."
	case strings.Contains(q, "career") || strings.Contains(q, "work"):
		return "What did you do? What did you enjoy or find challenging?"
	case strings.Contains(q, "lesson") || strings.Contains(q, "advice") || strings.Contains(q, "wisdom"):
		return "Share the insights you've gained and the guidance you'd give..."
	case strings.Contains(q, "tradition") || strings.Contains(q, "celebrate"):
		return "Describe how you celebrate: the activities, foods, people..."
	}
	return "Take your time... write as if you're speaking to someone you love. Your words will become treasured memories."
}
