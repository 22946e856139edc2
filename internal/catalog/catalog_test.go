package catalog_test

import (
	"testing"

	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/stretchr/testify/require"
)

const testCatalogJSON = `{
  "roles": [
    {
      "id": "mom",
      "categories": [
        {
          "name": "The Early Years",
          "quote": "We do not remember days, we remember moments.",
          "questions": [
            {"question": "Where were you born?"},
            {"question": "What is your earliest memory?", "placeholder": "Sights, sounds, feelings..."}
          ]
        },
        {
          "name": "Wisdom",
          "quote": "In the end, we only regret the chances we didn't take.",
          "questions": [
            {"question": "What advice would you give your younger self?"}
          ]
        }
      ]
    },
    {
      "id": "dad",
      "categories": [
        {
          "name": "The Early Years",
          "quote": "We do not remember days, we remember moments.",
          "questions": [
            {"question": "What kind of kid were you?"}
          ]
        }
      ]
    }
  ]
}`

func TestParse(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)

	mom := c.ForRole(models.RoleMom)
	require.Len(t, mom, 3)
	require.Equal(t, "q1", mom[0].ID)
	require.Equal(t, "q3", mom[2].ID)
	require.Equal(t, "The Early Years", mom[0].Category)
	require.Equal(t, "Wisdom", mom[2].Category)
	require.Equal(t, "Sights, sounds, feelings...", mom[1].Placeholder)

	dad := c.ForRole(models.RoleDad)
	require.Len(t, dad, 1)
	require.Equal(t, "q1", dad[0].ID, "every role numbers its questions from q1")
}

func TestParse_rejectsUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := catalog.Parse([]byte(`{"roles": [{"id": "cousin", "categories": []}]}`))
	require.ErrorContains(t, err, "unknown storyteller role")
}

func TestDefault(t *testing.T) {
	t.Parallel()

	c, err := catalog.Default()
	require.NoError(t, err)

	for _, role := range models.Roles {
		questions := c.ForRole(role)
		require.NotEmpty(t, questions, "role %s has no questions", role)
		// Identifiers restart for each role and stay unique within it.
		seen := map[string]bool{}
		for i, q := range questions {
			require.Equal(t, i == 0, q.ID == "q1", "role %s question %d has id %s", role, i, q.ID)
			require.False(t, seen[q.ID], "duplicate question id %s for role %s", q.ID, role)
			seen[q.ID] = true
			require.NotEmpty(t, q.Text)
			require.NotEmpty(t, q.Category)
			require.NotEmpty(t, q.CategoryQuote)
		}
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)

	categories := catalog.Categories(c.ForRole(models.RoleMom))
	require.Len(t, categories, 2)
	require.Equal(t, "The Early Years", categories[0].Name)
	require.Len(t, categories[0].Questions, 2)
	require.Equal(t, "Wisdom", categories[1].Name)
	require.Len(t, categories[1].Questions, 1)
}

func TestChapterNumber(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)
	questions := c.ForRole(models.RoleMom)

	require.Equal(t, 1, catalog.ChapterNumber(questions, "The Early Years"))
	require.Equal(t, 2, catalog.ChapterNumber(questions, "Wisdom"))
	require.Equal(t, 0, catalog.ChapterNumber(questions, "Nonexistent"))
}

func TestDefaultPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "name question",
			question: "What is your full name?",
			want:     "Share your name and any nicknames or preferred names...",
		},
		{
			name:     "wedding question",
			question: "What do you remember about your wedding day?",
			want:     "Describe the day, the location, who was there, how you felt...",
		},
		{
			name:     "fallback",
			question: "What made you laugh hardest?",
			want:     "Take your time... write as if you're speaking to someone you love. Your words will become treasured memories.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, catalog.DefaultPlaceholder(tt.question))
		})
	}
}
