package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"
)

type sharedAnswer struct {
	Question  string
	Answer    string
	ImageURLs []string
}

type sharedChapter struct {
	Name    string
	Quote   string
	Number  int
	Answers []sharedAnswer
}

type shareTemplateData struct {
	BaseTemplateData

	Title     string
	RoleLabel string
	Progress  int
	Completed bool
	Chapters  []sharedChapter
}

// sharedChapters collects the answered questions per chapter for read-only
// viewing. Unanswered questions stay private.
func (app *application) sharedChapters(story *models.Story, responses []models.Response) []sharedChapter {
	byQuestion := make(map[string]models.Response, len(responses))
	for _, response := range responses {
		byQuestion[response.QuestionID] = response
	}

	questions := app.catalog.ForRole(story.Role)
	var chapters []sharedChapter
	for i, c := range catalog.Categories(questions) {
		chapter := sharedChapter{Name: c.Name, Quote: c.Quote, Number: i + 1}
		for _, q := range c.Questions {
			response, ok := byQuestion[q.ID]
			if !ok || !response.Completed {
				continue
			}
			chapter.Answers = append(chapter.Answers, sharedAnswer{
				Question:  q.Text,
				Answer:    response.Answer,
				ImageURLs: response.ImageURLs,
			})
		}
		if len(chapter.Answers) > 0 {
			chapters = append(chapters, chapter)
		}
	}
	return chapters
}

// sharedStory shows a story to anyone holding its share link. The page is
// read-only and never reveals the owner.
func (app *application) sharedStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := r.PathValue("shareToken")

	story, err := app.stories.GetByShareToken(ctx, token)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	responses, err := app.responses.ListForStory(ctx, story.ID)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list responses"))
		return
	}

	data := shareTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Title:            story.Title,
		RoleLabel:        story.Role.Label(),
		Progress:         story.Progress,
		Completed:        story.Status == models.StoryComplete,
		Chapters:         app.sharedChapters(story, responses),
	}

	app.render(w, r, http.StatusOK, "share", data)
}

// storyBook renders every answered question as a printable book for the
// story's owner.
func (app *application) storyBook(w http.ResponseWriter, r *http.Request) {
	story, err := app.authorizedStory(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	responses, err := app.responses.ListForStory(r.Context(), story.ID)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list responses"))
		return
	}

	data := shareTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Title:            story.Title,
		RoleLabel:        story.Role.Label(),
		Progress:         story.Progress,
		Completed:        story.Status == models.StoryComplete,
		Chapters:         app.sharedChapters(story, responses),
	}

	app.render(w, r, http.StatusOK, "book", data)
}

type exportAnswer struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	ImageURLs []string  `json:"imageUrls,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type exportChapter struct {
	Name    string         `json:"name"`
	Quote   string         `json:"quote"`
	Answers []exportAnswer `json:"answers"`
}

type exportDocument struct {
	Title       string          `json:"title"`
	Role        string          `json:"role"`
	Plan        string          `json:"plan"`
	Progress    int             `json:"progress"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	ExportedAt  time.Time       `json:"exportedAt"`
	Chapters    []exportChapter `json:"chapters"`
}

// exportStory downloads the story's answered questions as a JSON keepsake.
func (app *application) exportStory(w http.ResponseWriter, r *http.Request) {
	story, err := app.authorizedStory(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	responses, err := app.responses.ListForStory(r.Context(), story.ID)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list responses"))
		return
	}

	byQuestion := make(map[string]models.Response, len(responses))
	for _, response := range responses {
		byQuestion[response.QuestionID] = response
	}

	questions := app.catalog.ForRole(story.Role)
	document := exportDocument{
		Title:       story.Title,
		Role:        string(story.Role),
		Plan:        string(story.Plan),
		Progress:    story.Progress,
		Completed:   story.Status == models.StoryComplete,
		CompletedAt: story.CompletedAt,
		ExportedAt:  time.Now().UTC(),
	}
	for _, c := range catalog.Categories(questions) {
		chapter := exportChapter{Name: c.Name, Quote: c.Quote}
		for _, q := range c.Questions {
			response, ok := byQuestion[q.ID]
			if !ok || !response.Completed {
				continue
			}
			chapter.Answers = append(chapter.Answers, exportAnswer{
				Question:  q.Text,
				Answer:    response.Answer,
				ImageURLs: response.ImageURLs,
				UpdatedAt: response.UpdatedAt,
			})
		}
		if len(chapter.Answers) > 0 {
			document.Chapters = append(document.Chapters, chapter)
		}
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("story-%s.json", story.ID)))
	app.writeJSON(w, r, http.StatusOK, document)
}
