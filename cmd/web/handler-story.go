package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/beforeigo/beforeigo/internal/session"
)

type questionView struct {
	ID        string
	Text      string
	Active    bool
	Completed bool
}

type chapterView struct {
	Name      string
	Quote     string
	Number    int
	Expanded  bool
	Questions []questionView
}

type storyTemplateData struct {
	BaseTemplateData

	Story          models.Story
	Question       models.Question
	Placeholder    string
	Draft          session.Draft
	Chapters       []chapterView
	QuestionNumber int
	TotalQuestions int
	CompletedCount int
	Progress       int
	PremiumMedia   bool
	Completed      bool
	ShareURL       string
	Transition     *session.ChapterTransition
}

func (app *application) storyTemplateData(r *http.Request, story *models.Story, sess *session.Session) storyTemplateData {
	questions := sess.Questions()
	active := sess.Current()

	chapters := make([]chapterView, 0)
	for i, c := range catalog.Categories(questions) {
		chapter := chapterView{
			Name:     c.Name,
			Quote:    c.Quote,
			Number:   i + 1,
			Expanded: sess.CategoryExpanded(c.Name) || c.Name == active.Category,
		}
		for _, q := range c.Questions {
			response, ok := sess.Response(q.ID)
			chapter.Questions = append(chapter.Questions, questionView{
				ID:        q.ID,
				Text:      q.Text,
				Active:    q.ID == active.ID,
				Completed: ok && response.Completed,
			})
		}
		chapters = append(chapters, chapter)
	}

	placeholder := active.Placeholder
	if placeholder == "" {
		placeholder = catalog.DefaultPlaceholder(active.Text)
	}

	return storyTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Story:            *story,
		Question:         active,
		Placeholder:      placeholder,
		Draft:            sess.Draft(),
		Chapters:         chapters,
		QuestionNumber:   sess.ActiveIndex() + 1,
		TotalQuestions:   len(questions),
		CompletedCount:   sess.CompletedCount(),
		Progress:         sess.Progress(),
		PremiumMedia:     story.Plan.PremiumMedia(),
		Completed:        story.Status == models.StoryComplete,
		ShareURL:         fmt.Sprintf("%s/share/%s", app.baseURL, story.ShareToken),
		Transition:       sess.PendingTransition(),
	}
}

// storyPage shows the open question of a story with the chapter navigator
// and progress.
func (app *application) storyPage(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	app.render(w, r, http.StatusOK, "story", app.storyTemplateData(r, story, sess))
}

// saveAnswer persists the draft answer for the open question and advances to
// the next one on success.
func (app *application) saveAnswer(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	if err = r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	sess.SetAnswer(r.PostFormValue("answer"))
	result := sess.Save(r.Context())

	switch result.Status {
	case session.Saved:
		event := progressEvent{
			Progress:       result.Progress,
			CompletedCount: result.CompletedCount,
			StoryCompleted: result.StoryCompleted,
		}
		if result.StoryCompleted {
			app.flash(r, "Your story is complete! Every answer is saved and ready to share.")
		}
		if result.Milestone != nil {
			event.Milestone = result.Milestone.Message
			app.flash(r, result.Milestone.Message)
		}
		if result.ChapterTransition != nil {
			// The transition screen itself introduces the chapter.
			event.Chapter = result.ChapterTransition.Name
		}
		app.publishProgress(story.ID, event)
		if app.htmx.NewHandler(w, r).IsHxRequest() {
			if trigger, err := json.Marshal(map[string]any{"progress": event}); err == nil {
				w.Header().Set("HX-Trigger", string(trigger))
			}
		}
	case session.RetriableFailure:
		app.logger.Warn("retriable save failure", "story_id", story.ID)
		app.flash(r, "Saving is taking longer than usual. Your answer is kept, please try again.")
	case session.PermanentFailure:
		app.serverError(w, r, result.Err)
		return
	}

	app.redirectToStory(w, r, story.ID)
}

// navigate moves the session to another question without losing the draft.
func (app *application) navigate(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	if err = r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if answer, ok := r.PostForm["answer"]; ok && len(answer) > 0 {
		sess.SetAnswer(answer[0])
	}

	switch {
	case r.PostFormValue("question") != "":
		sess.GoToQuestion(r.PostFormValue("question"))
	case r.PostFormValue("direction") == "previous":
		sess.Previous()
	default:
		sess.Next()
	}

	app.redirectToStory(w, r, story.ID)
}

// continueChapter steps into the chapter waiting behind the transition
// screen.
func (app *application) continueChapter(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	sess.ContinueChapter()

	app.redirectToStory(w, r, story.ID)
}

// toggleChapter expands or collapses one chapter in the navigator.
func (app *application) toggleChapter(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	if err = r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	sess.ToggleCategory(r.PostFormValue("chapter"))

	app.redirectToStory(w, r, story.ID)
}

// redirectToStory refreshes the question page. htmx requests get the page
// rendered in place instead of a redirect so the browser does not repaint.
func (app *application) redirectToStory(w http.ResponseWriter, r *http.Request, storyID string) {
	h := app.htmx.NewHandler(w, r)
	if h.IsHxRequest() {
		story, sess, err := app.storySession(r)
		if err != nil {
			app.storyError(w, r, err)
			return
		}
		app.render(w, r, http.StatusOK, "story", app.storyTemplateData(r, story, sess))
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/stories/%s", storyID), http.StatusSeeOther)
}
