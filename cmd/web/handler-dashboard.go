package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/beforeigo/beforeigo/internal/contexthelpers"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"
)

type roleOption struct {
	Value models.StorytellerRole
	Label string
}

type dashboardTemplateData struct {
	BaseTemplateData

	Stories []models.Story
	Roles   []roleOption
}

// dashboard lists the user's stories and offers the form for starting a new
// one.
func (app *application) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	stories, err := app.stories.ListForUser(ctx, userID)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list stories"))
		return
	}

	roles := make([]roleOption, 0, len(models.Roles))
	for _, role := range models.Roles {
		roles = append(roles, roleOption{Value: role, Label: role.Label()})
	}

	data := dashboardTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Stories:          stories,
		Roles:            roles,
	}

	app.render(w, r, http.StatusOK, "dashboard", data)
}

// createStory starts a new story for the chosen storyteller role and opens
// it on the first question.
func (app *application) createStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	role := models.StorytellerRole(r.PostFormValue("role"))
	if !role.Valid() {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}
	title := r.PostFormValue("title")

	userID := contexthelpers.AuthenticatedUserID(ctx)
	questions := app.catalog.ForRole(role)
	story, err := app.stories.Create(ctx, userID, role, title, len(questions))
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "create story", slog.String("role", string(role))))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/stories/%s", story.ID), http.StatusSeeOther)
}
