package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/beforeigo/beforeigo/internal/contexthelpers"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/mailer"
	"github.com/beforeigo/beforeigo/internal/models"
)

var planLabels = map[models.Plan]string{
	models.PlanStoryteller: "Storyteller",
	models.PlanKeepsake:    "Keepsake",
	models.PlanLegacy:      "Legacy",
}

// purchasePlan upgrades a story's plan. A confirmation email goes out when
// the buyer leaves an address and email delivery is configured.
func (app *application) purchasePlan(w http.ResponseWriter, r *http.Request) {
	story, err := app.authorizedStory(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	if err = r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	plan := models.Plan(r.PostFormValue("plan"))
	label, ok := planLabels[plan]
	if !ok {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	if err = app.stories.UpdatePlan(ctx, story.ID, plan); err != nil {
		app.serverError(w, r, errors.Wrap(err, "update plan", slog.String("plan", string(plan))))
		return
	}
	// The live session snapshots the story, so drop it and reload with the
	// new plan on the next page view.
	app.sessions.Evict(contexthelpers.AuthenticatedUserID(ctx), story.ID)

	if email := r.PostFormValue("email"); email != "" {
		err = app.mailer.SendPurchaseConfirmation(ctx, email, mailer.PurchaseConfirmationEmail{
			PlanLabel: label,
			StoryURL:  fmt.Sprintf("%s/stories/%s", app.baseURL, story.ID),
		})
		if err != nil && !errors.Is(err, mailer.ErrNotConfigured) {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "send purchase confirmation", errors.SlogError(err))
		}
	}

	app.flash(r, fmt.Sprintf("Your story is now on the %s plan.", label))
	http.Redirect(w, r, fmt.Sprintf("/stories/%s", story.ID), http.StatusSeeOther)
}
