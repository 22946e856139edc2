package main

import (
	"net/http"

	"github.com/beforeigo/beforeigo/internal/contexthelpers"
)

type homeTemplateData struct {
	BaseTemplateData
}

// home is the landing page with the passkey registration and sign-in
// buttons. Signed-in visitors go straight to their stories.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		app.notFound(w, r)
		return
	}
	if contexthelpers.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/stories", http.StatusSeeOther)
		return
	}

	data := homeTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
	}

	app.render(w, r, http.StatusOK, "home", data)
}
