package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/beforeigo/beforeigo/internal/contexthelpers"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/beforeigo/beforeigo/internal/repositories"
	"github.com/beforeigo/beforeigo/internal/session"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.Debug(http.StatusText(status), "method", method, "uri", uri, slog.Any("formdata", r.Form))
	http.Error(w, http.StatusText(status), status)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound)
}

// storyError maps repository lookup failures to 404 and everything else
// to 500.
func (app *application) storyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	app.serverError(w, r, err)
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal JSON response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func (app *application) decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode JSON request")
	}
	return nil
}

// authorizedStory resolves the storyID path value to a story owned by the
// authenticated user. Stories belonging to someone else come back as
// repositories.ErrNotFound so that the response does not leak their
// existence.
func (app *application) authorizedStory(r *http.Request) (*models.Story, error) {
	ctx := r.Context()
	storyID := r.PathValue("storyID")
	story, err := app.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, errors.Wrap(err, "get story", slog.String("story_id", storyID))
	}
	if !bytes.Equal(story.UserID, contexthelpers.AuthenticatedUserID(ctx)) {
		return nil, errors.Wrap(repositories.ErrNotFound, "story owned by another user")
	}
	return story, nil
}

// storySession resolves the story and its live answering session in one go.
func (app *application) storySession(r *http.Request) (*models.Story, *session.Session, error) {
	story, err := app.authorizedStory(r)
	if err != nil {
		return nil, nil, err
	}
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	questions := app.catalog.ForRole(story.Role)
	return story, app.sessions.Load(ctx, userID, story, questions), nil
}

const flashSessionKey = "flash"

func (app *application) flash(r *http.Request, message string) {
	app.sessionManager.Put(r.Context(), flashSessionKey, message)
}

func (app *application) popFlash(r *http.Request) string {
	return app.sessionManager.PopString(r.Context(), flashSessionKey)
}
