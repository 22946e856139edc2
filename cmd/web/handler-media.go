package main

import (
	"net/http"
	"strings"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/media"
)

// presignPhotoUpload hands the browser a short-lived URL for uploading a
// photo straight to the media bucket.
func (app *application) presignPhotoUpload(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}
	if app.mediaStore == nil {
		app.clientError(w, r, http.StatusServiceUnavailable)
		return
	}

	var request struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
	}
	if err = app.decodeJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if request.Filename == "" || !strings.HasPrefix(request.ContentType, "image/") {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	key := media.PhotoKey(story.ID, sess.Current().ID, request.Filename)
	upload, err := app.mediaStore.PresignUpload(r.Context(), key, request.ContentType)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "presign photo upload"))
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{
		"uploadURL": upload.URL,
		"key":       upload.Key,
		"expiresIn": int(upload.ExpiresIn.Seconds()),
	})
}

// attachPhoto records an uploaded photo URL on the open question's draft.
// The attachment becomes durable together with the answer on save.
func (app *application) attachPhoto(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	var request struct {
		URL string `json:"url"`
	}
	if err = app.decodeJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if request.URL == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	sess.AttachImage(request.URL)

	app.writeJSON(w, r, http.StatusOK, map[string]any{
		"imageURLs": sess.Draft().ImageURLs,
	})
}
