package main

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/beforeigo/beforeigo/internal/capture"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/media"
	"github.com/beforeigo/beforeigo/internal/session"
)

// maxRecordingChunk caps a single uploaded chunk at 8 MiB.
const maxRecordingChunk = 8 << 20

// recordingError maps the recorder lifecycle errors to client errors.
func (app *application) recordingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrPlanForbidsMedia):
		app.clientError(w, r, http.StatusPaymentRequired)
	case errors.Is(err, session.ErrNoRecording), errors.Is(err, capture.ErrInvalidState):
		app.clientError(w, r, http.StatusConflict)
	case errors.Is(err, capture.ErrUnsupportedMedia):
		app.clientError(w, r, http.StatusUnsupportedMediaType)
	default:
		app.serverError(w, r, err)
	}
}

// startRecording negotiates a recording format and opens a fresh spool.
func (app *application) startRecording(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	var request struct {
		Kind      string   `json:"kind"`
		Supported []string `json:"supported"`
	}
	if err = app.decodeJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	kind := capture.Kind(request.Kind)
	if kind != capture.KindAudio && kind != capture.KindVideo {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	mimeType, err := sess.BeginRecording(kind, request.Supported)
	if err != nil {
		app.recordingError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{"mimeType": mimeType})
}

// appendRecordingChunk spools one chunk of the recording in progress.
func (app *application) appendRecordingChunk(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxRecordingChunk))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if err = sess.AppendRecordingChunk(chunk); err != nil {
		app.recordingError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{
		"elapsedSeconds": int(sess.RecordingElapsed().Seconds()),
	})
}

// stopRecording finishes the recording and returns the preview clip.
func (app *application) stopRecording(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	clip, err := sess.StopRecording()
	if err != nil {
		app.recordingError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{
		"mimeType":        clip.MIMEType,
		"sizeBytes":       clip.Size,
		"durationSeconds": int(clip.Duration.Seconds()),
	})
}

// reRecord throws the stopped recording away and starts over in the same
// format.
func (app *application) reRecord(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	if err = sess.ReRecord(); err != nil {
		app.recordingError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{"recording": true})
}

// saveRecording keeps the stopped recording as the answer's clip. When media
// storage is configured the response carries a presigned upload for moving
// the clip to durable storage.
func (app *application) saveRecording(w http.ResponseWriter, r *http.Request) {
	story, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	clip, err := sess.SaveRecording()
	if err != nil {
		app.recordingError(w, r, err)
		return
	}

	response := map[string]any{
		"mimeType":        clip.MIMEType,
		"sizeBytes":       clip.Size,
		"durationSeconds": int(clip.Duration.Seconds()),
	}
	if app.mediaStore != nil {
		key := media.RecordingKey(story.ID, sess.Current().ID, string(clip.Kind), filepath.Ext(clip.Path))
		upload, uploadErr := app.mediaStore.PresignUpload(r.Context(), key, clip.MIMEType)
		if uploadErr != nil {
			app.serverError(w, r, errors.Wrap(uploadErr, "presign recording upload"))
			return
		}
		response["uploadURL"] = upload.URL
		response["uploadKey"] = upload.Key
	}

	app.writeJSON(w, r, http.StatusOK, response)
}

// discardRecording deletes the stopped recording without saving it.
func (app *application) discardRecording(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	if err = sess.DiscardRecording(); err != nil {
		app.recordingError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{"discarded": true})
}

// cancelRecording aborts whatever recording is in flight. Already saved
// clips stay attached to their answers.
func (app *application) cancelRecording(w http.ResponseWriter, r *http.Request) {
	_, sess, err := app.storySession(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	if err = sess.CancelRecording(); err != nil {
		app.recordingError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{"cancelled": true})
}
