package main

import (
	"net/http"
	"strings"

	"github.com/beforeigo/beforeigo/internal/errors"
)

// speakQuestion reads a question aloud. When a hosted voice is available the
// response is the synthesized audio, otherwise a JSON directive tells the
// browser to use its built-in speech synthesis.
func (app *application) speakQuestion(w http.ResponseWriter, r *http.Request) {
	if _, _, err := app.storySession(r); err != nil {
		app.storyError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(r.PostFormValue("text"))
	if text == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	result, err := app.speech.Speak(r.Context(), text)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "synthesize speech"))
		return
	}

	if result.Fallback {
		app.writeJSON(w, r, http.StatusOK, map[string]any{
			"fallback": true,
			"text":     result.Text,
			"rate":     result.Rate,
		})
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(result.Audio)
}
