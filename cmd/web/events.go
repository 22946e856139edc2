package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/beforeigo/beforeigo/internal/errors"
)

// progressEvent is pushed to listening browsers after every saved answer so
// that progress bars and celebrations stay current across open tabs.
type progressEvent struct {
	Progress       int    `json:"progress"`
	CompletedCount int    `json:"completedCount"`
	Milestone      string `json:"milestone,omitempty"`
	Chapter        string `json:"chapter,omitempty"`
	StoryCompleted bool   `json:"storyCompleted,omitempty"`
}

// publishProgress hands the event to the story's open event streams. A story
// without a listening browser drops the event silently.
func (app *application) publishProgress(storyID string, event progressEvent) {
	app.events.Publish(storyID, event)
}

// storyEvents streams progress events for one story as Server-Sent Events.
func (app *application) storyEvents(w http.ResponseWriter, r *http.Request) {
	story, err := app.authorizedStory(r)
	if err != nil {
		app.storyError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverError(w, r, errors.New("response writer does not support flushing"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := app.events.Subscribe(story.ID)
	defer app.events.Unsubscribe(story.ID, events)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				app.logger.LogAttrs(r.Context(), slog.LevelError, "marshal progress event", errors.SlogError(err))
				continue
			}
			if _, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
