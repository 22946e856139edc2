package main

import (
	"net/http"

	"github.com/beforeigo/beforeigo/ui"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	fileServer := http.FileServerFS(ui.Static)
	mux.Handle("GET /static/", cacheForeverHeaders(fileServer))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	dynamic := alice.New(
		app.sessionManager.LoadAndSave,
		noSurf,
		app.webAuthnHandler.AuthenticateMiddleware,
		commonContext,
	)
	protected := dynamic.Append(app.requireAuthentication)
	// Server-sent events hold the connection open, which does not mix with
	// scs's write-on-close session handling.
	stream := alice.New(
		app.serverSentEventMiddleware,
		app.webAuthnHandler.AuthenticateMiddleware,
		commonContext,
		app.requireAuthentication,
	)

	mux.Handle("GET /", dynamic.ThenFunc(app.home))
	mux.Handle("GET /share/{shareToken}", dynamic.ThenFunc(app.sharedStory))

	mux.Handle("GET /stories", protected.ThenFunc(app.dashboard))
	mux.Handle("POST /stories", protected.ThenFunc(app.createStory))
	mux.Handle("GET /stories/{storyID}", protected.ThenFunc(app.storyPage))
	mux.Handle("POST /stories/{storyID}/answer", protected.ThenFunc(app.saveAnswer))
	mux.Handle("POST /stories/{storyID}/navigate", protected.ThenFunc(app.navigate))
	mux.Handle("POST /stories/{storyID}/chapters/continue", protected.ThenFunc(app.continueChapter))
	mux.Handle("POST /stories/{storyID}/chapters/toggle", protected.ThenFunc(app.toggleChapter))
	mux.Handle("POST /stories/{storyID}/speech", protected.ThenFunc(app.speakQuestion))
	mux.Handle("POST /stories/{storyID}/plan", protected.ThenFunc(app.purchasePlan))
	mux.Handle("GET /stories/{storyID}/export", protected.ThenFunc(app.exportStory))
	mux.Handle("GET /stories/{storyID}/book", protected.ThenFunc(app.storyBook))
	mux.Handle("GET /stories/{storyID}/events", stream.ThenFunc(app.storyEvents))

	mux.Handle("POST /stories/{storyID}/recordings/start", protected.ThenFunc(app.startRecording))
	mux.Handle("POST /stories/{storyID}/recordings/chunk", protected.ThenFunc(app.appendRecordingChunk))
	mux.Handle("POST /stories/{storyID}/recordings/stop", protected.ThenFunc(app.stopRecording))
	mux.Handle("POST /stories/{storyID}/recordings/rerecord", protected.ThenFunc(app.reRecord))
	mux.Handle("POST /stories/{storyID}/recordings/save", protected.ThenFunc(app.saveRecording))
	mux.Handle("POST /stories/{storyID}/recordings/discard", protected.ThenFunc(app.discardRecording))
	mux.Handle("POST /stories/{storyID}/recordings/cancel", protected.ThenFunc(app.cancelRecording))
	mux.Handle("POST /stories/{storyID}/uploads", protected.ThenFunc(app.presignPhotoUpload))
	mux.Handle("POST /stories/{storyID}/photos", protected.ThenFunc(app.attachPhoto))

	mux.Handle("POST /api/gift", dynamic.ThenFunc(app.sendGift))
	mux.Handle("POST /api/newsletter", dynamic.ThenFunc(app.subscribeNewsletter))

	mux.Handle("POST /api/registration/start", dynamic.ThenFunc(app.BeginRegistration))
	mux.Handle("POST /api/registration/finish", dynamic.ThenFunc(app.FinishRegistration))
	mux.Handle("POST /api/login/start", dynamic.ThenFunc(app.BeginLogin))
	mux.Handle("POST /api/login/finish", dynamic.ThenFunc(app.FinishLogin))
	mux.Handle("POST /api/logout", dynamic.ThenFunc(app.Logout))

	return app.recoverPanic(app.logRequest(app.secureHeaders(mux)))
}
