package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/mailer"
	"github.com/beforeigo/beforeigo/internal/random"
)

const giftCodeLength = 24

// sendGift emails a gift notice with a redeem link to the recipient.
func (app *application) sendGift(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email         string `json:"email"`
		RecipientName string `json:"recipientName"`
		SenderName    string `json:"senderName"`
		Message       string `json:"message"`
	}
	if err := app.decodeJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(request.Email); err != nil {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	code, err := random.Letters(giftCodeLength)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	err = app.mailer.SendGift(r.Context(), request.Email, mailer.GiftEmail{
		RecipientName: request.RecipientName,
		SenderName:    request.SenderName,
		Message:       request.Message,
		RedeemURL:     fmt.Sprintf("%s/?gift=%s", app.baseURL, code),
	})
	if err != nil {
		app.mailError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{"sent": true})
}

// subscribeNewsletter signs the address up and sends the welcome email.
func (app *application) subscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email string `json:"email"`
	}
	if err := app.decodeJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(request.Email); err != nil {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	if err := app.mailer.SendNewsletterWelcome(r.Context(), request.Email); err != nil {
		app.mailError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{"subscribed": true})
}

func (app *application) mailError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, mailer.ErrNotConfigured) {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "email delivery not configured")
		app.clientError(w, r, http.StatusServiceUnavailable)
		return
	}
	app.serverError(w, r, err)
}
