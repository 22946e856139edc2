// Package mailer sends transactional email through the Resend API: gift
// notifications, newsletter welcomes, and purchase confirmations.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/beforeigo/beforeigo/internal/errors"

	"embed"
)

const resendEndpoint = "https://api.resend.com/emails"

//go:embed templates/*.gohtml
var templateFS embed.FS

// ErrNotConfigured is returned when sending is attempted without an API key.
var ErrNotConfigured = errors.NewSentinel("mailer not configured")

type Mailer struct {
	httpClient *http.Client
	apiKey     string
	from       string
	templates  *template.Template
	logger     *slog.Logger
}

// NewMailer parses the bundled templates and wires the Resend credentials.
// An empty API key leaves the mailer constructed but refusing to send.
func NewMailer(apiKey, from string, logger *slog.Logger) (*Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parse email templates")
	}
	return &Mailer{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		from:       from,
		templates:  templates,
		logger:     logger.With("source", "Mailer"),
	}, nil
}

// GiftEmail announces a gifted story to its recipient.
type GiftEmail struct {
	RecipientName string
	SenderName    string
	Message       string
	RedeemURL     string
}

func (m *Mailer) SendGift(ctx context.Context, to string, gift GiftEmail) error {
	subject := gift.SenderName + " has given you a priceless gift"
	return m.send(ctx, to, subject, "gift.gohtml", gift)
}

// NewsletterWelcomeEmail greets a new newsletter subscriber.
type NewsletterWelcomeEmail struct {
	Email string
}

func (m *Mailer) SendNewsletterWelcome(ctx context.Context, to string) error {
	return m.send(ctx, to, "Welcome to Before I Go", "newsletter_welcome.gohtml", NewsletterWelcomeEmail{Email: to})
}

// PurchaseConfirmationEmail confirms a plan purchase and links to the story.
type PurchaseConfirmationEmail struct {
	PlanLabel string
	StoryURL  string
}

func (m *Mailer) SendPurchaseConfirmation(ctx context.Context, to string, purchase PurchaseConfirmationEmail) error {
	return m.send(ctx, to, "Your Before I Go purchase", "purchase_confirmation.gohtml", purchase)
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *Mailer) send(ctx context.Context, to, subject, templateName string, data any) error {
	if m.apiKey == "" {
		return ErrNotConfigured
	}

	var html bytes.Buffer
	if err := m.templates.ExecuteTemplate(&html, templateName, data); err != nil {
		return errors.Wrap(err, "execute email template", slog.String("template", templateName))
	}

	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html.String(),
	})
	if err != nil {
		return errors.Wrap(err, "JSON encode email request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new email request")
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "post email request")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "close email response",
				errors.SlogError(errors.Wrap(closeErr, "close body")))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.New("email request failed",
			slog.Int("status", resp.StatusCode), slog.String("detail", string(detail)))
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "email sent", slog.String("template", templateName))
	return nil
}
