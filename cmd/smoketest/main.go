package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/beforeigo/beforeigo/internal/e2etest"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/logging"
)

func TestAuth(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()
	var err error

	if _, err = client.Register(ctx); err != nil {
		return errors.Wrap(err, "register user")
	}
	if _, err = client.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout user")
	}
	if _, err = client.Login(ctx); err != nil {
		return errors.Wrap(err, "login user")
	}
	return nil
}

// TestStory starts a story, answers the first question, and checks the share
// page. Requires a logged-in client.
func TestStory(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	doc, err := client.SubmitFormValues(ctx, "/stories", "/stories", url.Values{
		"role":  {"mom"},
		"title": {"Smoke Test Story"},
	})
	if err != nil {
		return errors.Wrap(err, "create story")
	}

	answerAction, ok := doc.Find("form[action$='/answer']").Attr("action")
	if !ok {
		return errors.New("answer form not found")
	}
	storyPath := strings.TrimSuffix(answerAction, "/answer")

	if doc, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
		"answer": {"This is a smoke test answer."},
	}); err != nil {
		return errors.Wrap(err, "save answer")
	}

	shareURL, ok := doc.Find("input#share-url").Attr("value")
	if !ok {
		return errors.New("share link not found")
	}
	sharePath := shareURL[strings.Index(shareURL, "/share/"):]
	if doc, err = client.GetDoc(ctx, sharePath); err != nil {
		return errors.Wrap(err, "get share page")
	}
	if !strings.Contains(doc.Text(), "smoke test answer") {
		return errors.New("shared answer not visible")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname  = os.Args[1]
		serverURL = "https://" + hostname
		client    *e2etest.Client
		err       error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", serverURL))

	if client, err = e2etest.NewClient(serverURL, hostname, serverURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestAuth(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestStory(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing story flow", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
