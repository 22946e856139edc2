package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/beforeigo/beforeigo/internal/e2etest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *e2etest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	recordingDir := t.TempDir()
	lookupEnv := func(key string) (string, bool) {
		switch key {
		case "BEFOREIGO_ADDR":
			return "localhost:0", true
		case "BEFOREIGO_SQLITE_URL":
			return ":memory:", true
		case "BEFOREIGO_RECORDING_DIR":
			return recordingDir, true
		default:
			return "", false
		}
	}

	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, run)
	require.NoError(t, err)
	return server
}

func TestHealthy(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()

	resp, err := server.Client().Get(ctx, "/api/healthy")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestHome(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()

	doc, err := server.Client().GetDoc(ctx, "/")
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find("form[action='/api/registration/start']").Length())
	assert.Equal(t, 1, doc.Find("form[action='/api/login/start']").Length())
	assert.Contains(t, doc.Text(), "Every life is a story worth keeping")
}

func TestStoriesRequireAuthentication(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()

	// The redirect lands back on the landing page.
	doc, err := server.Client().GetDoc(ctx, "/stories")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("form[action='/api/registration/start']").Length())
}

// answerFormAction digs the save-answer form out of a question page. The
// form action carries the story ID assigned on creation.
func answerFormAction(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	action, ok := doc.Find("form[action$='/answer']").Attr("action")
	require.True(t, ok, "question page should contain the answer form")
	return action
}

func TestStoryFlow(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()
	client := server.Client()

	doc, err := client.Register(ctx)
	require.NoError(t, err)
	// Registered users land on their story dashboard.
	assert.Contains(t, doc.Text(), "My stories")
	assert.Equal(t, 1, doc.Find("form[action='/api/logout']").Length())

	// Start a story for Mom.
	doc, err = client.SubmitFormValues(ctx, "/stories", "/stories", url.Values{
		"role":  {"mom"},
		"title": {"Mom's Story"},
	})
	require.NoError(t, err)

	answerAction := answerFormAction(t, doc)
	storyPath := strings.TrimSuffix(answerAction, "/answer")
	assert.Contains(t, doc.Text(), "Mom's Story")
	assert.Contains(t, doc.Text(), "Question 1 of")
	assert.Contains(t, doc.Text(), "Chapter 1")

	// Answer the first question and check that progress moved.
	doc, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
		"answer": {"I was born in a small town by the sea."},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "1 of")
	assert.Contains(t, doc.Text(), "Question 2 of")

	// A whitespace answer does not count as answered.
	doc, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
		"answer": {"   "},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Question 3 of")

	// Navigate back to the first question. The saved answer is loaded into
	// the editor.
	doc, err = client.SubmitFormValues(ctx, storyPath, storyPath+"/navigate", url.Values{
		"question": {"q1"},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Find("textarea[name=answer]").Text(), "small town by the sea")

	// The dashboard shows the story with its progress.
	doc, err = client.GetDoc(ctx, "/stories")
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Mom's Story")
}

func TestChapterTransitionFlow(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()
	client := server.Client()

	_, err := client.Register(ctx)
	require.NoError(t, err)

	// The sibling catalog reaches its first chapter boundary after three
	// answers.
	doc, err := client.SubmitFormValues(ctx, "/stories", "/stories", url.Values{
		"role":  {"sibling"},
		"title": {"Growing Up Together"},
	})
	require.NoError(t, err)
	answerAction := answerFormAction(t, doc)
	storyPath := strings.TrimSuffix(answerAction, "/answer")

	for _, answer := range []string{"first", "second"} {
		doc, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
			"answer": {answer},
		})
		require.NoError(t, err)
	}
	assert.Contains(t, doc.Text(), "Question 3 of")

	// Crossing the boundary holds the saved question behind the
	// transition screen instead of advancing.
	doc, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
		"answer": {"third"},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Question 3 of")
	continueForm := doc.Find("form[action='" + storyPath + "/chapters/continue']")
	require.Equal(t, 1, continueForm.Length(), "transition screen with a continue form expected")

	doc, err = client.SubmitFormValues(ctx, storyPath, storyPath+"/chapters/continue", url.Values{})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Question 4 of")
	assert.Equal(t, 0, doc.Find("form[action='"+storyPath+"/chapters/continue']").Length())
}

func TestSharedStory(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()
	client := server.Client()

	_, err := client.Register(ctx)
	require.NoError(t, err)

	doc, err := client.SubmitFormValues(ctx, "/stories", "/stories", url.Values{
		"role": {"grandma"},
	})
	require.NoError(t, err)
	answerAction := answerFormAction(t, doc)
	storyPath := strings.TrimSuffix(answerAction, "/answer")

	doc, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
		"answer": {"My grandmother taught me to bake bread."},
	})
	require.NoError(t, err)

	shareURL, ok := doc.Find("input#share-url").Attr("value")
	require.True(t, ok, "question page should show the share link")
	sharePath := shareURL[strings.Index(shareURL, "/share/"):]

	// The share link works without signing in.
	logoutDoc, err := client.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, logoutDoc.Find("form[action='/api/login/start']").Length())

	doc, err = client.GetDoc(ctx, sharePath)
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Grandma's Story")
	assert.Contains(t, doc.Text(), "taught me to bake bread")
	// Unanswered questions stay private.
	assert.NotContains(t, doc.Text(), "textarea")
}

func TestSharedStoryNotFound(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()

	resp, err := server.Client().Get(ctx, "/share/nosuchtoken")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportStory(t *testing.T) {
	t.Parallel()

	server := startServer(t)
	ctx := context.Background()
	client := server.Client()

	_, err := client.Register(ctx)
	require.NoError(t, err)

	doc, err := client.SubmitFormValues(ctx, "/stories", "/stories", url.Values{
		"role":  {"dad"},
		"title": {"Dad Remembers"},
	})
	require.NoError(t, err)
	answerAction := answerFormAction(t, doc)
	storyPath := strings.TrimSuffix(answerAction, "/answer")

	_, err = client.SubmitFormValues(ctx, storyPath, answerAction, url.Values{
		"answer": {"I grew up on a farm."},
	})
	require.NoError(t, err)

	resp, err := client.Get(ctx, storyPath+"/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	var document struct {
		Title    string `json:"title"`
		Role     string `json:"role"`
		Chapters []struct {
			Name    string `json:"name"`
			Answers []struct {
				Answer string `json:"answer"`
			} `json:"answers"`
		} `json:"chapters"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&document))
	assert.Equal(t, "Dad Remembers", document.Title)
	assert.Equal(t, "dad", document.Role)
	require.Len(t, document.Chapters, 1)
	require.Len(t, document.Chapters[0].Answers, 1)
	assert.Equal(t, "I grew up on a farm.", document.Chapters[0].Answers[0].Answer)
}

func TestSpeechFallback(t *testing.T) {
	t.Parallel()

	// No speech credentials are configured, so the endpoint directs the
	// browser to its built-in synthesis.
	server := startServer(t)
	ctx := context.Background()
	client := server.Client()

	_, err := client.Register(ctx)
	require.NoError(t, err)

	doc, err := client.SubmitFormValues(ctx, "/stories", "/stories", url.Values{
		"role": {"sibling"},
	})
	require.NoError(t, err)
	storyPath := strings.TrimSuffix(answerFormAction(t, doc), "/answer")

	doc, err = client.SubmitFormValues(ctx, storyPath, storyPath+"/speech", url.Values{
		"text": {"What is your earliest memory?"},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), `"fallback":true`)
}
