package errors_test

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrap_matchesSentinel(t *testing.T) {
	t.Parallel()

	sentinel := errors.NewSentinel("story not found")
	wrapped := errors.Wrap(sentinel, "load story", slog.String("story_id", "abc"))

	require.True(t, errors.Is(wrapped, sentinel), "wrapped error should match sentinel")
	require.Contains(t, wrapped.Error(), "load story")
	require.Contains(t, wrapped.Error(), "story not found")
}

func TestWrap_exposesAnnotation(t *testing.T) {
	t.Parallel()

	wrapped := errors.Wrap(errors.NewSentinel("boom"), "save response")

	var annotated errors.AnnotatedError
	require.True(t, errors.As(wrapped, &annotated), "annotation should be extractable")
	require.Equal(t, "save response", annotated.Error())

	// The log value points at this test file, not the errors package.
	value := annotated.LogValue()
	var source string
	for _, attr := range value.Group() {
		if attr.Key == "source" {
			source = attr.Value.String()
		}
	}
	require.True(t, strings.Contains(source, "annotatederror_test.go"), "source was %q", source)
}

func TestSlogError(t *testing.T) {
	t.Parallel()

	attr := errors.SlogError(errors.New("speech unavailable"))
	require.Equal(t, "error", attr.Key)

	attr = errors.SlogError(errors.NewSentinel("plain"))
	require.Equal(t, "error", attr.Key)
}
