package capture

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/beforeigo/beforeigo/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T, kind Kind) *Recorder {
	t.Helper()
	return NewRecorder(kind, t.TempDir(), testhelpers.NewLogger(io.Discard))
}

func TestRecorder_selectsPreferredFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		kind      Kind
		supported []string
		want      string
	}{
		{
			name:      "audio prefers opus in webm",
			kind:      KindAudio,
			supported: []string{"audio/mp4", "audio/webm", "audio/webm;codecs=opus"},
			want:      "audio/webm;codecs=opus",
		},
		{
			name:      "audio falls back down the list",
			kind:      KindAudio,
			supported: []string{"audio/mpeg", "audio/mp4"},
			want:      "audio/mp4",
		},
		{
			name:      "video prefers vp9",
			kind:      KindVideo,
			supported: []string{"video/webm", "video/webm;codecs=vp9,opus", "video/mp4"},
			want:      "video/webm;codecs=vp9,opus",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := newTestRecorder(t, tt.kind)
			mimeType, err := recorder.Begin(tt.supported)
			require.NoError(t, err)
			require.Equal(t, tt.want, mimeType)
			require.Equal(t, StateRecording, recorder.State())
		})
	}
}

func TestRecorder_rejectsUnsupportedFormats(t *testing.T) {
	t.Parallel()

	recorder := newTestRecorder(t, KindVideo)
	_, err := recorder.Begin([]string{"video/x-matroska", "video/quicktime"})
	require.ErrorIs(t, err, ErrUnsupportedMedia)
	require.Equal(t, StateIdle, recorder.State())
}

func TestRecorder_recordStopPreviewSave(t *testing.T) {
	t.Parallel()

	recorder := newTestRecorder(t, KindAudio)
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	now := start
	recorder.now = func() time.Time { return now }

	_, err := recorder.Begin([]string{"audio/webm"})
	require.NoError(t, err)

	require.NoError(t, recorder.AppendChunk([]byte("chunk-one-")))
	require.NoError(t, recorder.AppendChunk([]byte("chunk-two")))

	now = start.Add(12*time.Second + 700*time.Millisecond)
	require.Equal(t, 12*time.Second, recorder.Elapsed(), "elapsed reports whole seconds")

	require.NoError(t, recorder.Stop())
	require.Equal(t, StateStopped, recorder.State())

	preview, err := recorder.Preview()
	require.NoError(t, err)
	require.Equal(t, "audio/webm", preview.MIMEType)
	require.Equal(t, int64(len("chunk-one-chunk-two")), preview.Size)
	require.Equal(t, 12*time.Second, preview.Duration)

	content, err := os.ReadFile(preview.Path)
	require.NoError(t, err)
	require.Equal(t, "chunk-one-chunk-two", string(content))

	clip, err := recorder.Save()
	require.NoError(t, err)
	require.Equal(t, preview.Path, clip.Path)
	require.Equal(t, StateIdle, recorder.State())

	// The saved clip belongs to the caller now.
	require.FileExists(t, clip.Path)
	require.NoError(t, clip.Remove())
	require.NoFileExists(t, clip.Path)
}

func TestRecorder_discardDeletesSpool(t *testing.T) {
	t.Parallel()

	recorder := newTestRecorder(t, KindAudio)
	_, err := recorder.Begin([]string{"audio/webm"})
	require.NoError(t, err)
	require.NoError(t, recorder.AppendChunk([]byte("take one")))
	require.NoError(t, recorder.Stop())

	preview, err := recorder.Preview()
	require.NoError(t, err)

	require.NoError(t, recorder.Discard())
	require.Equal(t, StateIdle, recorder.State())
	require.NoFileExists(t, preview.Path)
}

func TestRecorder_reRecordInvalidatesPreview(t *testing.T) {
	t.Parallel()

	recorder := newTestRecorder(t, KindVideo)
	_, err := recorder.Begin([]string{"video/webm"})
	require.NoError(t, err)
	require.NoError(t, recorder.AppendChunk([]byte("first take")))
	require.NoError(t, recorder.Stop())

	firstPreview, err := recorder.Preview()
	require.NoError(t, err)

	require.NoError(t, recorder.ReRecord())
	require.Equal(t, StateRecording, recorder.State())
	require.NoFileExists(t, firstPreview.Path, "re-recording invalidates the previous preview")

	require.NoError(t, recorder.AppendChunk([]byte("second take")))
	require.NoError(t, recorder.Stop())

	secondPreview, err := recorder.Preview()
	require.NoError(t, err)
	require.NotEqual(t, firstPreview.Path, secondPreview.Path)
	require.Equal(t, "video/webm", secondPreview.MIMEType)

	content, err := os.ReadFile(secondPreview.Path)
	require.NoError(t, err)
	require.Equal(t, "second take", string(content))
}

func TestRecorder_cancel(t *testing.T) {
	t.Parallel()

	recorder := newTestRecorder(t, KindAudio)
	require.NoError(t, recorder.Cancel(), "cancel is a no-op when idle")

	_, err := recorder.Begin([]string{"audio/webm"})
	require.NoError(t, err)
	require.NoError(t, recorder.AppendChunk([]byte("abandoned take")))
	spoolPath := recorder.spool.Name()

	require.NoError(t, recorder.Cancel())
	require.Equal(t, StateIdle, recorder.State())
	require.NoFileExists(t, spoolPath)
}

func TestRecorder_invalidStateTransitions(t *testing.T) {
	t.Parallel()

	recorder := newTestRecorder(t, KindAudio)

	require.ErrorIs(t, recorder.AppendChunk([]byte("x")), ErrInvalidState)
	require.ErrorIs(t, recorder.Stop(), ErrInvalidState)
	require.ErrorIs(t, recorder.Discard(), ErrInvalidState)
	_, err := recorder.Save()
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = recorder.Begin([]string{"audio/webm"})
	require.NoError(t, err)
	_, err = recorder.Begin([]string{"audio/webm"})
	require.ErrorIs(t, err, ErrInvalidState, "begin is only valid from idle")
}
