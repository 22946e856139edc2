// Package capture drives the record, stop, preview, save-or-discard
// lifecycle of an audio or video answer. Incoming chunks are spooled to a
// temporary file so long recordings never sit in memory.
package capture

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/beforeigo/beforeigo/internal/errors"
)

// Kind selects the media preference list used when negotiating a recording
// format with the client.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Preferred formats in priority order. The first one the client supports
// wins.
var (
	audioMIMEPreferences = []string{
		"audio/webm;codecs=opus",
		"audio/webm",
		"audio/ogg;codecs=opus",
		"audio/mp4",
		"audio/mpeg",
	}
	videoMIMEPreferences = []string{
		"video/webm;codecs=vp9,opus",
		"video/webm;codecs=vp8,opus",
		"video/webm",
		"video/mp4",
	}
)

// State is the recorder lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	// StateStopped holds a finished recording for preview until the
	// caller saves, discards, or re-records it.
	StateStopped State = "stopped"
)

var (
	// ErrUnsupportedMedia is returned when the client supports none of
	// the preferred formats.
	ErrUnsupportedMedia = errors.NewSentinel("no supported recording format")

	// ErrInvalidState is returned when an operation does not apply to the
	// recorder's current lifecycle position.
	ErrInvalidState = errors.NewSentinel("invalid recorder state")
)

// Clip is a finished recording. Whoever holds the Clip owns the spool file
// and is responsible for removing it.
type Clip struct {
	Path     string
	MIMEType string
	Kind     Kind
	Size     int64
	Duration time.Duration
}

// Remove deletes the clip's spool file.
func (c *Clip) Remove() error {
	if err := os.Remove(c.Path); err != nil {
		return errors.Wrap(err, "remove clip spool", slog.String("path", c.Path))
	}
	return nil
}

// Recorder spools one recording at a time. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	kind      Kind
	dir       string
	logger    *slog.Logger
	state     State
	mimeType  string
	spool     *os.File
	size      int64
	startedAt time.Time
	stoppedAt time.Time
	now       func() time.Time
}

// NewRecorder creates an idle recorder that spools into dir. An empty dir
// uses the system temporary directory.
func NewRecorder(kind Kind, dir string, logger *slog.Logger) *Recorder {
	return &Recorder{
		kind:   kind,
		dir:    dir,
		logger: logger.With("source", "Recorder", "kind", string(kind)),
		state:  StateIdle,
		now:    time.Now,
	}
}

// State returns the current lifecycle position.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Begin negotiates a recording format against the client's supported types
// and starts a new recording. It is only valid from the idle state.
func (r *Recorder) Begin(supported []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return "", fmt.Errorf("%w: begin from %s", ErrInvalidState, r.state)
	}

	mimeType, ok := selectMIMEType(r.kind, supported)
	if !ok {
		return "", ErrUnsupportedMedia
	}

	if err := r.startRecordingLocked(mimeType); err != nil {
		return "", err
	}
	return mimeType, nil
}

func (r *Recorder) startRecordingLocked(mimeType string) error {
	spool, err := os.CreateTemp(r.dir, "recording-*"+extensionFor(mimeType))
	if err != nil {
		return errors.Wrap(err, "create recording spool")
	}

	r.mimeType = mimeType
	r.spool = spool
	r.size = 0
	r.startedAt = r.now()
	r.stoppedAt = time.Time{}
	r.state = StateRecording
	r.logger.Debug("recording started", slog.String("mime_type", mimeType))
	return nil
}

// AppendChunk writes a chunk of recorded media to the spool.
func (r *Recorder) AppendChunk(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return fmt.Errorf("%w: append chunk from %s", ErrInvalidState, r.state)
	}
	n, err := r.spool.Write(chunk)
	r.size += int64(n)
	if err != nil {
		return errors.Wrap(err, "write recording chunk")
	}
	return nil
}

// Elapsed reports how long the current recording has been running, in whole
// seconds.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRecording:
		return r.now().Sub(r.startedAt).Truncate(time.Second)
	case StateStopped:
		return r.stoppedAt.Sub(r.startedAt).Truncate(time.Second)
	default:
		return 0
	}
}

// Stop finishes the recording and holds it for preview.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return fmt.Errorf("%w: stop from %s", ErrInvalidState, r.state)
	}
	if err := r.spool.Sync(); err != nil {
		return errors.Wrap(err, "sync recording spool")
	}
	r.stoppedAt = r.now()
	r.state = StateStopped
	return nil
}

// Preview describes the stopped recording without transferring ownership.
// The clip stays under the recorder's control.
func (r *Recorder) Preview() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateStopped {
		return nil, fmt.Errorf("%w: preview from %s", ErrInvalidState, r.state)
	}
	return r.clipLocked(), nil
}

func (r *Recorder) clipLocked() *Clip {
	return &Clip{
		Path:     r.spool.Name(),
		MIMEType: r.mimeType,
		Kind:     r.kind,
		Size:     r.size,
		Duration: r.stoppedAt.Sub(r.startedAt).Truncate(time.Second),
	}
}

// Save hands the stopped recording over to the caller and resets the
// recorder. The returned clip's spool file now belongs to the caller.
func (r *Recorder) Save() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateStopped {
		return nil, fmt.Errorf("%w: save from %s", ErrInvalidState, r.state)
	}
	clip := r.clipLocked()
	if err := r.spool.Close(); err != nil {
		return nil, errors.Wrap(err, "close recording spool")
	}
	r.resetLocked()
	return clip, nil
}

// Discard throws away the stopped recording and returns to idle.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateStopped {
		return fmt.Errorf("%w: discard from %s", ErrInvalidState, r.state)
	}
	return r.removeSpoolLocked()
}

// ReRecord drops the stopped recording and immediately starts a fresh one
// with the same format, invalidating the previous preview.
func (r *Recorder) ReRecord() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateStopped {
		return fmt.Errorf("%w: re-record from %s", ErrInvalidState, r.state)
	}
	mimeType := r.mimeType
	if err := r.removeSpoolLocked(); err != nil {
		return err
	}
	return r.startRecordingLocked(mimeType)
}

// Cancel tears the recorder down from any state, deleting the spool when one
// exists. Cancelling an idle recorder is a no-op.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateIdle {
		return nil
	}
	return r.removeSpoolLocked()
}

func (r *Recorder) removeSpoolLocked() error {
	path := r.spool.Name()
	if err := r.spool.Close(); err != nil {
		return errors.Wrap(err, "close recording spool")
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, "remove recording spool", slog.String("path", path))
	}
	r.resetLocked()
	return nil
}

func (r *Recorder) resetLocked() {
	r.state = StateIdle
	r.spool = nil
	r.mimeType = ""
	r.size = 0
	r.startedAt = time.Time{}
	r.stoppedAt = time.Time{}
}

func selectMIMEType(kind Kind, supported []string) (string, bool) {
	preferences := audioMIMEPreferences
	if kind == KindVideo {
		preferences = videoMIMEPreferences
	}
	supportedSet := make(map[string]bool, len(supported))
	for _, mimeType := range supported {
		supportedSet[mimeType] = true
	}
	for _, mimeType := range preferences {
		if supportedSet[mimeType] {
			return mimeType, true
		}
	}
	return "", false
}

func extensionFor(mimeType string) string {
	switch {
	case hasMediaPrefix(mimeType, "audio/webm"), hasMediaPrefix(mimeType, "video/webm"):
		return ".webm"
	case hasMediaPrefix(mimeType, "audio/ogg"):
		return ".ogg"
	case hasMediaPrefix(mimeType, "audio/mp4"), hasMediaPrefix(mimeType, "video/mp4"):
		return ".mp4"
	case hasMediaPrefix(mimeType, "audio/mpeg"):
		return ".mp3"
	default:
		return ".bin"
	}
}

func hasMediaPrefix(mimeType, prefix string) bool {
	return mimeType == prefix || len(mimeType) > len(prefix) && mimeType[:len(prefix)+1] == prefix+";"
}
