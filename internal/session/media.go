package session

import (
	"log/slog"
	"time"

	"github.com/beforeigo/beforeigo/internal/capture"
	"github.com/beforeigo/beforeigo/internal/errors"
)

// MediaDraft holds the recordings attached to one question, at most one per
// kind. Attached clips stay with the question until the storyteller replaces
// them.
type MediaDraft struct {
	Audio *capture.Clip
	Video *capture.Clip
}

var (
	// ErrPlanForbidsMedia is returned when the story's plan does not
	// include audio and video answers.
	ErrPlanForbidsMedia = errors.NewSentinel("plan does not include recordings")

	// ErrNoRecording is returned when a recording operation arrives
	// without an active recorder.
	ErrNoRecording = errors.NewSentinel("no recording in progress")
)

// BeginRecording starts recording an answer of the given kind for the open
// question and returns the negotiated format. Recording requires a plan with
// premium media.
func (s *Session) BeginRecording(kind capture.Kind, supported []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.story.Plan.PremiumMedia() {
		return "", ErrPlanForbidsMedia
	}
	if s.recorder != nil {
		return "", errors.New("recording already in progress",
			slog.String("kind", string(s.recorderKind)))
	}

	recorder := capture.NewRecorder(kind, s.recordingDir, s.logger)
	mimeType, err := recorder.Begin(supported)
	if err != nil {
		return "", err
	}
	s.recorder = recorder
	s.recorderKind = kind
	return mimeType, nil
}

// AppendRecordingChunk spools a chunk of the in-progress recording.
func (s *Session) AppendRecordingChunk(chunk []byte) error {
	s.mu.Lock()
	recorder := s.recorder
	s.mu.Unlock()

	if recorder == nil {
		return ErrNoRecording
	}
	return recorder.AppendChunk(chunk)
}

// RecordingElapsed reports the current recording length in whole seconds.
func (s *Session) RecordingElapsed() time.Duration {
	s.mu.Lock()
	recorder := s.recorder
	s.mu.Unlock()

	if recorder == nil {
		return 0
	}
	return recorder.Elapsed()
}

// StopRecording finishes the recording and returns it for preview. The clip
// is not attached to the question until SaveRecording.
func (s *Session) StopRecording() (*capture.Clip, error) {
	s.mu.Lock()
	recorder := s.recorder
	s.mu.Unlock()

	if recorder == nil {
		return nil, ErrNoRecording
	}
	if err := recorder.Stop(); err != nil {
		return nil, err
	}
	return recorder.Preview()
}

// ReRecord drops the previewed take and starts over in the same format.
func (s *Session) ReRecord() error {
	s.mu.Lock()
	recorder := s.recorder
	s.mu.Unlock()

	if recorder == nil {
		return ErrNoRecording
	}
	return recorder.ReRecord()
}

// SaveRecording attaches the previewed clip to the open question, replacing
// any earlier clip of the same kind.
func (s *Session) SaveRecording() (*capture.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder == nil {
		return nil, ErrNoRecording
	}
	clip, err := s.recorder.Save()
	if err != nil {
		return nil, err
	}

	questionID := s.questions[s.active].ID
	draft, ok := s.media[questionID]
	if !ok {
		draft = &MediaDraft{}
		s.media[questionID] = draft
	}

	var previous *capture.Clip
	switch s.recorderKind {
	case capture.KindVideo:
		previous, draft.Video = draft.Video, clip
	default:
		previous, draft.Audio = draft.Audio, clip
	}
	if previous != nil {
		if err := previous.Remove(); err != nil {
			s.logger.Warn("could not remove replaced recording", errors.SlogError(err))
		}
	}

	s.recorder = nil
	s.recorderKind = ""
	return clip, nil
}

// DiscardRecording throws the previewed take away without attaching it.
func (s *Session) DiscardRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder == nil {
		return ErrNoRecording
	}
	if err := s.recorder.Discard(); err != nil {
		return err
	}
	s.recorder = nil
	s.recorderKind = ""
	return nil
}

// CancelRecording abandons the recorder in whatever state it is in. Clips
// already attached to questions are untouched.
func (s *Session) CancelRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.Cancel(); err != nil {
		return err
	}
	s.recorder = nil
	s.recorderKind = ""
	return nil
}

// releaseMedia cancels any in-flight recording and removes every spooled
// clip. An evicted session would otherwise orphan its files on disk.
func (s *Session) releaseMedia() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Cancel(); err != nil {
			s.logger.Warn("could not cancel recording on eviction", errors.SlogError(err))
		}
		s.recorder = nil
		s.recorderKind = ""
	}
	for _, draft := range s.media {
		for _, clip := range []*capture.Clip{draft.Audio, draft.Video} {
			if clip == nil {
				continue
			}
			if err := clip.Remove(); err != nil {
				s.logger.Warn("could not remove recording on eviction", errors.SlogError(err))
			}
		}
	}
	clear(s.media)
}

// Media returns the recordings attached to a question.
func (s *Session) Media(questionID string) MediaDraft {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft, ok := s.media[questionID]; ok {
		return *draft
	}
	return MediaDraft{}
}
