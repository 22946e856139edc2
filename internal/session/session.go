// Package session keeps the per-storyteller answering state: which question
// is open, unsaved draft text, pending recordings, and which milestones have
// already been celebrated. Sessions live in memory; answers only become
// durable through Save.
package session

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/beforeigo/beforeigo/internal/capture"
	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/beforeigo/beforeigo/internal/repositories"
)

// Draft is the unsaved editing state of the open question.
type Draft struct {
	Answer    string
	ImageURLs []string
}

// Session is one storyteller's live walk through their question catalog.
type Session struct {
	mu sync.Mutex

	story     *models.Story
	questions []models.Question
	responses map[string]models.Response

	active            int
	pendingTransition *ChapterTransition
	draft             Draft
	drafts            map[string]Draft
	media             map[string]*MediaDraft
	expanded          map[string]bool
	shownMilestones   map[int]bool
	saving            bool

	recorder     *capture.Recorder
	recorderKind capture.Kind

	stories       *repositories.StoryRepository
	responsesRepo *repositories.ResponseRepository
	logger        *slog.Logger
	recordingDir  string
}

// Manager hands out one session per (user, story) pair.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	stories      *repositories.StoryRepository
	responses    *repositories.ResponseRepository
	logger       *slog.Logger
	recordingDir string
}

func NewManager(
	stories *repositories.StoryRepository,
	responses *repositories.ResponseRepository,
	recordingDir string,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		stories:      stories,
		responses:    responses,
		logger:       logger.With("source", "SessionManager"),
		recordingDir: recordingDir,
	}
}

func sessionKey(userID []byte, storyID string) string {
	return hex.EncodeToString(userID) + "/" + storyID
}

// Load returns the live session for the story, creating it on first use.
// A fresh session opens on the first question without a completed answer;
// when every question is answered it opens on the last one. When saved
// responses cannot be read the session still opens, on the first question
// with nothing restored, so the storyteller can keep going.
func (m *Manager) Load(ctx context.Context, userID []byte, story *models.Story, questions []models.Question) *Session {
	key := sessionKey(userID, story.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}

	s := Session{
		story:           story,
		questions:       questions,
		responses:       make(map[string]models.Response, len(questions)),
		drafts:          make(map[string]Draft),
		media:           make(map[string]*MediaDraft),
		expanded:        make(map[string]bool),
		shownMilestones: make(map[int]bool),
		stories:         m.stories,
		responsesRepo:   m.responses,
		logger:          m.logger.With("story_id", story.ID),
		recordingDir:    m.recordingDir,
	}

	saved, err := m.responses.ListForStory(ctx, story.ID)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "could not restore saved responses",
			slog.String("story_id", story.ID), errors.SlogError(err))
	} else {
		for _, response := range saved {
			s.responses[response.QuestionID] = response
		}
	}

	s.active = firstOpenQuestion(questions, s.responses)
	s.restoreDraftLocked()

	m.sessions[key] = &s
	return &s
}

// Evict drops the in-memory session, for example after a plan change, and
// releases the recordings it spooled on disk.
func (m *Manager) Evict(userID []byte, storyID string) {
	m.mu.Lock()
	key := sessionKey(userID, storyID)
	s := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if s != nil {
		s.releaseMedia()
	}
}

// firstOpenQuestion picks the first question without a completed answer, or
// the last question when everything is answered.
func firstOpenQuestion(questions []models.Question, responses map[string]models.Response) int {
	for i, q := range questions {
		if !responses[q.ID].Completed {
			return i
		}
	}
	if len(questions) == 0 {
		return 0
	}
	return len(questions) - 1
}

// Current returns the open question.
func (s *Session) Current() models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.active]
}

// ActiveIndex returns the zero-based position of the open question.
func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Draft returns the unsaved editing state of the open question.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetAnswer updates the draft answer text without persisting anything.
func (s *Session) SetAnswer(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Answer = answer
}

// AttachImage appends a photo URL to the draft.
func (s *Session) AttachImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.ImageURLs = append(s.draft.ImageURLs, url)
}

// Response returns the saved response for a question, if any.
func (s *Session) Response(questionID string) (models.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	response, ok := s.responses[questionID]
	return response, ok
}

// CompletedCount counts the questions with a completed saved answer.
func (s *Session) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedCountLocked()
}

func (s *Session) completedCountLocked() int {
	count := 0
	for _, q := range s.questions {
		if s.responses[q.ID].Completed {
			count++
		}
	}
	return count
}

// Progress returns the completion percentage rounded to the nearest whole
// percent.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progressPercent(s.completedCountLocked(), len(s.questions))
}

func progressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ToggleCategory flips a chapter open or closed in the question list view.
func (s *Session) ToggleCategory(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[name] = !s.expanded[name]
	return s.expanded[name]
}

// CategoryExpanded reports whether a chapter is open in the list view.
func (s *Session) CategoryExpanded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[name]
}

// Next moves to the following question, parking the current draft so it
// survives the round trip. Moving past the last question stays put.
func (s *Session) Next() models.Question {
	return s.goTo(func(active int) int { return active + 1 })
}

// Previous moves to the preceding question. Moving before the first question
// stays put.
func (s *Session) Previous() models.Question {
	return s.goTo(func(active int) int { return active - 1 })
}

// GoToQuestion jumps directly to a question by identifier. Unknown
// identifiers leave the session where it is.
func (s *Session) GoToQuestion(questionID string) models.Question {
	return s.goTo(func(active int) int {
		for i, q := range s.questions {
			if q.ID == questionID {
				return i
			}
		}
		return active
	})
}

func (s *Session) goTo(target func(active int) int) models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := target(s.active)
	if next < 0 || next >= len(s.questions) || next == s.active {
		return s.questions[s.active]
	}

	s.parkDraftLocked()
	s.active = next
	// Explicit navigation overrides a pending chapter transition.
	s.pendingTransition = nil
	s.restoreDraftLocked()
	return s.questions[s.active]
}

// parkDraftLocked stashes the open question's draft for later restoration.
func (s *Session) parkDraftLocked() {
	s.drafts[s.questions[s.active].ID] = s.draft
}

// restoreDraftLocked rebuilds the draft for the newly opened question,
// preferring a parked draft over the saved response.
func (s *Session) restoreDraftLocked() {
	if len(s.questions) == 0 {
		s.draft = Draft{}
		return
	}
	questionID := s.questions[s.active].ID
	if draft, ok := s.drafts[questionID]; ok {
		s.draft = draft
		return
	}
	if response, ok := s.responses[questionID]; ok {
		s.draft = Draft{Answer: response.Answer, ImageURLs: response.ImageURLs}
		return
	}
	s.draft = Draft{}
}

// ChapterTransition introduces the next chapter when the storyteller crosses
// a category boundary.
type ChapterTransition struct {
	Name   string
	Quote  string
	Number int
}

// SaveStatus classifies the outcome of a save.
type SaveStatus int

const (
	// Saved means the answer is durable.
	Saved SaveStatus = iota
	// RetriableFailure means the write failed transiently and retrying
	// with the same draft is safe.
	RetriableFailure
	// PermanentFailure means retrying will not help.
	PermanentFailure
)

// SaveResult reports everything the interface needs to react to a save:
// the new progress, a milestone to celebrate, a chapter transition to show,
// and whether this save completed the whole story.
type SaveResult struct {
	Status            SaveStatus
	Err               error
	Completed         bool
	CompletedCount    int
	Progress          int
	Milestone         *Milestone
	ChapterTransition *ChapterTransition
	StoryCompleted    bool
	AdvancedTo        int
}

// Save persists the open question's draft and advances to the next
// question. An answer counts as completed when it has any non-whitespace
// text. Only one save runs at a time; overlapping calls fail permanently
// rather than racing.
func (s *Session) Save(ctx context.Context) SaveResult {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return SaveResult{
			Status: PermanentFailure,
			Err:    errors.New("save already in progress"),
		}
	}
	s.saving = true

	question := s.questions[s.active]
	draft := s.draft
	completed := strings.TrimSpace(draft.Answer) != ""
	response := models.Response{
		StoryID:    s.story.ID,
		QuestionID: question.ID,
		Answer:     draft.Answer,
		ImageURLs:  models.ImageURLs(draft.ImageURLs),
		Completed:  completed,
	}
	s.mu.Unlock()

	err := s.responsesRepo.Upsert(ctx, &response)

	s.mu.Lock()
	defer func() {
		s.saving = false
		s.mu.Unlock()
	}()

	if err != nil {
		status := PermanentFailure
		if errors.Is(err, repositories.ErrRetriable) {
			status = RetriableFailure
		}
		s.logger.LogAttrs(ctx, slog.LevelError, "save failed",
			slog.String("question_id", question.ID), errors.SlogError(err))
		return SaveResult{Status: status, Err: err}
	}

	s.responses[question.ID] = response
	delete(s.drafts, question.ID)

	completedCount := s.completedCountLocked()
	progress := progressPercent(completedCount, len(s.questions))

	result := SaveResult{
		Status:         Saved,
		Completed:      completed,
		CompletedCount: completedCount,
		Progress:       progress,
		AdvancedTo:     s.active,
	}
	if completed {
		result.Milestone = s.nextMilestoneLocked(progress)
	}

	if err := s.stories.UpdateProgress(ctx, s.story.ID, completedCount, progress); err != nil {
		// The answer itself is durable; aggregate progress catches up
		// on the next successful save.
		s.logger.LogAttrs(ctx, slog.LevelWarn, "could not update story progress",
			errors.SlogError(err))
	} else {
		s.story.AnsweredQuestions = completedCount
		s.story.Progress = progress
	}

	if completedCount == len(s.questions) && s.story.Status != models.StoryComplete {
		transitioned, err := s.stories.MarkComplete(ctx, s.story.ID)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "could not mark story complete",
				errors.SlogError(err))
		} else {
			s.story.Status = models.StoryComplete
			result.StoryCompleted = transitioned
		}
		return result
	}

	// Advance to the next question within the chapter. At a chapter
	// boundary the session stays on the saved question and surfaces the
	// transition; ContinueChapter moves into the new chapter.
	if s.active+1 < len(s.questions) {
		next := s.questions[s.active+1]
		if next.Category != s.questions[s.active].Category {
			s.pendingTransition = &ChapterTransition{
				Name:   next.Category,
				Quote:  next.CategoryQuote,
				Number: catalog.ChapterNumber(s.questions, next.Category),
			}
			result.ChapterTransition = s.pendingTransition
		} else {
			s.active++
			s.restoreDraftLocked()
			result.AdvancedTo = s.active
		}
	}

	return result
}

// PendingTransition returns the chapter waiting for the storyteller to step
// into, or nil when none is pending.
func (s *Session) PendingTransition() *ChapterTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingTransition
}

// ContinueChapter moves into the pending chapter. Without a pending
// transition it leaves the session where it is.
func (s *Session) ContinueChapter() models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingTransition == nil {
		return s.questions[s.active]
	}
	s.pendingTransition = nil
	if s.active+1 < len(s.questions) {
		s.parkDraftLocked()
		s.active++
		s.restoreDraftLocked()
	}
	return s.questions[s.active]
}

// Story returns a snapshot of the story's aggregate state.
func (s *Session) Story() models.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.story
}

// Questions returns the session's question list in catalog order.
func (s *Session) Questions() []models.Question {
	return s.questions
}
