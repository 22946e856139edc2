package session_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/beforeigo/beforeigo/internal/capture"
	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/beforeigo/beforeigo/internal/repositories"
	"github.com/beforeigo/beforeigo/internal/session"
	"github.com/beforeigo/beforeigo/internal/sqlite"
	"github.com/beforeigo/beforeigo/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// Four questions across two chapters keeps every progress step on a
// milestone boundary (25, 50, 75, 100).
const testCatalogJSON = `{
  "roles": [
    {
      "id": "mom",
      "categories": [
        {
          "name": "The Early Years",
          "quote": "We do not remember days, we remember moments.",
          "questions": [
            {"question": "Where were you born?"},
            {"question": "What is your earliest memory?"}
          ]
        },
        {
          "name": "Wisdom",
          "quote": "In the end, we only regret the chances we didn't take.",
          "questions": [
            {"question": "What advice would you give your younger self?"},
            {"question": "What do you most want your family to know?"}
          ]
        }
      ]
    }
  ]
}`

var testUserID = []byte{1, 2, 3, 4, 5, 6, 7, 8}

type testEnv struct {
	manager   *session.Manager
	stories   *repositories.StoryRepository
	responses *repositories.ResponseRepository
	questions []models.Question
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})

	_, err = dbs.ReadWrite.Exec(`INSERT INTO users (id, display_name) VALUES (?, ?)`, testUserID, "Test User")
	require.NoError(t, err)

	c, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)
	questions := c.ForRole(models.RoleMom)

	stories := repositories.NewStoryRepository(dbs, logger)
	responses := repositories.NewResponseRepository(dbs, logger)
	return &testEnv{
		manager:   session.NewManager(stories, responses, t.TempDir(), logger),
		stories:   stories,
		responses: responses,
		questions: questions,
	}
}

func (env *testEnv) newStory(t *testing.T, plan models.Plan) *models.Story {
	t.Helper()

	ctx := context.Background()
	story, err := env.stories.Create(ctx, testUserID, models.RoleMom, "", len(env.questions))
	require.NoError(t, err)
	if plan != models.PlanStoryteller {
		require.NoError(t, env.stories.UpdatePlan(ctx, story.ID, plan))
		story, err = env.stories.GetByID(ctx, story.ID)
		require.NoError(t, err)
	}
	return story
}

func TestLoad_opensFirstUnansweredQuestion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)

	// Answer the first two questions ahead of time.
	for _, questionID := range []string{"q1", "q2"} {
		require.NoError(t, env.responses.Upsert(ctx, &models.Response{
			StoryID:    story.ID,
			QuestionID: questionID,
			Answer:     "an answer",
			Completed:  true,
		}))
	}

	s := env.manager.Load(ctx, testUserID, story, env.questions)
	require.Equal(t, "q3", s.Current().ID)
	require.Equal(t, 2, s.CompletedCount())
	require.Equal(t, 50, s.Progress())
}

func TestLoad_opensLastQuestionWhenAllAnswered(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)

	for _, q := range env.questions {
		require.NoError(t, env.responses.Upsert(ctx, &models.Response{
			StoryID:    story.ID,
			QuestionID: q.ID,
			Answer:     "an answer",
			Completed:  true,
		}))
	}

	s := env.manager.Load(ctx, testUserID, story, env.questions)
	require.Equal(t, "q4", s.Current().ID)
}

func TestLoad_surviveRestoreFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	story := env.newStory(t, models.PlanStoryteller)

	// An unreadable response store still opens the session, on the first
	// question with nothing restored.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	s := env.manager.Load(cancelled, testUserID, story, env.questions)
	require.Equal(t, "q1", s.Current().ID)
	require.Zero(t, s.CompletedCount())
}

func TestNavigation_parksAndRestoresDrafts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(context.Background(), testUserID, story, env.questions)

	s.SetAnswer("a draft in progress")
	s.AttachImage("https://media.example.com/one.jpg")

	require.Equal(t, "q2", s.Next().ID)
	require.Empty(t, s.Draft().Answer)

	require.Equal(t, "q1", s.Previous().ID)
	require.Equal(t, "a draft in progress", s.Draft().Answer)
	require.Equal(t, []string{"https://media.example.com/one.jpg"}, s.Draft().ImageURLs)

	// Jumping by identifier works the same way.
	require.Equal(t, "q4", s.GoToQuestion("q4").ID)
	require.Equal(t, "q4", s.GoToQuestion("nonexistent").ID, "unknown ids stay put")

	// Stepping past either end stays put.
	require.Equal(t, "q1", s.GoToQuestion("q1").ID)
	require.Equal(t, "q1", s.Previous().ID)
}

func TestSave_persistsAndAdvances(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	s.SetAnswer("I was born in a small town by the sea.")
	result := s.Save(ctx)

	require.Equal(t, session.Saved, result.Status)
	require.NoError(t, result.Err)
	require.True(t, result.Completed)
	require.Equal(t, 1, result.CompletedCount)
	require.Equal(t, 25, result.Progress)
	require.Equal(t, 1, result.AdvancedTo)
	require.Equal(t, "q2", s.Current().ID)

	saved, err := env.responses.Get(ctx, story.ID, "q1")
	require.NoError(t, err)
	require.Equal(t, "I was born in a small town by the sea.", saved.Answer)
	require.True(t, saved.Completed)

	updated, err := env.stories.GetByID(ctx, story.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.AnsweredQuestions)
	require.Equal(t, 25, updated.Progress)
}

func TestSave_whitespaceAnswerDoesNotComplete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	s.SetAnswer("   \n\t  ")
	result := s.Save(ctx)

	require.Equal(t, session.Saved, result.Status)
	require.False(t, result.Completed)
	require.Zero(t, result.CompletedCount)
	require.Nil(t, result.Milestone)
}

func TestSave_milestonesFireOncePerSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	s.SetAnswer("first answer")
	result := s.Save(ctx)
	require.NotNil(t, result.Milestone)
	require.Equal(t, 25, result.Milestone.Percent)
	require.Equal(t, "You're doing great! Keep preserving these precious memories.", result.Milestone.Message)

	// Clearing the answer drops progress back below the threshold.
	s.GoToQuestion("q1")
	s.SetAnswer("")
	result = s.Save(ctx)
	require.Zero(t, result.Progress)
	require.Nil(t, result.Milestone)

	// Reaching the threshold again does not repeat the celebration.
	s.GoToQuestion("q1")
	s.SetAnswer("first answer, again")
	result = s.Save(ctx)
	require.Equal(t, 25, result.Progress)
	require.Nil(t, result.Milestone)
}

func TestSave_chapterTransition(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	s.SetAnswer("answer one")
	result := s.Save(ctx)
	require.Nil(t, result.ChapterTransition, "no transition within a chapter")

	s.SetAnswer("answer two")
	result = s.Save(ctx)
	require.NotNil(t, result.ChapterTransition)
	require.Equal(t, "Wisdom", result.ChapterTransition.Name)
	require.Equal(t, "In the end, we only regret the chances we didn't take.", result.ChapterTransition.Quote)
	require.Equal(t, 2, result.ChapterTransition.Number)

	// The session holds the saved question until the storyteller steps
	// into the new chapter.
	require.Equal(t, "q2", s.Current().ID)
	require.Equal(t, 1, result.AdvancedTo)
	require.Equal(t, result.ChapterTransition, s.PendingTransition())

	require.Equal(t, "q3", s.ContinueChapter().ID)
	require.Nil(t, s.PendingTransition())
	require.Equal(t, "q3", s.ContinueChapter().ID, "continuing again stays put")
}

func TestSave_navigationClearsPendingTransition(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	s.SetAnswer("answer one")
	s.Save(ctx)
	s.SetAnswer("answer two")
	result := s.Save(ctx)
	require.NotNil(t, result.ChapterTransition)

	// Jumping from the transition screen to another question dismisses it.
	require.Equal(t, "q4", s.GoToQuestion("q4").ID)
	require.Nil(t, s.PendingTransition())
	require.Equal(t, "q4", s.ContinueChapter().ID)
}

func TestSave_completesStoryExactlyOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	answers := []string{"one", "two", "three", "four"}
	var result session.SaveResult
	for i, answer := range answers {
		s.SetAnswer(answer)
		result = s.Save(ctx)
		require.Equal(t, session.Saved, result.Status)
		if i < len(answers)-1 {
			require.False(t, result.StoryCompleted)
		}
		if result.ChapterTransition != nil {
			s.ContinueChapter()
		}
	}

	require.True(t, result.StoryCompleted)
	require.Equal(t, 100, result.Progress)
	require.Equal(t, 90, result.Milestone.Percent, "the last unshown milestone fires with the finish")

	completed, err := env.stories.GetByID(ctx, story.ID)
	require.NoError(t, err)
	require.Equal(t, models.StoryComplete, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// Editing an answer afterwards must not complete the story again.
	s.GoToQuestion("q2")
	s.SetAnswer("two, revised")
	result = s.Save(ctx)
	require.Equal(t, session.Saved, result.Status)
	require.False(t, result.StoryCompleted)
}

func TestSave_retriableFailureKeepsDraft(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(context.Background(), testUserID, story, env.questions)

	s.SetAnswer("an answer worth retrying")

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	result := s.Save(expired)

	require.Equal(t, session.RetriableFailure, result.Status)
	require.Error(t, result.Err)
	require.Equal(t, "q1", s.Current().ID, "a failed save does not advance")
	require.Equal(t, "an answer worth retrying", s.Draft().Answer, "the draft survives for retry")

	// The retry with the same draft succeeds.
	result = s.Save(context.Background())
	require.Equal(t, session.Saved, result.Status)
	require.True(t, result.Completed)
}

func TestRecording_requiresPremiumPlan(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	story := env.newStory(t, models.PlanStoryteller)
	s := env.manager.Load(context.Background(), testUserID, story, env.questions)

	_, err := s.BeginRecording(capture.KindAudio, []string{"audio/webm"})
	require.ErrorIs(t, err, session.ErrPlanForbidsMedia)
}

func TestRecording_saveAttachesClipToQuestion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	story := env.newStory(t, models.PlanKeepsake)
	s := env.manager.Load(context.Background(), testUserID, story, env.questions)

	mimeType, err := s.BeginRecording(capture.KindAudio, []string{"audio/webm"})
	require.NoError(t, err)
	require.Equal(t, "audio/webm", mimeType)

	require.NoError(t, s.AppendRecordingChunk([]byte("spoken answer")))

	preview, err := s.StopRecording()
	require.NoError(t, err)
	require.Equal(t, int64(len("spoken answer")), preview.Size)

	clip, err := s.SaveRecording()
	require.NoError(t, err)

	media := s.Media("q1")
	require.Equal(t, clip, media.Audio)
	require.Nil(t, media.Video)
	require.FileExists(t, clip.Path)
}

func TestRecording_cancelLeavesAttachedMediaUntouched(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	story := env.newStory(t, models.PlanLegacy)
	s := env.manager.Load(context.Background(), testUserID, story, env.questions)

	// Attach a first recording.
	_, err := s.BeginRecording(capture.KindAudio, []string{"audio/webm"})
	require.NoError(t, err)
	require.NoError(t, s.AppendRecordingChunk([]byte("keeper take")))
	_, err = s.StopRecording()
	require.NoError(t, err)
	keeper, err := s.SaveRecording()
	require.NoError(t, err)

	// Start another recording and abandon it mid-take.
	_, err = s.BeginRecording(capture.KindAudio, []string{"audio/webm"})
	require.NoError(t, err)
	require.NoError(t, s.AppendRecordingChunk([]byte("abandoned take")))
	require.NoError(t, s.CancelRecording())

	media := s.Media("q1")
	require.Equal(t, keeper, media.Audio, "cancelling never touches attached recordings")
	require.FileExists(t, keeper.Path)

	require.NoError(t, s.CancelRecording(), "cancel without a recorder is a no-op")
}

func TestManager_reusesAndEvictsSessions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanStoryteller)

	first := env.manager.Load(ctx, testUserID, story, env.questions)
	first.SetAnswer("in progress")

	again := env.manager.Load(ctx, testUserID, story, env.questions)
	require.Same(t, first, again)
	require.Equal(t, "in progress", again.Draft().Answer)

	env.manager.Evict(testUserID, story.ID)
	fresh := env.manager.Load(ctx, testUserID, story, env.questions)
	require.NotSame(t, first, fresh)
	require.Empty(t, fresh.Draft().Answer)
}

func TestManager_evictReleasesRecordings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	story := env.newStory(t, models.PlanKeepsake)
	s := env.manager.Load(ctx, testUserID, story, env.questions)

	// Attach a clip to the open question.
	_, err := s.BeginRecording(capture.KindAudio, []string{"audio/webm"})
	require.NoError(t, err)
	require.NoError(t, s.AppendRecordingChunk([]byte("attached take")))
	_, err = s.StopRecording()
	require.NoError(t, err)
	clip, err := s.SaveRecording()
	require.NoError(t, err)
	require.FileExists(t, clip.Path)

	// Leave another take in flight when the eviction hits.
	_, err = s.BeginRecording(capture.KindAudio, []string{"audio/webm"})
	require.NoError(t, err)
	require.NoError(t, s.AppendRecordingChunk([]byte("in-flight take")))

	env.manager.Evict(testUserID, story.ID)
	require.NoFileExists(t, clip.Path, "spooled clip must not outlive its session")
	require.NoError(t, s.CancelRecording(), "the in-flight recorder is already gone")
}
