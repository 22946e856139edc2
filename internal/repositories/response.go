package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/beforeigo/beforeigo/internal/sqlite"
)

type ResponseRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewResponseRepository(dbs *sqlite.Database, logger *slog.Logger) *ResponseRepository {
	return &ResponseRepository{
		dbs:    dbs,
		logger: logger.With("source", "ResponseRepository"),
	}
}

func (r *ResponseRepository) Get(ctx context.Context, storyID, questionID string) (*models.Response, error) {
	var response models.Response
	stmt := `SELECT * FROM responses WHERE story_id = ? AND question_id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &response, stmt, storyID, questionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "read response",
			slog.String("story_id", storyID), slog.String("question_id", questionID))
	}
	return &response, nil
}

func (r *ResponseRepository) ListForStory(ctx context.Context, storyID string) ([]models.Response, error) {
	var responses []models.Response
	stmt := `SELECT * FROM responses WHERE story_id = ? ORDER BY created_at`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &responses, stmt, storyID); err != nil {
		return nil, errors.Wrap(err, "list responses", slog.String("story_id", storyID))
	}
	return responses, nil
}

// Upsert stores the answer for a story/question pair, replacing any earlier
// answer for the same pair.
func (r *ResponseRepository) Upsert(ctx context.Context, response *models.Response) error {
	// Positional binds on purpose. sqlx's named-query rewriter trips over the
	// colons inside the quoted strftime format.
	stmt := `INSERT INTO responses (story_id, question_id, answer, image_urls, is_completed)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (story_id, question_id) DO UPDATE SET
    answer = excluded.answer,
    image_urls = excluded.image_urls,
    is_completed = excluded.is_completed,
    updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		response.StoryID, response.QuestionID, response.Answer, response.ImageURLs, response.Completed); err != nil {
		return errors.Wrap(classifyWriteError(err), "upsert response",
			slog.String("story_id", response.StoryID), slog.String("question_id", response.QuestionID))
	}
	return nil
}

// CompletedCount counts the questions in the story with a completed answer.
func (r *ResponseRepository) CompletedCount(ctx context.Context, storyID string) (int, error) {
	var count int
	stmt := `SELECT COUNT(*) FROM responses WHERE story_id = ? AND is_completed = TRUE`
	if err := r.dbs.ReadOnly.GetContext(ctx, &count, stmt, storyID); err != nil {
		return 0, errors.Wrap(err, "count completed responses", slog.String("story_id", storyID))
	}
	return count, nil
}
