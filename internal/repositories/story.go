package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/beforeigo/beforeigo/internal/random"
	"github.com/beforeigo/beforeigo/internal/sqlite"
)

type StoryRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewStoryRepository(dbs *sqlite.Database, logger *slog.Logger) *StoryRepository {
	return &StoryRepository{
		dbs:    dbs,
		logger: logger.With("source", "StoryRepository"),
	}
}

const (
	storyIDLength    uint = 20
	shareTokenLength uint = 32
)

// Create starts a new story for the user. The title defaults to the role
// label when empty.
func (r *StoryRepository) Create(
	ctx context.Context,
	userID []byte,
	role models.StorytellerRole,
	title string,
	totalQuestions int,
) (*models.Story, error) {
	var (
		id         string
		shareToken string
		err        error
	)
	if id, err = random.Letters(storyIDLength); err != nil {
		return nil, errors.Wrap(err, "generate story id")
	}
	if shareToken, err = random.Letters(shareTokenLength); err != nil {
		return nil, errors.Wrap(err, "generate share token")
	}
	if title == "" {
		title = role.Label() + "'s Story"
	}

	stmt := `INSERT INTO stories (id, user_id, role, title, total_questions, share_token)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt, id, userID, role, title, totalQuestions, shareToken); err != nil {
		return nil, errors.Wrap(classifyWriteError(err), "insert story", slog.String("role", string(role)))
	}

	return r.GetByID(ctx, id)
}

func (r *StoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	stmt := `SELECT * FROM stories WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &story, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "read story", slog.String("story_id", id))
	}
	return &story, nil
}

// GetByShareToken resolves the story behind a read-only share link.
func (r *StoryRepository) GetByShareToken(ctx context.Context, token string) (*models.Story, error) {
	var story models.Story
	stmt := `SELECT * FROM stories WHERE share_token = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &story, stmt, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "read story by share token")
	}
	return &story, nil
}

func (r *StoryRepository) ListForUser(ctx context.Context, userID []byte) ([]models.Story, error) {
	var stories []models.Story
	stmt := `SELECT * FROM stories WHERE user_id = ? ORDER BY created_at`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &stories, stmt, userID); err != nil {
		return nil, errors.Wrap(err, "list stories")
	}
	return stories, nil
}

func (r *StoryRepository) UpdatePlan(ctx context.Context, id string, plan models.Plan) error {
	stmt := `UPDATE stories
SET plan = ?, updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
WHERE id = ?`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, plan, id)
	if err != nil {
		return errors.Wrap(classifyWriteError(err), "update plan", slog.String("story_id", id))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProgress records the answered question count and the rounded
// completion percentage.
func (r *StoryRepository) UpdateProgress(ctx context.Context, id string, answered int, progress int) error {
	stmt := `UPDATE stories
SET answered_questions = ?, progress = ?, updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
WHERE id = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, answered, progress, id); err != nil {
		return errors.Wrap(classifyWriteError(err), "update progress", slog.String("story_id", id))
	}
	return nil
}

// MarkComplete transitions an active story to complete and reports whether
// this call performed the transition. A story that is already complete stays
// untouched so the completion moment is recorded exactly once.
func (r *StoryRepository) MarkComplete(ctx context.Context, id string) (bool, error) {
	stmt := `UPDATE stories
SET status = ?,
    completed_at = strftime('%Y-%m-%d %H:%M:%f', 'now'),
    updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
WHERE id = ? AND status != ?`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, models.StoryComplete, id, models.StoryComplete)
	if err != nil {
		return false, errors.Wrap(classifyWriteError(err), "mark story complete", slog.String("story_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return affected == 1, nil
}
