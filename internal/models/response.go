package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/beforeigo/beforeigo/internal/errors"
)

// ImageURLs is the list of photo attachments on a response, stored as a JSON
// array in a single column.
type ImageURLs []string

// Value implements [driver.Valuer].
func (u ImageURLs) Value() (driver.Value, error) {
	if u == nil {
		return "[]", nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, errors.Wrap(err, "JSON encode image urls")
	}
	return string(b), nil
}

// Scan implements [sql.Scanner].
func (u *ImageURLs) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*u = nil
		return nil
	default:
		return errors.New("unsupported image url column type")
	}
	if err := json.Unmarshal(data, u); err != nil {
		return errors.Wrap(err, "JSON decode image urls")
	}
	return nil
}

// Response is the saved answer (plus attachments) for one story/question
// pair. At most one response exists per pair.
type Response struct {
	ID         int64     `db:"id"`
	StoryID    string    `db:"story_id"`
	QuestionID string    `db:"question_id"`
	Answer     string    `db:"answer"`
	ImageURLs  ImageURLs `db:"image_urls"`
	Completed  bool      `db:"is_completed"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
