package media

import (
	"fmt"
	"strings"
)

// PhotoKey is the bucket location of a photo attached to an answer.
func PhotoKey(storyID, questionID, filename string) string {
	return fmt.Sprintf("stories/%s/%s/photos/%s", storyID, questionID, sanitizeFilename(filename))
}

// RecordingKey is the bucket location of a saved audio or video answer.
func RecordingKey(storyID, questionID, kind, extension string) string {
	return fmt.Sprintf("stories/%s/%s/%s%s", storyID, questionID, kind, extension)
}

// ParsePhotoKey extracts the story and question from a photo key.
func ParsePhotoKey(key string) (storyID, questionID string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "stories" || parts[3] != "photos" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// sanitizeFilename keeps bucket keys flat and predictable regardless of what
// the client names its files.
func sanitizeFilename(filename string) string {
	filename = strings.ToLower(filename)
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
