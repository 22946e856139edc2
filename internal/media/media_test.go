package media_test

import (
	"context"
	"io"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/beforeigo/beforeigo/internal/media"
	"github.com/beforeigo/beforeigo/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	lastInput *s3.PutObjectInput
	ttl       time.Duration
}

func (f *fakePresigner) PresignPutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.PresignOptions),
) (*v4.PresignedHTTPRequest, error) {
	f.lastInput = params
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.ttl = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://memories-media.s3.amazonaws.com/" + *params.Key + "?signature=abc",
		Method: "PUT",
	}, nil
}

func TestPresignUpload(t *testing.T) {
	t.Parallel()

	presigner := fakePresigner{}
	store := media.NewStoreWithPresigner(&presigner, "memories-media", testhelpers.NewLogger(io.Discard))

	key := media.PhotoKey("momstory", "q1", "Family Photo.JPG")
	upload, err := store.PresignUpload(context.Background(), key, "image/jpeg")
	require.NoError(t, err)

	require.Equal(t, "stories/momstory/q1/photos/family-photo.jpg", upload.Key)
	require.Contains(t, upload.URL, upload.Key)
	require.Equal(t, 15*time.Minute, upload.ExpiresIn)
	require.Equal(t, 15*time.Minute, presigner.ttl)
	require.Equal(t, "memories-media", *presigner.lastInput.Bucket)
	require.Equal(t, "image/jpeg", *presigner.lastInput.ContentType)
}

func TestPhotoKeyRoundTrip(t *testing.T) {
	t.Parallel()

	key := media.PhotoKey("momstory", "q3", "beach.png")
	storyID, questionID, ok := media.ParsePhotoKey(key)
	require.True(t, ok)
	require.Equal(t, "momstory", storyID)
	require.Equal(t, "q3", questionID)

	_, _, ok = media.ParsePhotoKey("user/abc/file.txt")
	require.False(t, ok)
}

func TestRecordingKey(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"stories/momstory/q1/audio.webm",
		media.RecordingKey("momstory", "q1", "audio", ".webm"),
	)
}
