package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/pkg/ytvideodata"
)

type fakeYoutube struct {
	data *ytvideodata.VideoData
	err  error
	ids  []string
}

func (f *fakeYoutube) Get(_ context.Context, videoID string) (*ytvideodata.VideoData, error) {
	f.ids = append(f.ids, videoID)
	return f.data, f.err
}

func TestYoutubeVideo(t *testing.T) {
	yt := &fakeYoutube{data: &ytvideodata.VideoData{Title: "title", AuthorName: "author", ThumbnailURL: "thumb"}}
	s := NewService(yt)
	custom := "mine"

	v, err := s.GetVideoInfo(context.Background(), domain.Video{Service: ServiceYoutube, ID: "abc", Title: &custom})
	require.NoError(t, err)

	assert.Equal(t, []string{"abc"}, yt.ids)
	assert.Equal(t, "mine", *v.Title)
	assert.Equal(t, "author", *v.Description)
	assert.Equal(t, "thumb", *v.Thumbnail)
	assert.Nil(t, v.Length)
}

func TestYoutubeFailure(t *testing.T) {
	s := NewService(&fakeYoutube{err: ytvideodata.ErrVideoNotFound})

	_, err := s.GetVideoInfo(context.Background(), domain.Video{Service: ServiceYoutube, ID: "gone"})
	assert.True(t, errors.Is(err, ytvideodata.ErrVideoNotFound))
}

func TestUnknownService(t *testing.T) {
	yt := &fakeYoutube{}
	s := NewService(yt)
	in := domain.Video{Service: "vimeo", ID: "1"}

	v, err := s.GetVideoInfo(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, v)
	assert.Empty(t, yt.ids)
}

func TestYoutubeLookupsAreCached(t *testing.T) {
	yt := &fakeYoutube{data: &ytvideodata.VideoData{Title: "title", AuthorName: "author", ThumbnailURL: "thumb"}}
	s := NewService(yt)

	for range 3 {
		v, err := s.GetVideoInfo(context.Background(), domain.Video{Service: ServiceYoutube, ID: "abc"})
		require.NoError(t, err)
		assert.Equal(t, "title", *v.Title)
	}

	assert.Equal(t, []string{"abc"}, yt.ids)
}

func TestFailedLookupsAreNotCached(t *testing.T) {
	yt := &fakeYoutube{err: errors.New("unavailable")}
	s := NewService(yt)

	_, err := s.GetVideoInfo(context.Background(), domain.Video{Service: ServiceYoutube, ID: "abc"})
	require.Error(t, err)

	yt.err = nil
	yt.data = &ytvideodata.VideoData{Title: "title"}
	v, err := s.GetVideoInfo(context.Background(), domain.Video{Service: ServiceYoutube, ID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "title", *v.Title)
	assert.Equal(t, []string{"abc", "abc"}, yt.ids)
}
