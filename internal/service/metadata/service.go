package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/pkg/ytvideodata"
)

const ServiceYoutube = "youtube"

const (
	cacheSize = 4096
	cacheTTL  = time.Hour
)

type iYoutube interface {
	Get(ctx context.Context, videoID string) (*ytvideodata.VideoData, error)
}

type service struct {
	youtube iYoutube
	cache   *expirable.LRU[string, ytvideodata.VideoData]
}

func NewService(youtube iYoutube) *service {
	return &service{
		youtube: youtube,
		cache:   expirable.NewLRU[string, ytvideodata.VideoData](cacheSize, nil, cacheTTL),
	}
}

// GetVideoInfo fills the missing metadata of v. Fields already set are kept and
// videos of unknown services are returned unchanged.
func (s service) GetVideoInfo(ctx context.Context, v domain.Video) (domain.Video, error) {
	switch v.Service {
	case ServiceYoutube:
		return s.youtubeInfo(ctx, v)
	default:
		return v, nil
	}
}

func (s service) youtubeInfo(ctx context.Context, v domain.Video) (domain.Video, error) {
	data, ok := s.cache.Get(v.ID)
	if !ok {
		fetched, err := s.youtube.Get(ctx, v.ID)
		if err != nil {
			return domain.Video{}, fmt.Errorf("failed to get youtube video %s: %w", v.ID, err)
		}
		data = *fetched
		s.cache.Add(v.ID, data)
	}

	if v.Title == nil {
		v.Title = &data.Title
	}
	if v.Description == nil {
		v.Description = &data.AuthorName
	}
	if v.Thumbnail == nil {
		v.Thumbnail = &data.ThumbnailURL
	}

	return v, nil
}
