package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type Client struct {
	httpClient *http.Client
	oembedURL  string
	pageURL    string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURLs overrides the oEmbed endpoint and the watch page prefix.
func WithBaseURLs(oembedURL, pageURL string) Option {
	return func(cl *Client) {
		cl.oembedURL = oembedURL
		cl.pageURL = pageURL
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		oembedURL:  "https://www.youtube.com/oembed",
		pageURL:    "https://youtu.be/",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches metadata for videoID, falling back to scraping the watch page when
// the video cannot be embedded.
func (c *Client) Get(ctx context.Context, videoID string) (*VideoData, error) {
	videoData, err := c.getWithEmbed(ctx, videoID)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}
