package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWithEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.youtube.com/watch?v=abc", r.URL.Query().Get("url"))
		w.Write([]byte(`{"title":"Song","author_name":"Band","thumbnail_url":"thumb"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURLs(srv.URL, srv.URL+"/page/"))
	data, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, &VideoData{Title: "Song", AuthorName: "Band", ThumbnailURL: "thumb"}, data)
}

func TestGetFallsBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/page/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Private Song - YouTube</title></head>` +
			`<body><span itemprop="author"><link itemprop="name" content="Band"></span></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(WithBaseURLs(srv.URL+"/oembed", srv.URL+"/page/"))
	data, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Private Song", data.Title)
	assert.Equal(t, "Band", data.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/abc/hqdefault.jpg", data.ThumbnailURL)
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(WithBaseURLs(srv.URL, srv.URL)).Get(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
