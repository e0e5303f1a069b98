package domain

import "errors"

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoAlreadyQueued = errors.New("video already queued")
)

type Video struct {
	Service     string   `json:"service"`
	ID          string   `json:"id"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Thumbnail   *string  `json:"thumbnail,omitempty"`
	Length      *float64 `json:"length,omitempty"`
}

// Key identifies a video across services.
func (v Video) Key() string {
	return v.Service + v.ID
}

func (v Video) Same(other Video) bool {
	return v.Service == other.Service && v.ID == other.ID
}

// HasDetails reports whether the display metadata is present. Length is not
// part of it, metadata providers seldom report one.
func (v Video) HasDetails() bool {
	return v.Title != nil && v.Description != nil && v.Thumbnail != nil
}

// KnownLength returns the video length, if any, and whether it is usable for
// end-of-video detection.
func (v Video) KnownLength() (float64, bool) {
	if v.Length == nil || *v.Length <= 0 {
		return 0, false
	}

	return *v.Length, true
}
