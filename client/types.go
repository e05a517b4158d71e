package client

import (
	"context"
	"time"

	"github.com/famomatic/ytcore/formats"
)

// Credential is an OAuth-style token source. The client refreshes it
// eagerly, one refresh at a time, before each acquisition; a refresh failure
// means the call proceeds unauthenticated.
type Credential interface {
	// ShouldRefreshToken reports whether the token is expired or close to it.
	ShouldRefreshToken() bool
	// RefreshAccessToken renews the token in place.
	RefreshAccessToken() error
	// AuthorizationHeaderValue returns the ready-to-send header value.
	AuthorizationHeaderValue() (string, bool)
}

// PoTokenGenerator mints a proof-of-origin token together with the session
// identity it is bound to.
type PoTokenGenerator interface {
	Generate(ctx context.Context) (poToken, visitorData string, err error)
}

// BlobCache persists named byte blobs across runs. Both operations are best
// effort.
type BlobCache interface {
	Get(name string) ([]byte, bool)
	Set(name string, value []byte, ttl time.Duration) bool
}

// Format and ChooseOptions are re-exported so callers selecting formats need
// only this package.
type (
	Format        = formats.Format
	ChooseOptions = formats.ChooseOptions
)

// Thumbnail is one preview image variant.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// RelatedVideo is one watch-page recommendation.
type RelatedVideo struct {
	ID    string
	Title string
}

// VideoInfo is the aggregated metadata for one video.
type VideoInfo struct {
	ID          string
	Title       string
	Author      string
	ChannelID   string
	Description string
	Category    string
	PublishDate string
	UploadDate  string
	DurationSec int64
	ViewCount   int64
	Keywords    []string
	Thumbnails  []Thumbnail
	IsLive      bool
	IsPrivate   bool
	IsUnlisted  bool

	// MinimumMode marks a degraded result: every persona rejected and only
	// partial details could be salvaged. Formats is empty in this mode.
	MinimumMode bool

	RelatedVideos []RelatedVideo
	Formats       []formats.Format

	playerURL string
}
