package playerjs

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/internal/transport"
	"github.com/famomatic/ytcore/internal/ttlcache"
)

// A provider release is stable for days; compiled transforms are kept for a
// long while and invalidated implicitly when the player URL changes upstream.
const compileTTL = 24 * time.Hour

const blobTTL = 24 * time.Hour

// BlobCache is the optional on-disk collaborator for the player script body.
// Both operations are best effort; the store falls back to refetching.
type BlobCache interface {
	Get(name string) ([]byte, bool)
	Set(name string, value []byte, ttl time.Duration) bool
}

var (
	playerPathPattern = regexp.MustCompile(`^/s/player/([A-Za-z0-9_-]+)/(.+)$`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Store fetches player script bodies and memoizes their compiled transforms
// per release.
type Store struct {
	Transport *transport.Client
	BaseURL   string
	Headers   http.Header
	Blobs     BlobCache
	Logger    zerolog.Logger

	cache *ttlcache.Cache[*Transforms]
}

func NewStore(tc *transport.Client, blobs BlobCache, logger zerolog.Logger) *Store {
	return &Store{
		Transport: tc,
		Blobs:     blobs,
		Logger:    logger,
		cache:     ttlcache.New[*Transforms](compileTTL),
	}
}

// Transforms returns the compiled units for playerURL, compiling at most once
// per release while cached. Concurrent callers share one compilation.
func (s *Store) Transforms(ctx context.Context, playerURL string) (*Transforms, error) {
	key := cacheKey(playerURL)
	return s.cache.GetOrSet(key, func() (*Transforms, error) {
		body, err := s.playerScript(ctx, playerURL, key)
		if err != nil {
			return nil, err
		}
		t := Compile(body)
		s.Logger.Debug().
			Str("player", key).
			Bool("signature", t.SignatureSupported()).
			Bool("ntransform", t.NSupported()).
			Int("sts", t.Timestamp).
			Msg("compiled player transforms")
		return t, nil
	})
}

func (s *Store) playerScript(ctx context.Context, playerURL, key string) ([]byte, error) {
	blobName := "playerjs-" + key
	if s.Blobs != nil {
		if body, ok := s.Blobs.Get(blobName); ok {
			return body, nil
		}
	}

	fetchURL := playerURL
	if !strings.HasPrefix(fetchURL, "http://") && !strings.HasPrefix(fetchURL, "https://") {
		base := s.BaseURL
		if base == "" {
			base = "https://www.youtube.com"
		}
		fetchURL = strings.TrimRight(base, "/") + playerURL
	}

	body, err := s.Transport.Request(ctx, fetchURL, transport.Options{Headers: s.Headers})
	if err != nil {
		return nil, err
	}
	if s.Blobs != nil && !s.Blobs.Set(blobName, body.Bytes, blobTTL) {
		s.Logger.Warn().Str("player", key).Msg("player script blob cache write failed")
	}
	return body.Bytes, nil
}

func cacheKey(playerURL string) string {
	path := playerURL
	if u, err := url.Parse(playerURL); err == nil && u.Path != "" {
		path = u.Path
	}
	m := playerPathPattern.FindStringSubmatch(path)
	if len(m) < 3 {
		return path
	}
	return m[1] + ":" + nonAlnumPattern.ReplaceAllString(m[2], "_")
}
