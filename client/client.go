// Package client is the public API for retrieving playable stream metadata.
package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/errs"
	"github.com/famomatic/ytcore/formats"
	"github.com/famomatic/ytcore/internal/innertube"
	"github.com/famomatic/ytcore/internal/orchestrator"
	"github.com/famomatic/ytcore/internal/playerjs"
	"github.com/famomatic/ytcore/internal/transport"
	"github.com/famomatic/ytcore/internal/ttlcache"
	"github.com/famomatic/ytcore/internal/watchpage"
)

const defaultRequestTimeout = 30 * time.Second

// Stream URLs stay valid for hours; the metadata cache window is kept well
// inside that.
const basicInfoTTL = 10 * time.Minute

// Client is the high-level metadata client. Safe for concurrent use.
type Client struct {
	config   Config
	logger   zerolog.Logger
	personas []innertube.Persona
	engine   *orchestrator.Engine
	store    *playerjs.Store

	infoCache *ttlcache.Cache[*VideoInfo]

	credMu sync.Mutex
}

// New creates a client from config.
func New(config Config) *Client {
	logger := config.logger()

	if (config.PoToken == "") != (config.VisitorData == "") {
		logger.Warn().Msg("poToken and visitorData should be provided together; continuing with the partial pair")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient(config.IPv6Block, logger)
	}

	tc := &transport.Client{
		HTTPClient:     httpClient,
		DefaultHeaders: config.Headers,
	}
	if config.Rewrite != nil {
		rewrite := config.Rewrite
		tc.Rewrite = func(url string, o *transport.Options) string {
			if o.Headers == nil {
				o.Headers = make(http.Header)
			}
			return rewrite(url, o.Headers)
		}
	}
	if config.ProxyURL != "" {
		tc.Proxy = &transport.Proxy{Base: config.ProxyURL}
	}

	store := playerjs.NewStore(tc, config.BlobCache, logger)

	return &Client{
		config:   config,
		logger:   logger,
		personas: resolvePersonas(config.Personas, logger),
		engine: &orchestrator.Engine{
			Emulator: &innertube.Emulator{Transport: tc, Logger: logger},
			Locator:  &watchpage.Locator{Transport: tc, Locale: config.locale()},
			Store:    store,
			Logger:   logger,
		},
		store:     store,
		infoCache: ttlcache.New[*VideoInfo](basicInfoTTL),
	}
}

// GetBasicInfo retrieves metadata and unresolved formats for a video id or
// URL. Results are memoized per (id, locale) for a short window; concurrent
// callers for the same video share one acquisition.
func (c *Client) GetBasicInfo(ctx context.Context, input string) (*VideoInfo, error) {
	videoID, err := ExtractVideoID(input)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	key := "getbasicinfo-" + videoID + "-" + c.config.locale()
	return c.infoCache.GetOrSet(key, func() (*VideoInfo, error) {
		return c.acquire(ctx, videoID)
	})
}

// GetFullInfo retrieves metadata with every format resolved to a playable
// URL. Formats that cannot be deciphered are dropped.
func (c *Client) GetFullInfo(ctx context.Context, input string) (*VideoInfo, error) {
	info, err := c.GetBasicInfo(ctx, input)
	if err != nil {
		return nil, err
	}

	out := *info
	out.Formats = append([]formats.Format(nil), info.Formats...)
	if len(out.Formats) == 0 {
		return &out, nil
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tr, err := c.store.Transforms(ctx, info.playerURL)
	if err != nil {
		c.logger.Warn().Err(err).Msg("player transforms unavailable; resolving without decipher units")
		tr = nil
	}
	resolved, err := formats.ResolveAll(out.Formats, tr, c.logger)
	if err != nil {
		return nil, err
	}
	out.Formats = resolved
	return &out, nil
}

// ChooseFormat selects one format per the quality and filter options.
func (c *Client) ChooseFormat(fs []formats.Format, opts formats.ChooseOptions) (formats.Format, error) {
	return formats.Choose(fs, opts)
}

// FilterFormats returns the formats matching a named filter tag.
func (c *Client) FilterFormats(fs []formats.Format, filter string) ([]formats.Format, error) {
	p, err := formats.Named(filter)
	if err != nil {
		return nil, err
	}
	return formats.Filter(fs, p), nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.config.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	if timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// acquire runs one full acquisition and assembles the public view.
func (c *Client) acquire(ctx context.Context, videoID string) (*VideoInfo, error) {
	rc := innertube.RequestContext{
		VideoID:       videoID,
		Locale:        c.config.locale(),
		PoToken:       c.config.PoToken,
		VisitorData:   c.config.VisitorData,
		Authorization: c.authorization(),
	}

	if rc.PoToken == "" && c.config.PoTokenGenerator != nil {
		token, visitorData, err := c.config.PoTokenGenerator.Generate(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("poToken generation failed; continuing without")
		} else {
			rc.PoToken = token
			if rc.VisitorData == "" {
				rc.VisitorData = visitorData
			}
		}
	}

	result, err := c.engine.Acquire(ctx, c.personas, rc)
	if err != nil {
		return nil, mapError(err)
	}
	return buildVideoInfo(result), nil
}

// authorization runs the eager serialized token refresh. A failed refresh
// degrades to an unauthenticated call instead of failing the acquisition.
func (c *Client) authorization() string {
	cred := c.config.Credential
	if cred == nil {
		return ""
	}
	c.credMu.Lock()
	defer c.credMu.Unlock()
	if cred.ShouldRefreshToken() {
		if err := cred.RefreshAccessToken(); err != nil {
			c.logger.Warn().Err(err).Msg("token refresh failed; continuing unauthenticated")
			return ""
		}
	}
	if value, ok := cred.AuthorizationHeaderValue(); ok {
		return value
	}
	return ""
}

// buildVideoInfo merges video details with the microformat fallback and tags
// every raw format with its source persona.
func buildVideoInfo(result *orchestrator.Result) *VideoInfo {
	details := result.VideoDetails
	micro := result.Microformat.PlayerMicroformatRenderer

	info := &VideoInfo{
		ID:          result.VideoID,
		Title:       firstNonEmpty(details.Title, micro.Title.SimpleText),
		Author:      firstNonEmpty(details.Author, micro.OwnerChannelName),
		ChannelID:   firstNonEmpty(details.ChannelID, micro.ExternalChannelID),
		Description: firstNonEmpty(details.ShortDescription, micro.Description.SimpleText),
		Category:    micro.Category,
		PublishDate: micro.PublishDate,
		UploadDate:  micro.UploadDate,
		DurationSec: parseInt64(firstNonEmpty(details.LengthSeconds, micro.LengthSeconds)),
		ViewCount:   parseInt64(firstNonEmpty(details.ViewCount, micro.ViewCount)),
		Keywords:    details.Keywords,
		IsLive:      details.IsLiveContent,
		IsPrivate:   details.IsPrivate,
		IsUnlisted:  micro.IsUnlisted,
		MinimumMode: result.MinimumMode,
		playerURL:   result.PlayerURL,
	}
	for _, t := range details.Thumbnail.Thumbnails {
		info.Thumbnails = append(info.Thumbnails, Thumbnail{URL: t.URL, Width: t.Width, Height: t.Height})
	}
	for _, rv := range result.RelatedVideos {
		info.RelatedVideos = append(info.RelatedVideos, RelatedVideo{ID: rv.ID, Title: rv.Title})
	}
	for _, raw := range result.RawFormats {
		info.Formats = append(info.Formats, formats.FromInnertube(raw.Format, string(raw.Persona)))
	}
	return info
}

// mapError attaches the unavailable sentinel to terminal conditions so
// callers can test with errors.Is without inspecting reasons.
func mapError(err error) error {
	var unrecoverable *errs.UnrecoverableError
	if errors.As(err, &unrecoverable) {
		return errors.Join(errs.ErrVideoUnavailable, err)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
