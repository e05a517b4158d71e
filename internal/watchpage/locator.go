// Package watchpage locates the versioned player script asset for a media id
// and scrapes auxiliary metadata from the watch page body.
package watchpage

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/famomatic/ytcore/errs"
	"github.com/famomatic/ytcore/internal/transport"
)

const defaultBaseURL = "https://www.youtube.com"

var (
	playerURLPattern = regexp.MustCompile(`(/s/player/[A-Za-z0-9_-]+/[A-Za-z0-9._/-]*/base\.js)`)
	jsURLCfgPattern  = regexp.MustCompile(`(?i)["']jsUrl["']\s*:\s*["']([^"']+/base\.js)["']`)

	relatedVideoPattern = regexp.MustCompile(`"compactVideoRenderer":\{"videoId":"([A-Za-z0-9_-]{11})"`)
	simpleTextPattern   = regexp.MustCompile(`"simpleText":"((?:[^"\\]|\\.)*)"`)
)

// RelatedVideo is one watch-page recommendation.
type RelatedVideo struct {
	ID    string
	Title string
}

// Locator fetches watch pages and extracts the player script URL.
type Locator struct {
	Transport *transport.Client
	BaseURL   string
	Headers   http.Header
	Locale    string
}

// Page is one fetched watch page.
type Page struct {
	Body []byte
}

// Fetch retrieves the watch page for videoID.
func (l *Locator) Fetch(ctx context.Context, videoID string) (*Page, error) {
	base := l.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	watchURL := strings.TrimRight(base, "/") + "/watch?v=" + url.QueryEscape(videoID)

	headers := make(http.Header)
	for k, values := range l.Headers {
		for _, v := range values {
			headers.Add(k, v)
		}
	}
	if headers.Get("Accept-Language") == "" {
		lang := l.Locale
		if lang == "" {
			lang = "en"
		}
		headers.Set("Accept-Language", lang+";q=0.9")
	}

	body, err := l.Transport.Request(ctx, watchURL, transport.Options{Headers: headers})
	if err != nil {
		return nil, err
	}
	return &Page{Body: body.Bytes}, nil
}

// PlayerURL extracts the versioned player script path from the page body.
// Absence is fatal for the acquisition: no format is resolvable without it.
func (p *Page) PlayerURL() (string, error) {
	for _, re := range []*regexp.Regexp{jsURLCfgPattern, playerURLPattern} {
		m := re.FindSubmatch(p.Body)
		if len(m) < 2 {
			continue
		}
		candidate := strings.ReplaceAll(string(m[1]), `\/`, "/")
		if candidate == "" {
			continue
		}
		if strings.HasPrefix(candidate, "//") {
			return "https:" + candidate, nil
		}
		return candidate, nil
	}
	return "", &errs.ExtractionError{What: "player script url not found in watch page"}
}

// RelatedVideos scrapes recommendation entries from the page body. Best
// effort: a page layout without compact renderers yields an empty list.
func (p *Page) RelatedVideos(limit int) []RelatedVideo {
	matches := relatedVideoPattern.FindAllSubmatchIndex(p.Body, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]RelatedVideo, 0, len(matches))
	for _, m := range matches {
		if limit > 0 && len(out) >= limit {
			break
		}
		id := string(p.Body[m[2]:m[3]])
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rv := RelatedVideo{ID: id}
		// The renderer's title lives shortly after the videoId key.
		window := p.Body[m[1]:]
		if len(window) > 2048 {
			window = window[:2048]
		}
		if tm := simpleTextPattern.FindSubmatch(window); len(tm) > 1 {
			rv.Title = unescapeJSON(string(tm[1]))
		}
		out = append(out, rv)
	}
	return out
}

func unescapeJSON(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\/`, `/`, `&`, "&", "&amp;", "&")
	return r.Replace(s)
}
