package watchpage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famomatic/ytcore/internal/transport"
)

const watchPageBody = `<!DOCTYPE html><html><head><script>
var ytcfg = {"PLAYER_JS_URL":"x","jsUrl":"/s/player/aabbccdd/player_ias.vflset/en_US/base.js"};
</script></head><body>
{"compactVideoRenderer":{"videoId":"dQw4w9WgXcQ","title":{"simpleText":"First related"}}}
{"compactVideoRenderer":{"videoId":"jNQXAC9IVRw","title":{"simpleText":"Second related"}}}
{"compactVideoRenderer":{"videoId":"dQw4w9WgXcQ","title":{"simpleText":"Duplicate entry"}}}
</body></html>`

func TestFetchAndPlayerURL(t *testing.T) {
	var gotPath, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte(watchPageBody))
	}))
	defer srv.Close()

	l := &Locator{Transport: &transport.Client{HTTPClient: srv.Client()}, BaseURL: srv.URL}
	page, err := l.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "/watch?v=dQw4w9WgXcQ", gotPath)
	assert.Equal(t, "en;q=0.9", gotLang)

	playerURL, err := page.PlayerURL()
	require.NoError(t, err)
	assert.Equal(t, "/s/player/aabbccdd/player_ias.vflset/en_US/base.js", playerURL)
}

func TestFetchLocaleHeader(t *testing.T) {
	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	l := &Locator{Transport: &transport.Client{HTTPClient: srv.Client()}, BaseURL: srv.URL, Locale: "de"}
	_, err := l.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "de;q=0.9", gotLang)
}

func TestPlayerURLEscapedSlashes(t *testing.T) {
	page := &Page{Body: []byte(`{"jsUrl":"\/s\/player\/ee11ff22\/player_ias.vflset\/en_US\/base.js"}`)}
	playerURL, err := page.PlayerURL()
	require.NoError(t, err)
	assert.Equal(t, "/s/player/ee11ff22/player_ias.vflset/en_US/base.js", playerURL)
}

func TestPlayerURLPathFallback(t *testing.T) {
	page := &Page{Body: []byte(`<script src="/s/player/ff00aa11/player_ias.vflset/en_US/base.js"></script>`)}
	playerURL, err := page.PlayerURL()
	require.NoError(t, err)
	assert.Equal(t, "/s/player/ff00aa11/player_ias.vflset/en_US/base.js", playerURL)
}

func TestPlayerURLMissing(t *testing.T) {
	page := &Page{Body: []byte("<html><body>nothing here</body></html>")}
	_, err := page.PlayerURL()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player script url")
}

func TestRelatedVideosDedup(t *testing.T) {
	page := &Page{Body: []byte(watchPageBody)}
	related := page.RelatedVideos(0)
	require.Len(t, related, 2)
	assert.Equal(t, "dQw4w9WgXcQ", related[0].ID)
	assert.Equal(t, "First related", related[0].Title)
	assert.Equal(t, "jNQXAC9IVRw", related[1].ID)
}

func TestRelatedVideosTitleUnescaped(t *testing.T) {
	page := &Page{Body: []byte(`{"compactVideoRenderer":{"videoId":"aaaaaaaaaaa",` +
		`"title":{"simpleText":"Drum & Bass &amp; Friends \"Live\""}}}`)}
	related := page.RelatedVideos(0)
	require.Len(t, related, 1)
	assert.Equal(t, `Drum & Bass & Friends "Live"`, related[0].Title)
}

func TestRelatedVideosLimit(t *testing.T) {
	page := &Page{Body: []byte(watchPageBody)}
	related := page.RelatedVideos(1)
	require.Len(t, related, 1)
	assert.Equal(t, "dQw4w9WgXcQ", related[0].ID)
}
