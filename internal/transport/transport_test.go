package transport

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"

	"github.com/famomatic/ytcore/errs"
)

func TestRequestFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.Client())
	body, err := c.Request(context.Background(), srv.URL+"/start", Options{})
	require.NoError(t, err)
	require.Equal(t, "landed", string(body.Bytes))
	require.Equal(t, 1, body.Redirects)
}

func TestFetchReturnsRawRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// The underlying client must hand the 3xx back instead of following it
	// itself; Request owns the hop walk.
	c := New(srv.Client())
	resp, err := c.Fetch(context.Background(), srv.URL+"/start", Options{})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	require.Equal(t, "/final", resp.Header.Get("Location"))
}

func TestRequestRedirectLoopCapped(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	c := New(srv.Client())
	_, err := c.Request(context.Background(), srv.URL+"/loop", Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "too many redirects")
}

func TestRequestErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.Client())
	_, err := c.Request(context.Background(), srv.URL, Options{})

	var reqErr *errs.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusForbidden, reqErr.StatusCode)
	require.False(t, reqErr.Transient())
}

func TestRequestJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.Client())
	var payload struct {
		OK bool `json:"ok"`
	}
	err := c.RequestJSON(context.Background(), srv.URL, Options{}, &payload)
	require.NoError(t, err)
	require.True(t, payload.OK)
}

func TestFetchAppliesDefaultAndExplicitHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept-Language")
	}))
	defer srv.Close()

	c := New(srv.Client())
	c.DefaultHeaders = http.Header{"Accept-Language": []string{"en-US"}}

	headers := http.Header{}
	headers.Set("User-Agent", "custom-agent")
	resp, err := c.Fetch(context.Background(), srv.URL, Options{Headers: headers})
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "custom-agent", gotUA, "explicit header overrides fallback")
	require.Equal(t, "en-US", gotAccept)
}

func TestRewriteHookAppliedOnceAcrossRedirects(t *testing.T) {
	var hits []string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path == "/rewritten" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		w.Write([]byte("done"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rewrites := 0
	c := New(srv.Client())
	c.Rewrite = func(url string, o *Options) string {
		rewrites++
		return srv.URL + "/rewritten"
	}

	body, err := c.Request(context.Background(), srv.URL+"/original", Options{})
	require.NoError(t, err)
	require.Equal(t, "done", string(body.Bytes))
	require.Equal(t, 1, rewrites, "redirect hop must not re-enter the rewrite hook")
	require.Equal(t, []string{"/rewritten", "/target"}, hits)
}

func TestProxyDescriptorWrapsURL(t *testing.T) {
	var gotQuery string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("url")
		w.Write([]byte("proxied"))
	}))
	defer proxy.Close()

	c := New(proxy.Client())
	c.Proxy = &Proxy{Base: proxy.URL}

	body, err := c.Request(context.Background(), "https://example.com/watch?v=abc", Options{})
	require.NoError(t, err)
	require.Equal(t, "proxied", string(body.Bytes))
	require.Equal(t, "https://example.com/watch?v=abc", gotQuery)
}

func TestBrotliBodyDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write([]byte("brotli payload"))
		bw.Close()
	}))
	defer srv.Close()

	c := New(srv.Client())
	headers := http.Header{}
	headers.Set("Accept-Encoding", "br")
	body, err := c.Request(context.Background(), srv.URL, Options{Headers: headers})
	require.NoError(t, err)
	require.Equal(t, "brotli payload", string(body.Bytes))
}

func TestGzipBodyDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("compressed payload"))
		gz.Close()
	}))
	defer srv.Close()

	c := New(srv.Client())
	body, err := c.Request(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	require.Equal(t, "compressed payload", string(body.Bytes))
}
