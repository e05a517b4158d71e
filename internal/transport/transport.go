// Package transport issues HTTP requests for the acquisition pipeline. It
// supports a caller-supplied rewrite hook and proxy descriptor, follows
// redirects up to a fixed depth, and decodes compressed response bodies.
package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/famomatic/ytcore/errs"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxRedirects caps redirect-following in Request. The upstream reference
// behavior is unbounded; 20 matches the common browser limit.
const maxRedirects = 20

// RewriteFunc may replace the request URL and mutate options before send.
// Used for proxy/tunnel insertion.
type RewriteFunc func(url string, o *Options) string

// Proxy describes a tunnel that receives the target URL as a query parameter.
type Proxy struct {
	Base string
}

// Options control a single request.
type Options struct {
	Method  string
	Headers http.Header
	Body    io.Reader
}

// Client wraps an http.Client with the pipeline's request conventions.
type Client struct {
	HTTPClient *http.Client
	Rewrite    RewriteFunc
	Proxy      *Proxy
	// DefaultHeaders are applied to every request; explicit per-request
	// headers override them.
	DefaultHeaders http.Header
}

func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTPClient: httpClient}
}

// Fetch sends one request and returns the raw response. The rewrite hook and
// proxy descriptor are applied unless noAdapt is set (redirect hops pass
// noAdapt so proxy rewriting does not recurse into itself).
func (c *Client) Fetch(ctx context.Context, rawURL string, o Options) (*http.Response, error) {
	return c.fetch(ctx, rawURL, o, false)
}

func (c *Client) fetch(ctx context.Context, rawURL string, o Options, noAdapt bool) (*http.Response, error) {
	if !noAdapt {
		rawURL = c.adapt(rawURL, &o)
	}

	method := o.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, o.Body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, values := range c.DefaultHeaders {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	for k, values := range o.Headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	return c.httpClient().Do(req)
}

// Body is a decoded 2xx response.
type Body struct {
	Bytes       []byte
	ContentType string
	// Redirects is the number of 3xx hops followed before the final response.
	Redirects int
}

// IsJSON reports whether the response declared a JSON content type.
func (b *Body) IsJSON() bool {
	return strings.Contains(b.ContentType, "application/json")
}

// Request follows the response contract: 2xx bodies are decoded and
// returned, 3xx responses with a Location header are followed (up to
// maxRedirects hops), anything else becomes a RequestError carrying the
// status code.
func (c *Client) Request(ctx context.Context, rawURL string, o Options) (*Body, error) {
	rawURL = c.adapt(rawURL, &o)

	for hop := 0; hop <= maxRedirects; hop++ {
		resp, err := c.fetch(ctx, rawURL, o, true)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			data, err := readBody(resp)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			return &Body{
				Bytes:       data,
				ContentType: resp.Header.Get("Content-Type"),
				Redirects:   hop,
			}, nil

		case resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != "":
			location := resp.Header.Get("Location")
			resp.Body.Close()
			next, err := resolveLocation(rawURL, location)
			if err != nil {
				return nil, err
			}
			// Redirect targets go through proxy adaptation again, but
			// never through the caller rewrite hook.
			rawURL = c.proxied(next)
			o.Body = nil
			o.Method = http.MethodGet

		default:
			status := resp.StatusCode
			resp.Body.Close()
			return nil, &errs.RequestError{URL: rawURL, StatusCode: status}
		}
	}
	return nil, fmt.Errorf("too many redirects (>%d): %s", maxRedirects, rawURL)
}

// RequestJSON performs Request and unmarshals the body into v.
func (c *Client) RequestJSON(ctx context.Context, rawURL string, o Options, v any) error {
	body, err := c.Request(ctx, rawURL, o)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body.Bytes, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (c *Client) adapt(rawURL string, o *Options) string {
	if c.Rewrite != nil {
		rawURL = c.Rewrite(rawURL, o)
	}
	return c.proxied(rawURL)
}

func (c *Client) proxied(rawURL string) string {
	if c.Proxy == nil {
		return rawURL
	}
	parsed, err := url.Parse(c.Proxy.Base)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	if strings.Contains(rawURL, parsed.Host) {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host + "/?url=" + url.QueryEscape(rawURL)
}

// httpClient returns a copy of the configured client that hands 3xx
// responses back untouched: Request owns redirect following, including the
// hop cap and proxy re-adaptation of redirect targets.
func (c *Client) httpClient() *http.Client {
	base := c.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	cl := *base
	cl.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &cl
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse redirect base: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse redirect location: %w", err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
