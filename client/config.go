package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/internal/innertube"
)

// basePersonas are always tried. Caller additions extend, never replace,
// this set.
var basePersonas = []innertube.Persona{
	innertube.PersonaWebCreator,
	innertube.PersonaTVEmbedded,
	innertube.PersonaIOS,
	innertube.PersonaAndroid,
}

// Config holds configuration for the client.
type Config struct {
	// Personas are additional client identities to try beyond the base set
	// (web_creator, tv_embedded, ios, android). Unknown names are dropped
	// with a warning; duplicates are removed.
	Personas []string

	// Locale is the BCP-47 language tag sent with every request.
	// Defaults to "en".
	Locale string

	// PoToken is a pre-generated proof-of-origin token. It should be
	// paired with the VisitorData it was minted for.
	PoToken string

	// VisitorData is the session identity value tied to the PoToken.
	VisitorData string

	// Credential supplies an OAuth-style bearer token for personas that
	// accept authentication. May be nil.
	Credential Credential

	// PoTokenGenerator mints a proof-of-origin token on demand when
	// PoToken is empty. Generation failures are logged and ignored.
	PoTokenGenerator PoTokenGenerator

	// BlobCache persists player script bodies across runs. May be nil.
	BlobCache BlobCache

	// HTTPClient is the client used for making requests.
	// If nil, a default client is built (honoring IPv6Block).
	HTTPClient *http.Client

	// Headers are applied to every outbound request; per-request headers
	// override them.
	Headers http.Header

	// Rewrite may replace an outbound URL and mutate its headers before
	// send. Applied once per logical request, not to redirect hops.
	Rewrite func(url string, headers http.Header) string

	// ProxyURL routes requests through a tunnel that receives the target
	// as a query parameter: {proxy}/?url={escaped target}.
	ProxyURL string

	// IPv6Block is a CIDR block to bind outbound connections from, e.g.
	// "2001:db8::/64". A random address in the block is picked per client.
	// Ignored when HTTPClient is provided.
	IPv6Block string

	// RequestTimeout bounds each top-level call. Defaults to 30s; a
	// negative value disables the bound.
	RequestTimeout time.Duration

	// Logger receives warnings and debug output. If nil, logging is
	// disabled.
	Logger *zerolog.Logger
}

func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}

func (c Config) locale() string {
	if c.Locale == "" {
		return "en"
	}
	return c.Locale
}

// resolvePersonas builds the dispatch order: the base set first, then caller
// additions, deduplicated. Unknown names are dropped so one typo cannot
// disable the whole acquisition.
func resolvePersonas(additions []string, logger zerolog.Logger) []innertube.Persona {
	out := make([]innertube.Persona, 0, len(basePersonas)+len(additions))
	seen := make(map[innertube.Persona]struct{}, len(basePersonas)+len(additions))
	add := func(p innertube.Persona) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range basePersonas {
		add(p)
	}
	for _, name := range additions {
		if !innertube.Known(name) {
			logger.Warn().Str("persona", name).Msg("unknown persona dropped")
			continue
		}
		add(innertube.Persona(name))
	}
	return out
}
