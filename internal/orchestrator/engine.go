// Package orchestrator fans persona requests out against the player API and
// reconciles their outcomes into one aggregated result.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/errs"
	"github.com/famomatic/ytcore/internal/innertube"
	"github.com/famomatic/ytcore/internal/playerjs"
	"github.com/famomatic/ytcore/internal/watchpage"
)

// salvagePersona is the designated primary persona whose failure payload is
// mined when every persona rejects.
const salvagePersona = innertube.PersonaIOS

// RawFormat is one un-deciphered stream variant tagged with the persona that
// reported it.
type RawFormat struct {
	innertube.Format
	Persona innertube.Persona
}

// Result is the aggregated outcome of one acquisition. It is assembled
// exclusively by the engine and returned as an immutable snapshot.
type Result struct {
	VideoID       string
	VideoDetails  innertube.VideoDetails
	Microformat   innertube.Microformat
	RelatedVideos []watchpage.RelatedVideo
	RawFormats    []RawFormat
	PlayerURL     string
	// MinimumMode marks a degraded result: every persona rejected but
	// partial video details could be salvaged.
	MinimumMode bool
	// Responses holds the fulfilled per-persona payloads.
	Responses map[innertube.Persona]*innertube.PlayerResponse
}

// Engine coordinates the locator, the transform store, and the persona
// emulator for one acquisition at a time.
type Engine struct {
	Emulator *innertube.Emulator
	Locator  *watchpage.Locator
	Store    *playerjs.Store
	Logger   zerolog.Logger
}

type personaOutcome struct {
	persona innertube.Persona
	resp    *innertube.PlayerResponse
	err     error
}

// Acquire runs the dispatch/reconcile/assemble phases for videoID across the
// given personas, in precedence order.
func (e *Engine) Acquire(ctx context.Context, personas []innertube.Persona, rc innertube.RequestContext) (*Result, error) {
	if len(personas) == 0 {
		return nil, errs.ErrNoClientsAvailable
	}
	rc.Normalize()

	page, err := e.Locator.Fetch(ctx, rc.VideoID)
	if err != nil {
		return nil, err
	}
	playerURL, err := page.PlayerURL()
	if err != nil {
		// No format is resolvable without the script asset.
		return nil, err
	}

	// The signature timestamp comes from the same script release the
	// transforms do, so the compile (cached per release) runs before the
	// fan-out and every persona sees a consistent value.
	if tr, trErr := e.Store.Transforms(ctx, playerURL); trErr == nil {
		rc.SignatureTimestamp = tr.Timestamp
	} else {
		e.Logger.Warn().Err(trErr).Msg("player transforms unavailable; ciphered formats will be dropped")
	}

	outcomes := e.dispatch(ctx, personas, rc)
	return e.assemble(personas, page, playerURL, outcomes)
}

// dispatch issues every persona's request concurrently and waits for all of
// them: a single persona's failure must not abort the others in flight.
func (e *Engine) dispatch(ctx context.Context, personas []innertube.Persona, rc innertube.RequestContext) map[innertube.Persona]personaOutcome {
	results := make(chan personaOutcome, len(personas))
	var wg sync.WaitGroup
	for _, p := range personas {
		profile, ok := innertube.ProfileFor(p)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(profile innertube.Profile) {
			defer wg.Done()
			resp, err := e.Emulator.GetPlayerResponse(ctx, profile, rc)
			results <- personaOutcome{persona: profile.Persona, resp: resp, err: err}
		}(profile)
	}
	wg.Wait()
	close(results)

	outcomes := make(map[innertube.Persona]personaOutcome, len(personas))
	for res := range results {
		if res.err != nil {
			e.Logger.Debug().Str("persona", string(res.persona)).Err(res.err).Msg("persona rejected")
		} else {
			e.Logger.Debug().Str("persona", string(res.persona)).Msg("persona fulfilled")
		}
		outcomes[res.persona] = res
	}
	return outcomes
}

func (e *Engine) assemble(personas []innertube.Persona, page *watchpage.Page, playerURL string, outcomes map[innertube.Persona]personaOutcome) (*Result, error) {
	result := &Result{
		PlayerURL:     playerURL,
		RelatedVideos: page.RelatedVideos(20),
		Responses:     make(map[innertube.Persona]*innertube.PlayerResponse),
	}

	var fulfilled []innertube.Persona
	for _, p := range personas {
		out, ok := outcomes[p]
		if !ok || out.err != nil {
			continue
		}
		fulfilled = append(fulfilled, p)
		result.Responses[p] = out.resp
	}

	if len(fulfilled) == 0 {
		return e.minimumMode(result, outcomes)
	}

	// Fields present in several responses are drawn by persona precedence,
	// which is the order personas were configured in.
	for _, p := range fulfilled {
		resp := result.Responses[p]
		if result.VideoDetails.VideoID == "" && resp.VideoDetails.VideoID != "" {
			result.VideoDetails = resp.VideoDetails
			result.VideoID = resp.VideoDetails.VideoID
		}
		if result.Microformat.PlayerMicroformatRenderer == (innertube.PlayerMicroformatRenderer{}) {
			result.Microformat = resp.Microformat
		}
		for _, f := range resp.StreamingData.Formats {
			result.RawFormats = append(result.RawFormats, RawFormat{Format: f, Persona: p})
		}
		for _, f := range resp.StreamingData.AdaptiveFormats {
			result.RawFormats = append(result.RawFormats, RawFormat{Format: f, Persona: p})
		}
	}
	return result, nil
}

// minimumMode salvages whatever the designated primary persona's failure
// carried. A terminal salvage raises an unrecoverable error: further retries
// cannot succeed, and an empty "successful" result would mislead.
func (e *Engine) minimumMode(result *Result, outcomes map[innertube.Persona]personaOutcome) (*Result, error) {
	out, ok := outcomes[salvagePersona]
	if !ok {
		return nil, &errs.UnrecoverableError{Reason: "all personas rejected and no salvage payload is available"}
	}

	var playErr *innertube.PlayabilityError
	if !errors.As(out.err, &playErr) || playErr.Partial == nil || playErr.Partial.VideoDetails.VideoID == "" {
		return nil, &errs.UnrecoverableError{Reason: "all personas rejected without video details"}
	}
	if playErr.Terminal() {
		return nil, &errs.UnrecoverableError{Reason: playErr.Reason}
	}

	e.Logger.Warn().
		Str("reason", playErr.Reason).
		Msg("all personas rejected; returning minimum mode result")

	result.MinimumMode = true
	result.VideoDetails = playErr.Partial.VideoDetails
	result.VideoID = playErr.Partial.VideoDetails.VideoID
	result.RawFormats = nil
	return result, nil
}
