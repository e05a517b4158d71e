package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/internal/transport"
)

// Emulator sends prepared player calls and normalizes the responses. It
// holds no per-call state; a persona is a pure function of its profile and
// the request context.
type Emulator struct {
	Transport *transport.Client
	Logger    zerolog.Logger
}

// PlayabilityError is an unplayable player response. It still carries the
// partial payload so a failed acquisition can salvage video details.
type PlayabilityError struct {
	Persona Persona
	Status  string
	Reason  string
	Partial *PlayerResponse
}

func (e *PlayabilityError) Error() string {
	return fmt.Sprintf("unplayable persona=%s status=%s reason=%s", e.Persona, e.Status, e.Reason)
}

// Terminal reports whether the condition cannot be recovered by retrying
// with other personas or credentials.
func (e *PlayabilityError) Terminal() bool {
	if e.Partial == nil || e.Partial.VideoDetails.VideoID == "" {
		return true
	}
	return strings.EqualFold(e.Reason, "This video is private")
}

// GetPlayerResponse performs one persona's player call and parses the result.
func (e *Emulator) GetPlayerResponse(ctx context.Context, profile Profile, rc RequestContext) (*PlayerResponse, error) {
	call, err := BuildPlayerRequest(profile, rc)
	if err != nil {
		return nil, err
	}

	body, err := e.Transport.Request(ctx, call.URL, transport.Options{
		Method:  http.MethodPost,
		Headers: call.Headers,
		Body:    bytes.NewReader(call.Payload),
	})
	if err != nil {
		return nil, err
	}

	var resp PlayerResponse
	if err := json.Unmarshal(body.Bytes, &resp); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}

	if !resp.PlayabilityStatus.IsOK() {
		e.Logger.Debug().
			Str("persona", string(profile.Persona)).
			Str("status", resp.PlayabilityStatus.Status).
			Str("reason", resp.PlayabilityStatus.Reason).
			Msg("unplayable player response")
		return nil, &PlayabilityError{
			Persona: profile.Persona,
			Status:  resp.PlayabilityStatus.Status,
			Reason:  resp.PlayabilityStatus.Reason,
			Partial: &resp,
		}
	}

	return &resp, nil
}
