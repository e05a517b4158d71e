package formats

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/errs"
	"github.com/famomatic/ytcore/internal/playerjs"
)

// Resolve decodes one format's URL using the compiled transforms. The input
// is not mutated; the returned format is a finished value. A format that
// cannot be decoded end to end is reported as an error so callers drop it
// instead of exposing a half-resolved URL.
func Resolve(f Format, tr *playerjs.Transforms) (Format, error) {
	target := f.URL

	if f.SignatureCipher != "" {
		if tr == nil || !tr.SignatureSupported() {
			return Format{}, &errs.ExtractionError{What: fmt.Sprintf("itag %d needs signature decoding but no decipher unit is available", f.Itag)}
		}
		parts, err := url.ParseQuery(f.SignatureCipher)
		if err != nil {
			return Format{}, fmt.Errorf("parse signatureCipher: %w", err)
		}
		encodedURL := parts.Get("url")
		if encodedURL == "" {
			return Format{}, fmt.Errorf("signatureCipher for itag %d has no url part", f.Itag)
		}
		decoded, err := tr.DecodeSignature(parts.Get("s"))
		if err != nil {
			return Format{}, err
		}
		sigParam := parts.Get("sp")
		if sigParam == "" {
			sigParam = "signature"
		}
		u, err := url.Parse(encodedURL)
		if err != nil {
			return Format{}, fmt.Errorf("parse cipher url: %w", err)
		}
		q := u.Query()
		q.Set(sigParam, decoded)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	if target == "" {
		return Format{}, fmt.Errorf("itag %d has neither url nor signatureCipher", f.Itag)
	}

	u, err := url.Parse(target)
	if err != nil {
		return Format{}, fmt.Errorf("parse format url: %w", err)
	}
	q := u.Query()
	if n := q.Get("n"); n != "" {
		if tr == nil || !tr.NSupported() {
			return Format{}, &errs.ExtractionError{What: fmt.Sprintf("itag %d needs the n-transform but no unit is available", f.Itag)}
		}
		out, err := tr.TransformN(n)
		if err != nil {
			return Format{}, err
		}
		q.Set("n", out)
		u.RawQuery = q.Encode()
	}

	f.URL = u.String()
	f.SignatureCipher = ""
	f.Resolved = true
	return f, nil
}

// ResolveAll resolves every format it can and drops the rest. If nothing
// could be resolved although ciphered entries were present, the decipher
// failure is escalated: an empty but "successful" list would mislead.
func ResolveAll(fs []Format, tr *playerjs.Transforms, logger zerolog.Logger) ([]Format, error) {
	resolved := make([]Format, 0, len(fs))
	ciphered := 0
	var lastErr error
	for _, f := range fs {
		if f.Ciphered() {
			ciphered++
		}
		out, err := Resolve(f, tr)
		if err != nil {
			lastErr = err
			logger.Debug().Int("itag", f.Itag).Str("client", f.SourceClient).Err(err).Msg("format dropped")
			continue
		}
		resolved = append(resolved, out)
	}
	if len(resolved) == 0 && ciphered > 0 {
		return nil, &errs.ExtractionError{What: "no format could be resolved", Err: lastErr}
	}
	return resolved, nil
}
