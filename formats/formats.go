// Package formats normalizes, resolves, filters, sorts, and selects the
// stream variants reported by the player API.
package formats

import (
	"strconv"
	"strings"

	"github.com/famomatic/ytcore/internal/innertube"
)

// Format is one stream variant. Until resolved, exactly one of URL and
// SignatureCipher is populated; a resolved format always carries a playable
// URL.
type Format struct {
	Itag            int
	URL             string
	SignatureCipher string
	MimeType        string
	Container       string
	VideoCodec      string
	AudioCodec      string
	Bitrate         int
	AverageBitrate  int
	Width           int
	Height          int
	FPS             int
	Quality         string
	QualityLabel    string
	AudioQuality    string
	AudioSampleRate int
	AudioChannels   int
	ContentLength   int64
	DurationMs      int64
	// SourceClient names the persona that reported this variant.
	SourceClient string
	// Resolved marks a format whose URL has been fully decoded.
	Resolved bool
}

// HasVideo reports whether the variant carries a video track.
func (f Format) HasVideo() bool { return f.VideoCodec != "" }

// HasAudio reports whether the variant carries an audio track.
func (f Format) HasAudio() bool { return f.AudioCodec != "" }

// Ciphered reports whether the variant still needs signature decoding.
func (f Format) Ciphered() bool { return f.SignatureCipher != "" }

// FromInnertube normalizes one raw API format entry.
func FromInnertube(raw innertube.Format, sourceClient string) Format {
	f := Format{
		Itag:            raw.Itag,
		URL:             raw.URL,
		SignatureCipher: firstNonEmpty(raw.SignatureCipher, raw.Cipher),
		MimeType:        raw.MimeType,
		Bitrate:         raw.Bitrate,
		AverageBitrate:  raw.AverageBitrate,
		Width:           raw.Width,
		Height:          raw.Height,
		FPS:             raw.FPS,
		Quality:         raw.Quality,
		QualityLabel:    raw.QualityLabel,
		AudioQuality:    raw.AudioQuality,
		AudioChannels:   raw.AudioChannels,
		SourceClient:    sourceClient,
	}
	f.AudioSampleRate, _ = strconv.Atoi(raw.AudioSampleRate)
	f.ContentLength, _ = strconv.ParseInt(raw.ContentLength, 10, 64)
	f.DurationMs, _ = strconv.ParseInt(raw.ApproxDurationMs, 10, 64)
	f.Container, f.VideoCodec, f.AudioCodec = parseMime(raw.MimeType)
	return f
}

// parseMime splits `video/mp4; codecs="avc1.4d401f, mp4a.40.2"` into
// container and per-track codecs.
func parseMime(mime string) (container, videoCodec, audioCodec string) {
	mediaType, rest, _ := strings.Cut(mime, ";")
	kind, subtype, _ := strings.Cut(strings.TrimSpace(mediaType), "/")
	container = subtype

	var codecs []string
	if idx := strings.Index(rest, `codecs="`); idx >= 0 {
		list := rest[idx+len(`codecs="`):]
		if end := strings.IndexByte(list, '"'); end >= 0 {
			list = list[:end]
		}
		for _, c := range strings.Split(list, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codecs = append(codecs, c)
			}
		}
	}

	switch kind {
	case "audio":
		if len(codecs) > 0 {
			audioCodec = codecs[0]
		}
	case "video":
		if len(codecs) > 0 {
			videoCodec = codecs[0]
		}
		if len(codecs) > 1 {
			audioCodec = codecs[1]
		}
	}
	return container, videoCodec, audioCodec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
