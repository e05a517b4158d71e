package formats

import (
	"fmt"
	"strings"
)

// Predicate selects formats for Filter and Choose.
type Predicate func(Format) bool

// Named returns the predicate for a filter tag: "audioonly", "videoonly",
// "audioandvideo", or a container name such as "mp4" or "webm".
func Named(tag string) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "all":
		return func(Format) bool { return true }, nil
	case "audioonly":
		return func(f Format) bool { return f.HasAudio() && !f.HasVideo() }, nil
	case "videoonly":
		return func(f Format) bool { return f.HasVideo() && !f.HasAudio() }, nil
	case "audioandvideo", "videoandaudio":
		return func(f Format) bool { return f.HasVideo() && f.HasAudio() }, nil
	default:
		container := strings.ToLower(strings.TrimSpace(tag))
		if !isKnownContainer(container) {
			return nil, fmt.Errorf("unknown format filter %q", tag)
		}
		return func(f Format) bool { return strings.EqualFold(f.Container, container) }, nil
	}
}

func isKnownContainer(name string) bool {
	switch name {
	case "mp4", "webm", "3gpp", "flv":
		return true
	}
	return false
}

// Filter returns the formats matching p, preserving input order.
func Filter(fs []Format, p Predicate) []Format {
	out := make([]Format, 0, len(fs))
	for _, f := range fs {
		if p(f) {
			out = append(out, f)
		}
	}
	return out
}
