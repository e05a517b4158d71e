package formats

import (
	"strconv"
	"strings"

	"github.com/famomatic/ytcore/errs"
)

// ChooseOptions control Choose. Quality accepts "highest" (default),
// "lowest", "highestaudio", "lowestaudio", "highestvideo", "lowestvideo", an
// itag number, or a resolution label like "720p" (closest available height
// wins when the exact one is absent). Filter and FilterName narrow the
// candidate set; Filter wins when both are given.
type ChooseOptions struct {
	Quality    string
	Filter     Predicate
	FilterName string
}

// Choose selects exactly one format.
func Choose(fs []Format, opts ChooseOptions) (Format, error) {
	predicate := opts.Filter
	if predicate == nil {
		named, err := Named(opts.FilterName)
		if err != nil {
			return Format{}, err
		}
		predicate = named
	}

	candidates := Filter(fs, predicate)
	if len(candidates) == 0 {
		return Format{}, &errs.NoMatchingFormatError{Quality: opts.Quality, Filter: opts.FilterName}
	}
	Sort(candidates)

	quality := strings.ToLower(strings.TrimSpace(opts.Quality))
	switch quality {
	case "", "highest":
		return candidates[0], nil
	case "lowest":
		return candidates[len(candidates)-1], nil
	case "highestaudio", "lowestaudio":
		return chooseByBitrate(candidates, opts, true, quality == "highestaudio")
	case "highestvideo", "lowestvideo":
		return chooseByBitrate(candidates, opts, false, quality == "highestvideo")
	}

	if itag, err := strconv.Atoi(quality); err == nil {
		for _, f := range candidates {
			if f.Itag == itag {
				return f, nil
			}
		}
		return Format{}, &errs.NoMatchingFormatError{Quality: opts.Quality, Filter: opts.FilterName}
	}

	if height, ok := parseHeightLabel(quality); ok {
		return closestByHeight(candidates, height), nil
	}

	return Format{}, &errs.NoMatchingFormatError{Quality: opts.Quality, Filter: opts.FilterName}
}

// chooseByBitrate picks by stream bitrate among the formats carrying the
// hinted track. Dedicated single-track entries win over muxed ones when both
// exist: the whole-stream bitrate of a muxed format says nothing about its
// audio track.
func chooseByBitrate(candidates []Format, opts ChooseOptions, audio, highest bool) (Format, error) {
	var dedicated, carrying Predicate
	if audio {
		dedicated = func(f Format) bool { return f.HasAudio() && !f.HasVideo() }
		carrying = func(f Format) bool { return f.HasAudio() }
	} else {
		dedicated = func(f Format) bool { return f.HasVideo() && !f.HasAudio() }
		carrying = func(f Format) bool { return f.HasVideo() }
	}
	tracked := Filter(candidates, dedicated)
	if len(tracked) == 0 {
		tracked = Filter(candidates, carrying)
	}
	if len(tracked) == 0 {
		return Format{}, &errs.NoMatchingFormatError{Quality: opts.Quality, Filter: opts.FilterName}
	}
	best := tracked[0]
	for _, f := range tracked[1:] {
		better := effectiveBitrate(f) > effectiveBitrate(best)
		if !highest {
			better = effectiveBitrate(f) < effectiveBitrate(best)
		}
		if better {
			best = f
		}
	}
	return best, nil
}

func parseHeightLabel(q string) (int, bool) {
	q = strings.TrimSuffix(q, "p")
	height, err := strconv.Atoi(q)
	if err != nil || height <= 0 {
		return 0, false
	}
	return height, true
}

// closestByHeight picks the format whose height is nearest the target;
// among equal distances the sort order (best first) decides.
func closestByHeight(candidates []Format, target int) Format {
	best := candidates[0]
	bestDist := heightDistance(best, target)
	for _, f := range candidates[1:] {
		if d := heightDistance(f, target); d < bestDist {
			best = f
			bestDist = d
		}
	}
	return best
}

func heightDistance(f Format, target int) int {
	d := f.Height - target
	if d < 0 {
		d = -d
	}
	return d
}
