package formats

import (
	"sort"
	"strings"
)

// Sort orders formats best-first: has-video, has-audio, codec preference,
// resolution, frame rate, bitrate. Ties fall back to ascending itag so the
// order is deterministic for identical input.
func Sort(fs []Format) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.HasVideo() != b.HasVideo() {
			return a.HasVideo()
		}
		if a.HasAudio() != b.HasAudio() {
			return a.HasAudio()
		}
		if ra, rb := codecRank(a), codecRank(b); ra != rb {
			return ra > rb
		}
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.FPS != b.FPS {
			return a.FPS > b.FPS
		}
		if ba, bb := effectiveBitrate(a), effectiveBitrate(b); ba != bb {
			return ba > bb
		}
		return a.Itag < b.Itag
	})
}

func effectiveBitrate(f Format) int {
	if f.AverageBitrate != 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func codecRank(f Format) int {
	if f.HasVideo() {
		switch {
		case strings.HasPrefix(f.VideoCodec, "av01"):
			return 3
		case strings.HasPrefix(f.VideoCodec, "vp9"), strings.HasPrefix(f.VideoCodec, "vp09"):
			return 2
		case strings.HasPrefix(f.VideoCodec, "avc1"), strings.HasPrefix(f.VideoCodec, "h264"):
			return 1
		}
		return 0
	}
	switch {
	case strings.HasPrefix(f.AudioCodec, "opus"):
		return 2
	case strings.HasPrefix(f.AudioCodec, "mp4a"):
		return 1
	}
	return 0
}
