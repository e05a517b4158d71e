package client

import (
	"regexp"
	"strings"

	"github.com/famomatic/ytcore/errs"
)

var (
	videoIDPattern  = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	watchURLPattern = regexp.MustCompile(`(?:v=|/shorts/|/embed/|youtu\.be/)([0-9A-Za-z_-]{11})`)
)

// ExtractVideoID accepts either a raw id or common URL shapes (watch, short
// link, shorts, embed).
func ExtractVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", errs.ErrInvalidInput
	}
	if videoIDPattern.MatchString(s) {
		return s, nil
	}
	if m := watchURLPattern.FindStringSubmatch(s); len(m) == 2 {
		return m[1], nil
	}
	return "", errs.ErrInvalidInput
}
