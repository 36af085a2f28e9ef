package assist

import (
	"regexp"
	"strings"
)

// Model output occasionally carries markdown despite the plain-text prompt
// instructions; mobile clients render raw text, so structural markers are
// stripped or normalized before display.
var (
	reHeading  = regexp.MustCompile(`#{1,6}\s*`)
	reBold     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reEmphasis = regexp.MustCompile(`\*(.*?)\*`)
	reNumbered = regexp.MustCompile(`(?m)^(\d+\.)\s*`)
	reBullet   = regexp.MustCompile(`(?m)^[-*•]\s+`)
	reBlanks   = regexp.MustCompile(`\n{3,}`)
)

// FormatReply strips heading and emphasis markers, normalizes bullet and
// numbered-list prefixes, and collapses runs of blank lines.
func FormatReply(text string) string {
	text = reHeading.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reEmphasis.ReplaceAllString(text, "$1")
	text = reNumbered.ReplaceAllString(text, "$1 ")
	text = reBullet.ReplaceAllString(text, "• ")
	text = reBlanks.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
