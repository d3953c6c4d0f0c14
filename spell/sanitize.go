package spell

import (
	"regexp"
	"strings"
)

// Role and domain names follow Unicode word characters.
var (
	reDomainRole = regexp.MustCompile(":[\\p{L}\\p{N}_]+:[\\p{L}\\p{N}_]+:`([^`]+)`")
	reRole       = regexp.MustCompile(":[\\p{L}\\p{N}_]+:`([^`]+)`")
	reLiteral    = regexp.MustCompile("``([^`]+)``")
	reReference  = regexp.MustCompile("`([^`]+)`_*")
	reStrong     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reEmphasis   = regexp.MustCompile(`\*([^*]+)\*`)
)

// Sanitize strips reStructuredText inline markup from a translated string so
// that only prose reaches the correction service. The result approximates
// the rendered text; it is not a faithful reconstruction.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "`\\", "`")
	text = strings.ReplaceAll(text, "*\\", "*")
	text = reDomainRole.ReplaceAllString(text, "${1}")
	text = reRole.ReplaceAllString(text, "${1}")
	text = reLiteral.ReplaceAllString(text, "${1}")
	text = reReference.ReplaceAllString(text, "${1}")
	text = reStrong.ReplaceAllString(text, "${1}")
	text = reEmphasis.ReplaceAllString(text, "${1}")
	return text
}
