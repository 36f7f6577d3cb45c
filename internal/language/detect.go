package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Detect returns the ISO 639-1 code of text, or "" when the text is too
// short or ambiguous to tell.
func Detect(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < 3 || strings.HasPrefix(text, "geo:") {
		return ""
	}
	info := whatlanggo.Detect(text)
	if info.Confidence <= 0 {
		return ""
	}
	return info.Lang.Iso6391()
}
