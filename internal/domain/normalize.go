package domain

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
)

var (
	urlRe = regexp.MustCompile(`http\S+|www\S+|https\S+`)

	// emojiMarkerRe matches ":short_name:" markers left behind by emoji-to-text conversion.
	emojiMarkerRe = regexp.MustCompile(`:[a-zA-Z_]+:`)

	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// NormalizeText returns the canonical, punctuation-free form of v.
// Non-string input yields "".
func NormalizeText(v any) string {
	s := stripNoise(asString(v))
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// LocationText returns v with URLs and emoji removed but case and punctuation intact.
func LocationText(v any) string {
	return strings.Join(strings.Fields(stripNoise(asString(v))), " ")
}

func stripNoise(s string) string {
	if s == "" {
		return ""
	}
	s = urlRe.ReplaceAllString(s, "")
	s = gomoji.RemoveEmojis(s)
	return emojiMarkerRe.ReplaceAllString(s, "")
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
