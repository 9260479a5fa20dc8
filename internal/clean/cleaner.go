// Package clean normalizes raw social-media text for NER: retweet markers,
// handles, emoji, and URLs are stripped and whitespace is collapsed.
package clean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/text2map/text2map-cli/internal/model"
)

var (
	leadingHandleRe = regexp.MustCompile(`^@\w+:?\s*`)
	mentionRe       = regexp.MustCompile(`@\w+`)
	urlRe           = regexp.MustCompile(`http\S+`)
	multiSpaceRe    = regexp.MustCompile(`\s+`)
)

// isEmoji reports whether a rune falls in the emoji/pictograph ranges the
// cleaner removes. Everything above the BMP goes: emoticons, symbols and
// pictographs, transport, and regional indicator flags all live there.
func isEmoji(r rune) bool {
	switch {
	case r > 0xFFFF:
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows, stars
		return true
	case r == 0x24C2: // circled M
		return true
	case r == 0xFE0F: // variation selector-16
		return true
	case r == 0x200D: // zero-width joiner
		return true
	default:
		return false
	}
}

// Text applies the cleaning rules to one string, in order: leading RT
// marker, leading handle, remaining mentions, emoji, URLs, whitespace
// normalization. The chain is applied until it reaches a fixpoint, so
// Text(Text(s)) == Text(s) for any input.
func Text(s string) string {
	for range 4 {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func pass(s string) string {
	for strings.HasPrefix(s, "RT ") {
		s = s[3:]
	}
	s = leadingHandleRe.ReplaceAllString(s, "")
	s = mentionRe.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isEmoji(r) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	s = urlRe.ReplaceAllString(s, "")

	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Records cleans a batch of records. The output is one-to-one and in input
// order; no row is ever dropped.
func Records(recs []model.Record) []model.CleanedRecord {
	out := make([]model.CleanedRecord, len(recs))
	for i, r := range recs {
		out[i] = model.CleanedRecord{Record: r, CleanText: Text(r.Text)}
	}
	return out
}
