package parser

import "regexp"

var (
	asteriskRun = regexp.MustCompile(`\*+`)
	// An underscore run counts as emphasis only when it touches a non-word rune
	// or an edge of the text, so identifiers like open_world survive.
	underscoreRun = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_+|_+($|[^\p{L}\p{N}_])`)
)

// StripEmphasis removes markdown emphasis markers (*, **, _, __) from text.
// Applying it to already stripped text returns the text unchanged.
func StripEmphasis(text string) string {
	out := asteriskRun.ReplaceAllString(text, "")
	for {
		next := underscoreRun.ReplaceAllString(out, "${1}${2}")
		if next == out {
			return out
		}
		out = next
	}
}
