package spell

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

type pair struct {
	from, to string
}

// exactExcludes are corrections the service keeps proposing for accepted
// terminology. They are dropped whatever the diff looks like.
var exactExcludes = map[pair]struct{}{
	{"파이썬", "파이선"}:      {},
	{"컨텍스트", "문맥"}:      {},
	{"메서드를", "멘 거들을"}:  {},
	{"메서드가", "메서 들어가"}: {},
	{"딕셔너리", "사전"}:      {},
	{"딕셔너리를", "사전을"}:    {},
}

// diffExcludes are substitutions that do not count as a difference when
// comparing a phrase with its replacement.
var diffExcludes = map[pair]struct{}{
	{".", "·"}:     {},
	{"딕셔너리", "사전"}: {},
}

// Keep decides whether a suggestion is worth reporting. The translations
// checked here are Korean, so corrections that only touch ASCII text are
// treated as noise.
func Keep(s Suggestion) bool {
	if _, ok := exactExcludes[pair{s.Input, s.Output}]; ok {
		return false
	}
	if s.Output == "" {
		return !printableASCII(s.Input)
	}
	if printableASCII(s.Input) && printableASCII(s.Output) {
		return false
	}
	return len(significantDiffs(s.Input, s.Output)) > 0
}

// significantDiffs aligns two strings rune by rune and returns the
// differing segments that survive the diff exclusions.
func significantDiffs(input, output string) []pair {
	a, b := splitRunes(input), splitRunes(output)

	var diffs []pair
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		d := pair{strings.Join(a[op.I1:op.I2], ""), strings.Join(b[op.J1:op.J2], "")}
		if _, ok := diffExcludes[d]; ok {
			continue
		}
		if d.from == "" && d.to == " " && op.I1 > 0 && allLetters(a[op.I1-1:min(op.I1+1, len(a))]) {
			continue
		}
		diffs = append(diffs, d)
	}
	return diffs
}

// printableASCII reports whether s only holds characters between U+0020
// and U+007E. The empty string qualifies.
func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func allLetters(runes []string) bool {
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes {
		for _, c := range r {
			if !unicode.IsLetter(c) {
				return false
			}
		}
	}
	return true
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
