// Package normalize turns raw LMS text into comparable tokens.
//
// Everything here is pure and total: nil-safe, never errors, and
// Normalize(Normalize(x)) == Normalize(x) for all inputs. The search
// pipeline depends on that idempotence.
package normalize

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

// abbreviations maps common course-content shorthand to its expanded form.
// Unknown tokens pass through unchanged.
var abbreviations = map[string]string{
	"hw":     "homework",
	"proj":   "project",
	"assn":   "assignment",
	"assign": "assignment",
	"disc":   "discussion",
	"lec":    "lecture",
	"lab":    "laboratory",
	"mt":     "midterm",
	"ch":     "chapter",
	"chap":   "chapter",
	"wk":     "week",
	"pset":   "problem set",
	"ps":     "problem set",
}

// stopWords are tokens ignored when judging query-token significance.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true,
	"for": true, "and": true, "in": true, "on": true, "at": true,
	"with": true, "by": true, "my": true,
}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaceRunRe = regexp.MustCompile(` +`)
	// compactRe matches letters immediately followed by 1-3 digits ("hw4").
	compactRe = regexp.MustCompile(`^([a-z]+)([0-9]{1,3})$`)
	digitsRe   = regexp.MustCompile(`^[0-9]{1,3}$`)
)

// Normalize lowercases, replaces every non [a-z0-9 ] rune with a space,
// collapses whitespace runs and trims.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripLeadingZeros removes leading zeros from a digit string.
// An all-zero string becomes "0".
func StripLeadingZeros(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// ExpandAbbreviations normalizes the text, then expands each token through
// the abbreviation table. Compact tokens like "hw4" or "ch10" split into the
// expanded word plus the digit string with leading zeros stripped, so one
// token may become two (or three, for "pset").
func ExpandAbbreviations(s string) string {
	norm := Normalize(s)
	if norm == "" {
		return ""
	}
	out := make([]string, 0, len(norm)/3)
	for _, tok := range strings.Fields(norm) {
		if m := compactRe.FindStringSubmatch(tok); m != nil {
			word := m[1]
			if full, ok := abbreviations[word]; ok {
				word = full
			}
			out = append(out, word, StripLeadingZeros(m[2]))
			continue
		}
		if full, ok := abbreviations[tok]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// NumberVariants appends an alternate-numbering form of a normalized string.
// Every standalone 1-3 digit token is flipped between its unpadded and
// zero-padded-to-2-digits form ("4" <-> "04") in the alternate, so both
// spellings land in the alias text. Text with no numeric tokens is returned
// unchanged.
func NumberVariants(s string) string {
	if s == "" {
		return s
	}
	fields := strings.Fields(s)
	alt := make([]string, len(fields))
	hasNumber := false
	for i, tok := range fields {
		alt[i] = tok
		if !digitsRe.MatchString(tok) {
			continue
		}
		hasNumber = true
		if strings.HasPrefix(tok, "0") && len(tok) > 1 {
			alt[i] = StripLeadingZeros(tok)
		} else if len(tok) == 1 {
			alt[i] = "0" + tok
		}
	}
	if !hasNumber {
		return s
	}
	return s + " " + strings.Join(alt, " ")
}

// Tokens splits an already-normalized string into its tokens.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// SignificantTokens returns the tokens worth matching on: longer than one
// character and not a stop word.
func SignificantTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		if len(tok) <= 1 || stopWords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// IsStopWord reports whether a normalized token is in the stop-word set.
func IsStopWord(tok string) bool {
	return stopWords[tok]
}

// Stem reduces a token to its English stem ("recordings" -> "record").
// Tokens the stemmer cannot reduce pass through unchanged.
func Stem(tok string) string {
	stemmed := english.Stem(tok, false)
	if stemmed == "" {
		return tok
	}
	return stemmed
}
