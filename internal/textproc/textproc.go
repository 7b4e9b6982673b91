// Package textproc holds pure text helpers used during ingestion: contact
// field extraction and noise stripping. No I/O happens here.
package textproc

import (
	"strings"
	"unicode"
)

const allowedPunct = " \n.,!?-:;()@#$%&+="

// CleanWhitespace collapses tabs and runs of whitespace into single spaces
// and trims the result.
func CleanWhitespace(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, "\t", " ")), " ")
}

// CleanNewlines collapses runs of three or more newlines into two.
func CleanNewlines(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

// RemoveSpecialChars drops every rune outside letters, digits and a small
// punctuation whitelist.
func RemoveSpecialChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunct, r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Preprocess runs the full cleanup pipeline over raw document text.
func Preprocess(text string) string {
	text = CleanWhitespace(text)
	text = CleanNewlines(text)
	text = RemoveSpecialChars(text)
	return CleanWhitespace(text)
}

// FindEmail returns the first token that looks like an email address, or ""
// when none is found.
func FindEmail(text string) string {
	for _, word := range strings.Fields(text) {
		if strings.Contains(word, "@") && strings.Contains(word, ".") {
			return strings.Trim(word, ".,;:!?()")
		}
	}
	return ""
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// FindPhone looks for a ten-digit phone number, first across adjacent word
// pairs, then single words, then after a "Phone:" label. Returns "" when
// nothing matches.
func FindPhone(text string) string {
	flat := strings.ReplaceAll(text, "\n", " ")
	words := strings.Fields(flat)

	for i := 0; i+1 < len(words); i++ {
		if digitCount(words[i]) == 0 || digitCount(words[i+1]) == 0 {
			continue
		}
		combined := words[i] + " " + words[i+1]
		if digitCount(combined) == 10 {
			return combined
		}
	}
	for _, word := range words {
		if digitCount(word) == 10 {
			return word
		}
	}

	idx := strings.Index(strings.ToLower(flat), "phone:")
	if idx == -1 {
		return ""
	}
	after := flat[idx+len("phone:"):]
	if len(after) > 44 {
		after = after[:44]
	}

	var result strings.Builder
	for _, part := range strings.Fields(after) {
		if result.Len() > 0 {
			result.WriteByte(' ')
		}
		result.WriteString(part)
		if digitCount(result.String()) >= 10 {
			return result.String()
		}
	}
	return ""
}

// HasSection reports whether the text mentions the given section name,
// case-insensitively.
func HasSection(text, section string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(section))
}

// Stats summarizes raw document text for logging.
type Stats struct {
	Characters int
	Words      int
	Lines      int
	HasEmail   bool
	HasPhone   bool
}

// Summarize computes Stats over the provided text.
func Summarize(text string) Stats {
	return Stats{
		Characters: len(text),
		Words:      len(strings.Fields(text)),
		Lines:      strings.Count(text, "\n") + 1,
		HasEmail:   strings.Contains(text, "@"),
		HasPhone:   strings.ContainsFunc(text, unicode.IsDigit),
	}
}
