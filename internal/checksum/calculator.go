package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Calculator is an interface for computing content fingerprints.
type Calculator interface {
	// CalculateRaw computes a checksum of the raw, unmodified content.
	CalculateRaw(content []byte) string

	// CalculateNormalized computes a checksum of normalized content.
	CalculateNormalized(content []byte) string
}

// Mode selects which digest the fingerprint store compares.
type Mode string

const (
	ModeRaw        Mode = "raw"
	ModeNormalized Mode = "normalized"
)

// ParseMode validates a configured digest mode. Empty selects ModeRaw.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRaw:
		return ModeRaw, nil
	case ModeNormalized:
		return ModeNormalized, nil
	default:
		return "", fmt.Errorf("unknown fingerprint mode %q (want raw or normalized)", s)
	}
}

// Digest returns the digest function for mode.
func Digest(c Calculator, mode Mode) func(content []byte) string {
	if mode == ModeNormalized {
		return c.CalculateNormalized
	}
	return c.CalculateRaw
}

// SHA256 implements Calculator using SHA-256.
// It is a zero-size type; pass it by value.
type SHA256 struct{}

// New creates a new SHA-256 based calculator.
func New() SHA256 {
	return SHA256{}
}

// CalculateRaw computes SHA-256 of raw content.
func (c SHA256) CalculateRaw(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// CalculateNormalized computes SHA-256 of Normalize(content).
func (c SHA256) CalculateNormalized(content []byte) string {
	hash := sha256.Sum256([]byte(Normalize(string(content))))
	return hex.EncodeToString(hash[:])
}

// Normalize removes comments, lower-cases code and collapses whitespace
// runs to a single space. Literals and quoted identifiers are kept verbatim.
func Normalize(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	lastWasSpace := true
	split(content, func(kind segmentKind, text string) {
		if kind == segLiteral {
			b.WriteString(text)
			lastWasSpace = false
			return
		}
		for _, r := range text {
			if unicode.IsSpace(r) {
				if !lastWasSpace {
					b.WriteByte(' ')
					lastWasSpace = true
				}
				continue
			}
			b.WriteRune(unicode.ToLower(r))
			lastWasSpace = false
		}
	})

	return strings.TrimSpace(b.String())
}

// StripComments replaces every comment with a single space and leaves
// everything else, including line breaks, untouched.
func StripComments(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	split(content, func(_ segmentKind, text string) {
		b.WriteString(text)
	})
	return b.String()
}

type segmentKind int

const (
	segCode segmentKind = iota
	segLiteral
)

// split walks content and emits alternating runs of code and literal text.
// A comment is emitted as a code run holding one space.
func split(content string, emit func(kind segmentKind, text string)) {
	start := 0
	flush := func(end int) {
		if end > start {
			emit(segCode, content[start:end])
		}
	}

	i := 0
	for i < len(content) {
		ch := content[i]
		var next byte
		if i+1 < len(content) {
			next = content[i+1]
		}

		switch {
		case (ch == '-' && next == '-') || (ch == '/' && next == '/'):
			flush(i)
			end := strings.IndexByte(content[i:], '\n')
			if end < 0 {
				i = len(content)
			} else {
				i += end // keep the newline as code
			}
			emit(segCode, " ")
			start = i

		case ch == '/' && next == '*':
			flush(i)
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				i = len(content)
			} else {
				i += 2 + end + 2
			}
			emit(segCode, " ")
			start = i

		case ch == '\'':
			flush(i)
			end := scanQuoted(content, i, '\'', true)
			emit(segLiteral, content[i:end])
			i = end
			start = i

		case ch == '"':
			flush(i)
			end := scanQuoted(content, i, '"', false)
			emit(segLiteral, content[i:end])
			i = end
			start = i

		case ch == '$' && next == '$':
			flush(i)
			begin := i
			end := strings.Index(content[i+2:], "$$")
			if end < 0 {
				i = len(content)
			} else {
				i += 2 + end + 2
			}
			emit(segLiteral, content[begin:i])
			start = i

		default:
			i++
		}
	}
	flush(len(content))
}

// scanQuoted returns the index just past the closing quote of the quoted
// run starting at i, or len(s) when it is unterminated.
func scanQuoted(s string, i int, quote byte, backslash bool) int {
	j := i + 1
	for j < len(s) {
		switch {
		case backslash && s[j] == '\\':
			j += 2
		case s[j] == quote:
			if j+1 < len(s) && s[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		default:
			j++
		}
	}
	return len(s)
}
