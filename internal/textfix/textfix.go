// Package textfix detects and repairs text that was decoded under the wrong
// character encoding.
//
// The typical damage in this application is Spanish text whose UTF-8 bytes
// were read as a single-byte Latin code page, so "José" arrives as "JosÃ©".
// Three functions cover the whole surface:
//
//   - [HasArtifacts] reports whether a string carries a recognisable
//     mis-decode fingerprint.
//   - [RepairText] recovers a damaged string by rebuilding its original bytes
//     and decoding them again.
//   - [RepairBuffer] turns raw file bytes of unknown encoding into text.
//
// All functions are pure. They hold no state, never return errors and never
// panic; when no safe repair exists the input comes back unchanged.
package textfix

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding identifies one of the candidate encodings tried during repair.
type Encoding int

const (
	UTF8 Encoding = iota
	Windows1252
	ISO88591
	Latin1
)

// candidates is the fixed decode order. UTF-8 goes first so text that is
// already correct is never rewritten into a different valid-looking string.
var candidates = [...]Encoding{UTF8, Windows1252, ISO88591, Latin1}

var labels = [...]string{
	UTF8:        "utf-8",
	Windows1252: "windows-1252",
	ISO88591:    "iso-8859-1",
	Latin1:      "latin1",
}

// ErrUnsupported is returned by DecodeAs when the label of an encoding cannot
// be resolved to a decoder.
var ErrUnsupported = errors.New("textfix: unsupported encoding")

// String returns the IANA label of the encoding.
func (e Encoding) String() string {
	if e < 0 || int(e) >= len(labels) {
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
	return labels[e]
}

// Candidates returns the candidate encodings in the order they are tried.
func Candidates() []Encoding {
	out := candidates
	return out[:]
}

// doubleDecode matches a lead byte of a UTF-8 sequence rendered as Latin-1
// (0xC3 -> Ã, 0xC2 -> Â) followed by the rendered continuation byte.
var doubleDecode = regexp.MustCompile(`[ÃÂ].`)

// HasArtifacts reports whether s shows signs of encoding corruption: a
// replacement character (or an invalid UTF-8 byte, which reads as one) or
// the double-decode pattern of UTF-8 read as Latin-1.
//
// The pattern can match legitimate text that contains Ã or Â before another
// character. That is rare in Spanish and accepted as a known limitation.
func HasArtifacts(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsRune(s, utf8.RuneError) {
		return true
	}
	return doubleDecode.MatchString(s)
}

// RepairText attempts to recover the intended text from a string that was
// decoded one encoding too early.
//
// Clean input, input holding replacement characters and input that cannot
// be mapped back onto bytes are returned unchanged. Repair is idempotent:
// RepairText(RepairText(s)) == RepairText(s).
func RepairText(s string) string {
	if s == "" {
		return s
	}
	// A replacement character means bytes were already lost upstream.
	if strings.ContainsRune(s, utf8.RuneError) {
		return s
	}
	if !HasArtifacts(s) {
		return s
	}

	raw, ok := codePointsToBytes(s)
	if !ok {
		return s
	}

	if decoded, _, ok := firstClean(raw); ok {
		return decoded
	}
	return s
}

// RepairBuffer decodes raw bytes of unknown encoding into text. The first
// candidate whose result shows no artifacts wins; if none does, a lenient
// UTF-8 decode is returned. An empty buffer yields "".
func RepairBuffer(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if decoded, _, ok := firstClean(b); ok {
		return decoded
	}
	decoded, err := DecodeAs(UTF8, b)
	if err != nil {
		return ""
	}
	return decoded
}

// Detect returns the candidate encoding RepairBuffer would pick for b. The
// boolean is false when no candidate produced clean text and RepairBuffer
// falls back to lenient UTF-8.
func Detect(b []byte) (Encoding, bool) {
	if len(b) == 0 {
		return UTF8, true
	}
	_, enc, ok := firstClean(b)
	if !ok {
		return UTF8, false
	}
	return enc, true
}

// DecodeAs decodes b under a single candidate encoding. Invalid sequences
// are substituted, not rejected; an error only means the candidate is not
// available.
func DecodeAs(enc Encoding, b []byte) (string, error) {
	switch enc {
	case Latin1:
		return latin1(b), nil
	case UTF8:
		out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), b)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", enc, err)
		}
		return string(out), nil
	}

	// IANA lookup is case-insensitive and accepts the usual aliases.
	e, err := ianaindex.IANA.Encoding(enc.String())
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnsupported, enc, err)
	}
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, enc)
	}
	out, _, err := transform.Bytes(e.NewDecoder(), b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", enc, err)
	}
	return string(out), nil
}

// StripBOM removes a leading byte order mark, either decoded (U+FEFF) or as
// its Windows-1252 rendering "ï»¿".
func StripBOM(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.TrimPrefix(s, "ï»¿")
}

// firstClean decodes b under each candidate in order and returns the first
// result without artifacts.
func firstClean(b []byte) (string, Encoding, bool) {
	for _, enc := range candidates {
		decoded, err := DecodeAs(enc, b)
		if err != nil {
			continue
		}
		if !HasArtifacts(decoded) {
			return decoded, enc, true
		}
	}
	return "", UTF8, false
}

// codePointsToBytes maps every code point of s onto a single byte. It fails
// if any code point does not fit in a byte, since such text cannot have come
// from a single-byte misdecode.
func codePointsToBytes(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

// latin1 is the identity mapping from bytes to code points U+0000..U+00FF.
func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + len(b)/2)
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
