// Package ebcdic implements the CP037 EBCDIC/Unicode translation used on
// the 5250 and 3270 wire. It exposes both direct byte/rune helpers and a
// golang.org/x/text encoding.Encoding so the codec can be composed with
// the rest of the text-transform ecosystem (e.g. chained into a
// transform.Reader over a raw socket).
package ebcdic

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// unmapped marks a codepoint with no CP037 correspondence.
const unmapped rune = -1

// decodeTable maps an EBCDIC (CP037) byte to its Unicode codepoint.
// Entries left at unmapped have no defined mainframe character and
// render as '.' per ebcdic_to_ascii's contract.
var decodeTable = buildDecodeTable()

// encodeTable maps a Unicode codepoint (0-255) to its CP037 byte.
// Built by inverting decodeTable; unmapped is 0x40 (space) per
// ascii_to_ebcdic's contract for unmapped input.
var encodeTable = buildEncodeTable()

// passthroughControls are the only C0 control codepoints this package
// renders literally; every other CP037 control position (SOH, STX,
// device controls, etc.) has a real mainframe meaning but no glyph a
// terminal screen should display, so it renders as '.' like any other
// unmapped position.
var passthroughControls = map[rune]bool{0x00: true, '\t': true, '\r': true, '\n': true}

// buildDecodeTable sources every byte's mapping from x/text's own CP037
// table rather than a hand-transcribed one, eliminating the risk of a
// silent transcription error in the punctuation/letter bands.
func buildDecodeTable() [256]rune {
	var t [256]rune
	for i := range t {
		r := charmap.CodePage037.DecodeByte(byte(i))
		if r == utf8.RuneError {
			t[i] = unmapped
			continue
		}
		if r < 0x20 && !passthroughControls[r] {
			t[i] = unmapped
			continue
		}
		t[i] = r
	}
	return t
}

func buildEncodeTable() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 0x40 // unmapped ASCII/Unicode input encodes to space
	}
	for b, r := range decodeTable {
		if r == unmapped || r < 0 || r > 255 {
			continue
		}
		t[r] = byte(b)
	}
	return t
}

// ToASCII translates a single CP037 byte to its Unicode rune.
// Unmapped bytes return '.'.
func ToASCII(b byte) rune {
	if r := decodeTable[b]; r != unmapped {
		return r
	}
	return '.'
}

// FromASCII translates a single rune to its CP037 byte.
// Unmapped input encodes to 0x40 (space).
func FromASCII(r rune) byte {
	if r < 0 || r > 255 {
		return 0x40
	}
	return encodeTable[r]
}

// Decode translates a CP037 byte slice into a string of Unicode runes.
func Decode(data []byte) string {
	out := make([]rune, len(data))
	for i, b := range data {
		out[i] = ToASCII(b)
	}
	return string(out)
}

// Encode translates a string into CP037 bytes, one byte per rune.
func Encode(s string) []byte {
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, r := range runes {
		out[i] = FromASCII(r)
	}
	return out
}

// Codec implements encoding.Encoding for CP037, allowing it to be used
// anywhere golang.org/x/text composes encodings (transform.Reader/Writer
// chains, encoding.HTMLEscapeUnsupported wrappers, etc.).
var Codec encoding.Encoding = codec{}

type codec struct{}

func (codec) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: decodeTransformer{}}
}

func (codec) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: encodeTransformer{}}
}

type decodeTransformer struct{ transform.NopResetter }

func (decodeTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r := ToASCII(src[nSrc])
		if len(dst)-nDst < utf8.UTFMax {
			return nDst, nSrc, transform.ErrShortDst
		}
		n := utf8.EncodeRune(dst[nDst:], r)
		nDst += n
		nSrc++
	}
	return nDst, nSrc, nil
}

type encodeTransformer struct{ transform.NopResetter }

func (encodeTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if size == 0 {
				break
			}
		}
		if len(dst) < nDst+1 {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = FromASCII(r)
		nDst++
		nSrc += size
	}
	return nDst, nSrc, nil
}
