package textutil

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText converts raw file bytes to a string. Valid UTF-8 (with or without
// a byte-order mark) is used as-is; anything else is read as ISO-8859-1, which
// maps every byte to a rune, so decoding never fails. The result is NFC
// normalized and trimmed.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		// ISO-8859-1 maps every byte, so the decoder cannot fail.
		decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
		text = string(decoded)
	}
	return strings.TrimSpace(norm.NFC.String(text))
}

var lineBreakReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// SingleLine replaces line breaks and tabs with spaces so a title fits on one
// chapter line.
func SingleLine(value string) string {
	return lineBreakReplacer.Replace(value)
}

var drawtextOptionEscaper = strings.NewReplacer(`\`, `\\`, "'", `\'`, ":", `\:`)

// EscapeDrawtext quotes value for use as a drawtext option inside a
// -filter_complex graph. The graph parser and the option parser each strip
// one level of escaping, so the option-level escapes are wrapped in a
// single-quoted run. Pair it with expansion=none to keep % literal.
func EscapeDrawtext(value string) string {
	escaped := drawtextOptionEscaper.Replace(SingleLine(value))
	return "'" + strings.ReplaceAll(escaped, "'", `'\''`) + "'"
}

// QuoteConcatPath renders a path as a concat demuxer `file` directive.
func QuoteConcatPath(path string) string {
	return "file '" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
