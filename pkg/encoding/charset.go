// Package encoding provides text encoding utilities for names found in mesh files.
package encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	textenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned for charset names that are not supported.
var ErrUnknownCharset = errors.New("unknown charset")

// UTF8 is the default charset name.
const UTF8 = "utf-8"

// charsets maps normalized names to decoders. A nil encoding means UTF-8.
var charsets = map[string]textenc.Encoding{
	"utf-8":        nil,
	"utf8":         nil,
	"euc-kr":       korean.EUCKR,
	"cp949":        korean.EUCKR,
	"shift-jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"gbk":          simplifiedchinese.GBK,
	"windows-1252": charmap.Windows1252,
	"latin1":       charmap.ISO8859_1,
}

// Charsets returns the supported charset names.
func Charsets() []string {
	names := make([]string, 0, len(charsets))
	for name := range charsets {
		names = append(names, name)
	}
	return names
}

// Supported reports whether the charset name is known.
func Supported(name string) bool {
	_, ok := charsets[normalize(name)]
	return ok
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return UTF8
	}
	return strings.ReplaceAll(name, "_", "-")
}

// Decoder converts bytes in one charset to UTF-8 strings.
type Decoder struct {
	name string
	enc  textenc.Encoding
}

// NewDecoder returns a decoder for the named charset.
func NewDecoder(name string) (*Decoder, error) {
	n := normalize(name)
	enc, ok := charsets[n]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}
	return &Decoder{name: n, enc: enc}, nil
}

// Name returns the normalized charset name.
func (d *Decoder) Name() string { return d.name }

// Decode converts data to a UTF-8 string.
// Returns the input as-is if conversion fails.
func (d *Decoder) Decode(data []byte) string {
	if d.enc == nil || isASCII(data) {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	result, _, err := transform.Bytes(d.enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// DecodeString converts s, holding raw charset bytes, to UTF-8.
func (d *Decoder) DecodeString(s string) string {
	return d.Decode([]byte(s))
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
