package extract

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns source bytes into NFC-normalized UTF-8 text. A leading BOM is
// removed and input that is not valid UTF-8 is read as EUC-KR, the encoding
// older Korean report exports use.
func Decode(data []byte) string {
	data = StripBOM(data)
	if !utf8.Valid(data) {
		if decoded, err := korean.EUCKR.NewDecoder().Bytes(data); err == nil {
			data = StripBOM(decoded)
		}
	}
	// OCR engines and macOS tooling may emit decomposed Hangul jamo.
	return norm.NFC.String(string(data))
}

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
