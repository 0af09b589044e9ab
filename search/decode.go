package search

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText turns raw file bytes into a string. BOMs select UTF-8 or
// UTF-16; BOM-less input that is not valid UTF-8 is tried as GB18030 and
// finally decoded as UTF-8 with replacement characters.
func DecodeText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		dec := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
		if out, _, err := transform.Bytes(dec, data); err == nil {
			return string(out)
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	if out, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data); err == nil && utf8.Valid(out) && mostlyText(string(out)) {
		return string(out)
	}

	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// DecodeUTF16LE decodes a BOM-less little-endian UTF-16 buffer, as stored in
// OLE document streams.
func DecodeUTF16LE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return ""
	}
	return string(out)
}

// mostlyText reports whether at least 90% of the runes are printable or
// whitespace. Replacement characters count as garbage.
func mostlyText(s string) bool {
	total, good := 0, 0
	for _, r := range s {
		total++
		if r != utf8.RuneError && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
			good++
		}
	}
	return total == 0 || good*10 >= total*9
}

// salvageRuns keeps runs of at least minRun printable runes from s, one run
// per line. It turns binary-ish streams into searchable text.
func salvageRuns(s string, minRun int) string {
	var out, run strings.Builder
	n := 0
	flush := func() {
		if n >= minRun {
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
			out.WriteString(strings.TrimSpace(run.String()))
		}
		run.Reset()
		n = 0
	}
	for _, r := range s {
		if r == '\r' || r == '\n' || r == 0x07 || r == 0x0B || r == 0x0C {
			flush()
			continue
		}
		if r != utf8.RuneError && (unicode.IsPrint(r) || r == '\t') {
			run.WriteRune(r)
			n++
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

// isOLE reports whether data starts with the compound file signature used by
// legacy Office formats.
func isOLE(data []byte) bool {
	return len(data) >= 8 && binary.LittleEndian.Uint64(data[:8]) == 0xE11AB1A1E011CFD0
}

// isZip reports whether data starts with a local file header.
func isZip(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte("PK\x03\x04"))
}
