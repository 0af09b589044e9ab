// Package pdf is the pdfcpu-based PDF text path. It parses page content
// streams directly and is used when the primary reader yields nothing.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Default caps for PDF text extraction.
const (
	DefaultPageCap    = 200        // maximum number of pages to process
	DefaultPerPageCap = 128 * 1024 // 128 KiB per-page text cap
)

// ErrNoText is returned when no page yielded any text.
var ErrNoText = errors.New("no text content found in PDF")

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	api.DisableConfigDir()
}

// normalize collapses non-printable runes to space and then normalizes
// whitespace to single spaces.
func normalize(s string) string {
	printable := strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(printable), " ")
}

// ExtractAllTextCapped extracts text from PDF bytes using pdfcpu and returns
// per-page text joined with newlines.
// - pageCap: maximum number of pages to include (use <=0 for default)
// - perPageCap: maximum bytes of text per page (use <=0 for default)
func ExtractAllTextCapped(data []byte, pageCap, perPageCap int) (out string, err error) {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	if perPageCap <= 0 {
		perPageCap = DefaultPerPageCap
	}

	// Panic protection around library call.
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount && pageNr <= pageCap; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil || len(content) == 0 {
			continue
		}

		txt := normalize(ParseStringLiterals(content, perPageCap))
		if len(txt) > perPageCap {
			txt = txt[:perPageCap]
		}
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(txt)
	}

	if b.Len() == 0 {
		return "", ErrNoText
	}
	return b.String(), nil
}

// ParseStringLiterals collects the text of balanced-parenthesis string
// literals in a content stream, honoring backslash and octal escapes. Each
// literal is followed by a space. Output is capped at maxOut bytes.
func ParseStringLiterals(s []byte, maxOut int) string {
	var out strings.Builder
	depth := 0
	in := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !in {
			if c == '(' {
				in = true
				depth = 1
			}
			continue
		}
		switch c {
		case '\\':
			if i+1 >= len(s) {
				break
			}
			i++
			switch e := s[i]; e {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '\n', '\r':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(s[i]-'0')
					}
					out.WriteByte(byte(val))
				} else {
					out.WriteByte(e)
				}
			}
		case '(':
			depth++
			out.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				in = false
				out.WriteByte(' ')
			} else {
				out.WriteByte(c)
			}
		default:
			out.WriteByte(c)
		}
		if maxOut > 0 && out.Len() >= maxOut {
			return out.String()
		}
	}
	return out.String()
}
