package search

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"docsearch/config"
	"docsearch/obs"
	pdftext "docsearch/search/pdf"
)

// Extractor defines the interface for extracting text from binary or encoded document formats
type Extractor interface {
	// ExtractText takes raw file bytes and returns extracted plain text
	ExtractText(data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(data []byte) (string, error)

// ExtractText implements Extractor.
func (f ExtractorFunc) ExtractText(data []byte) (string, error) { return f(data) }

// ExtractorRegistry holds one extractor per declared type, plus extension
// overrides for the formats grouped under TypeOther.
type ExtractorRegistry struct {
	extractors map[config.DeclaredType]Extractor
	byExt      map[string]Extractor

	MaxFileBytes int64
	Timeout      time.Duration
	Heavy        *ConcurrencyManager

	logger zerolog.Logger
}

// NewExtractorRegistry creates a new registry with built-in extractors
func NewExtractorRegistry() *ExtractorRegistry {
	reg := &ExtractorRegistry{
		extractors:   make(map[config.DeclaredType]Extractor),
		byExt:        make(map[string]Extractor),
		MaxFileBytes: config.DefaultMaxFileBytes,
		Timeout:      config.DefaultFileTimeout,
		Heavy:        NewConcurrencyManager(runtime.NumCPU()),
		logger:       obs.Logger("extract"),
	}

	// Register built-in extractors
	reg.registerBuiltIns()

	return reg
}

// registerBuiltIns registers the built-in extractors for supported formats
func (r *ExtractorRegistry) registerBuiltIns() {
	r.extractors[config.TypePDF] = &PDFExtractor{}
	r.extractors[config.TypeExcel] = &ExcelExtractor{}
	r.extractors[config.TypeDocx] = &DOCXExtractor{}
	r.extractors[config.TypeImage] = MediaExtractor{}
	r.extractors[config.TypeVideo] = MediaExtractor{}
	r.extractors[config.TypeOther] = TextExtractor{}

	// Email formats
	r.RegisterExt("eml", &EMLExtractor{})
	r.RegisterExt("mbox", &MBOXExtractor{})

	// Web formats
	r.RegisterExt("html", &HTMLExtractor{})
	r.RegisterExt("htm", &HTMLExtractor{})
}

// Register replaces the extractor for a declared type.
func (r *ExtractorRegistry) Register(t config.DeclaredType, e Extractor) {
	r.extractors[t] = e
}

// RegisterExt registers an extractor for an extension (without dot) under
// TypeOther.
func (r *ExtractorRegistry) RegisterExt(ext string, e Extractor) {
	r.byExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = e
}

// GetExtractor returns the extractor for a declared type and file extension
func (r *ExtractorRegistry) GetExtractor(t config.DeclaredType, ext string) (Extractor, bool) {
	if t == config.TypeOther {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if e, ok := r.byExt[ext]; ok {
			return e, true
		}
	}
	e, ok := r.extractors[t]
	return e, ok
}

// Extract returns the best-effort plain text of the file at path. It never
// fails: extractor errors, panics and timeouts fall back to decoding the raw
// bytes, and an unreadable file yields "".
func (r *ExtractorRegistry) Extract(path string, t config.DeclaredType) string {
	data, err := readFileCapped(path, r.MaxFileBytes)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("read failed")
		return ""
	}

	e, ok := r.GetExtractor(t, filepath.Ext(path))
	if !ok {
		return DecodeText(data)
	}

	text, err := r.run(e, t, data)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Str("type", t.String()).Msg("extraction failed, using raw text")
		return DecodeText(data)
	}
	return text
}

// run executes e with panic recovery and the registry timeout. Structured
// formats also hold a heavy slot until the extractor actually returns, so
// extractions abandoned by the timeout still count against the limit.
func (r *ExtractorRegistry) run(e Extractor, t config.DeclaredType, data []byte) (string, error) {
	var heavy *ConcurrencyManager
	if t.Previewable() {
		heavy = r.Heavy
	}

	if r.Timeout <= 0 {
		heavy.Acquire()
		defer heavy.Release()
		return guardedExtract(e, data)
	}

	var text string
	var err error
	if terr := heavy.ExecuteWithTimeout(func() { text, err = guardedExtract(e, data) }, r.Timeout); terr != nil {
		return "", terr
	}
	return text, err
}

func guardedExtract(e Extractor, data []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("extractor panic: %v", p)
		}
	}()
	return e.ExtractText(data)
}

// defaultRegistry backs the package-level Extract.
var defaultRegistry = NewExtractorRegistry()

// Extract runs the default registry.
func Extract(path string, t config.DeclaredType) string {
	return defaultRegistry.Extract(path, t)
}

// TextExtractor decodes plain text files.
type TextExtractor struct{}

// ExtractText implements the Extractor interface for plain text
func (TextExtractor) ExtractText(data []byte) (string, error) {
	return DecodeText(data), nil
}

// MediaExtractor yields no text for images and video.
type MediaExtractor struct{}

// ExtractText implements the Extractor interface for media files
func (MediaExtractor) ExtractText([]byte) (string, error) {
	return "", nil
}

// PDFExtractor extracts text from .pdf files
type PDFExtractor struct{}

// ExtractText implements the Extractor interface for PDF files
func (e *PDFExtractor) ExtractText(data []byte) (string, error) {
	if text := pdfPlainText(data); text != "" {
		return text, nil
	}
	// Content-stream fallback for files the primary reader cannot handle.
	return pdftext.ExtractAllTextCapped(data, 0, 0)
}

// pdfPlainText joins the page text of PDFPages. Malformed files return "".
func pdfPlainText(data []byte) string {
	pages, err := PDFPages(data)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(pages, "\n"))
}

// PDFPages extracts the text of each page with ledongthuc/pdf, one line per
// text row. Pages that cannot be read are returned empty.
func PDFPages(data []byte) (pages []string, err error) {
	// Guard against any panics from the PDF library.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	// Safely obtain number of pages (library may panic on malformed PDFs).
	n := 0
	func() {
		defer func() { _ = recover() }()
		n = reader.NumPage()
	}()

	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		var b strings.Builder
		func() {
			defer func() { _ = recover() }()
			page := reader.Page(i)
			if page.V.IsNull() {
				return
			}
			rows, err := page.GetTextByRow()
			if err != nil {
				return
			}
			for _, row := range rows {
				for _, word := range row.Content {
					b.WriteString(word.S)
				}
				b.WriteByte('\n')
			}
		}()
		pages = append(pages, strings.TrimRight(b.String(), "\n"))
	}
	return pages, nil
}

// EMLExtractor extracts text from .eml files (MIME messages)
type EMLExtractor struct{}

// ExtractText implements the Extractor interface for EML files
func (e *EMLExtractor) ExtractText(data []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse EML: %w", err)
	}

	var b strings.Builder
	if subject := env.GetHeader("Subject"); subject != "" {
		b.WriteString(subject)
		b.WriteByte('\n')
	}

	// Prefer plain text, fallback to HTML if plain text is empty
	text := env.Text
	if strings.TrimSpace(text) == "" && env.HTML != "" {
		text = stripHTMLTags(env.HTML)
	}
	b.WriteString(text)

	return strings.TrimSpace(b.String()), nil
}

// emailPolicy drops all markup from HTML mail bodies.
var emailPolicy = bluemonday.StrictPolicy()

// stripHTMLTags removes markup from an HTML fragment and unescapes entities
func stripHTMLTags(s string) string {
	// Keep block boundaries as line breaks before the policy drops the tags.
	for _, tag := range []string{"</p>", "<br>", "<br/>", "<br />", "</div>", "</tr>", "</li>"} {
		s = strings.ReplaceAll(s, tag, tag+"\n")
	}
	return html.UnescapeString(emailPolicy.Sanitize(s))
}

// MBOXExtractor extracts text from .mbox files (collections of MIME messages)
type MBOXExtractor struct{}

// ExtractText implements the Extractor interface for MBOX files
func (e *MBOXExtractor) ExtractText(data []byte) (string, error) {
	reader := mbox.NewReader(bytes.NewReader(data))
	var text strings.Builder

	emlExtractor := &EMLExtractor{}

	for {
		msg, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("failed to read mbox: %w", err)
		}
		content, err := io.ReadAll(msg)
		if err != nil {
			continue
		}
		extracted, err := emlExtractor.ExtractText(content)
		if err != nil {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n---\n")
		}
		text.WriteString(extracted)
	}

	if text.Len() == 0 {
		return "", errors.New("no messages in mbox")
	}
	return text.String(), nil
}

// HTMLExtractor extracts visible text from .html files
type HTMLExtractor struct{}

// ExtractText implements the Extractor interface for HTML files
func (e *HTMLExtractor) ExtractText(data []byte) (string, error) {
	doc, err := xhtml.Parse(bytes.NewReader([]byte(DecodeText(data))))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var b strings.Builder
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == xhtml.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String()), nil
}
