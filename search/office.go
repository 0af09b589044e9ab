package search

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
)

// oleStreamCap bounds how much of each compound-file stream is salvaged.
const oleStreamCap = 8 << 20

// ExcelExtractor extracts text from workbooks. xlsx is read with excelize,
// legacy xls streams are salvaged, and anything else (csv) is decoded text.
type ExcelExtractor struct{}

// ExtractText implements the Extractor interface for spreadsheets
func (e *ExcelExtractor) ExtractText(data []byte) (string, error) {
	switch {
	case isZip(data):
		return workbookText(data)
	case isOLE(data):
		return oleText(data, "Workbook", "Book")
	default:
		return DecodeText(data), nil
	}
}

// workbookText renders every sheet in workbook order as CSV rows. Sheets are
// joined with a line break.
func workbookText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	parts := make([]string, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		parts = append(parts, rowsToCSV(rows))
	}
	return strings.Join(parts, "\n"), nil
}

// rowsToCSV writes rows as CSV, padding short rows to the widest row.
func rowsToCSV(rows [][]string) string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		_ = w.Write(row)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// WorkbookSheets returns the rows of every sheet in workbook order. The
// preview viewer renders them as tables.
func WorkbookSheets(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// Sheet is one worksheet's cell text.
type Sheet struct {
	Name string
	Rows [][]string
}

// DOCXExtractor extracts text from .docx files (Office Open XML) and salvages
// legacy .doc compound files.
type DOCXExtractor struct{}

// ExtractText implements the Extractor interface for word-processor files
func (e *DOCXExtractor) ExtractText(data []byte) (string, error) {
	switch {
	case isZip(data):
		paras, err := DocxParagraphs(data)
		if err != nil {
			return "", err
		}
		return strings.Join(paras, "\n"), nil
	case isOLE(data):
		return oleText(data, "WordDocument", "1Table", "0Table")
	default:
		return "", errors.New("not a word-processor document")
	}
}

// DocxParagraphs returns the raw text of each paragraph in word/document.xml,
// discarding formatting.
func DocxParagraphs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document part: %w", err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return nil, errors.New("word/document.xml not found")
}

// parseDocumentXML walks WordprocessingML tokens: text inside <w:t>, tabs
// and breaks inside runs, one entry per <w:p>.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paras []string
	var cur strings.Builder
	inPara, inText := false, false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inPara {
					paras = append(paras, cur.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}

// oleText salvages readable text from the named streams of a compound file.
// Word and Excel store most strings as UTF-16LE; ASCII runs are kept too.
func oleText(data []byte, streams ...string) (string, error) {
	cf, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open compound file: %w", err)
	}

	wanted := make(map[string]bool, len(streams))
	for _, s := range streams {
		wanted[s] = true
	}

	var parts []string
	for ent, err := cf.Next(); err == nil; ent, err = cf.Next() {
		if !wanted[ent.Name] {
			continue
		}
		buf, rerr := io.ReadAll(io.LimitReader(ent, oleStreamCap))
		if rerr != nil && len(buf) == 0 {
			continue
		}
		if s := salvageRuns(DecodeUTF16LE(buf), 2); s != "" {
			parts = append(parts, s)
		}
		if s := salvageRuns(asciiOnly(buf), 4); s != "" {
			parts = append(parts, s)
		}
	}

	if len(parts) == 0 {
		return "", errors.New("no text streams found")
	}
	return strings.Join(parts, "\n"), nil
}

// asciiOnly maps every non-ASCII byte to NUL so salvageRuns splits on it.
func asciiOnly(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 0x80 {
			out[i] = c
		}
	}
	return string(out)
}
