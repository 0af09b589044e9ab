package config

import (
	"path"
	"slices"
	"strings"
)

// DeclaredType is the format classification of a corpus file, inferred from
// its extension. It drives both text extraction and preview strategy.
type DeclaredType string

const (
	TypePDF   DeclaredType = "pdf"
	TypeExcel DeclaredType = "excel"
	TypeDocx  DeclaredType = "docx"
	TypeImage DeclaredType = "image"
	TypeVideo DeclaredType = "video"
	TypeOther DeclaredType = "other"
)

// ImageTypes defines the file extensions rendered as native images
var ImageTypes = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}

// VideoTypes defines the file extensions rendered as native video
var VideoTypes = []string{"mp4", "webm", "ogg", "mov", "avi"}

// SpreadsheetTypes defines the file extensions handled as workbooks
var SpreadsheetTypes = []string{"xlsx", "xls", "csv"}

// WordTypes defines the file extensions handled as word-processor documents
var WordTypes = []string{"docx", "doc"}

// AllTypes lists every declared type, in the order used for display.
var AllTypes = []DeclaredType{TypePDF, TypeExcel, TypeDocx, TypeImage, TypeVideo, TypeOther}

// typeByExt is built once from the tables above for O(1) lookups.
var typeByExt = buildTypeMap()

func buildTypeMap() map[string]DeclaredType {
	m := make(map[string]DeclaredType)
	for _, ext := range ImageTypes {
		m[ext] = TypeImage
	}
	for _, ext := range VideoTypes {
		m[ext] = TypeVideo
	}
	for _, ext := range SpreadsheetTypes {
		m[ext] = TypeExcel
	}
	for _, ext := range WordTypes {
		m[ext] = TypeDocx
	}
	m["pdf"] = TypePDF
	return m
}

// DetectType infers the declared type of a file from its extension.
func DetectType(filename string) DeclaredType {
	if t, ok := typeByExt[Extension(filename)]; ok {
		return t
	}
	return TypeOther
}

// ParseType converts a type name back to a DeclaredType. Unknown names map
// to TypeOther.
func ParseType(s string) DeclaredType {
	t := DeclaredType(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(AllTypes, t) {
		return t
	}
	return TypeOther
}

// Previewable reports whether the type has a fetch-and-render viewer.
func (t DeclaredType) Previewable() bool {
	switch t {
	case TypePDF, TypeExcel, TypeDocx:
		return true
	}
	return false
}

// Media reports whether the type is rendered natively from its URL.
func (t DeclaredType) Media() bool {
	return t == TypeImage || t == TypeVideo
}

func (t DeclaredType) String() string {
	return string(t)
}

// Extension returns the lowercased extension of filename without the dot.
func Extension(filename string) string {
	ext := path.Ext(strings.ReplaceAll(filename, "\\", "/"))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHiddenFile checks if a file should be treated as hidden
func IsHiddenFile(filename string) bool {
	return strings.HasPrefix(filename, ".")
}

// vcsDirs are never part of the corpus, hidden or not.
var vcsDirs = map[string]bool{
	".git": true,
	".svn": true,
	".hg":  true,
}

// ShouldSkipDirectory determines if a directory should be skipped during traversal
func ShouldSkipDirectory(dirName string, includeHidden bool) bool {
	if vcsDirs[dirName] {
		return true
	}
	return !includeHidden && IsHiddenFile(dirName)
}

// Excluded reports whether the corpus-relative slash path rel is left out of
// the corpus by the same rules the walker applies.
func Excluded(rel string, includeHidden bool) bool {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	for i, part := range parts {
		if i == len(parts)-1 {
			return !includeHidden && IsHiddenFile(part)
		}
		if ShouldSkipDirectory(part, includeHidden) {
			return true
		}
	}
	return false
}

// GetFileTypeDescription returns a human-readable description of file types
func GetFileTypeDescription() string {
	return "pdf, excel (" + strings.Join(SpreadsheetTypes, ", ") + "), docx (" +
		strings.Join(WordTypes, ", ") + "), eml, mbox, html and plain text"
}
