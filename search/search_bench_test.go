package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docsearch/config"
)

var (
	benchExcerpts []string
	benchResults  []Result
)

func BenchmarkMatchLines_Hit(b *testing.B) {
	// Build a ~1MB document with a match every 100 lines
	const targetSize = 1 << 20
	var sb strings.Builder
	sb.Grow(targetSize + 128)
	for i := 0; sb.Len() < targetSize; i++ {
		if i%100 == 0 {
			sb.WriteString("<b>检验结果</b>：合格  \x07 line\n")
			continue
		}
		sb.WriteString("lorem ipsum dolor sit amet consectetur adipiscing elit\n")
	}
	text := sb.String()
	m := NewMatcher("合格", 200)

	// Sanity check once before measuring
	if len(m.MatchLines(text)) == 0 {
		b.Fatal("sanity check failed: no excerpts")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchExcerpts = m.MatchLines(text)
	}
}

func BenchmarkMatchLines_Miss(b *testing.B) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit\n", 20000)
	m := NewMatcher("vehicles", 200)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchExcerpts = m.MatchLines(text)
	}
}

func BenchmarkEngineSearchFullText(b *testing.B) {
	root := b.TempDir()
	for i := 0; i < 200; i++ {
		path := filepath.Join(root, fmt.Sprintf("dir%02d", i%10), fmt.Sprintf("doc%03d.txt", i))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.Fatal(err)
		}
		body := strings.Repeat("plain filler text\n", 200) + "the needle line\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.CorpusRoot = root
	e := NewEngine(cfg)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := e.Search(context.Background(), "needle", true)
		if err != nil {
			b.Fatal(err)
		}
		benchResults = res
	}
}
