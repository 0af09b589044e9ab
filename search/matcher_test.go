package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMatchName(t *testing.T) {
	tests := []struct {
		name, query string
		want        bool
	}{
		{"reports/Report.pdf", "report", true},
		{"reports/Report.pdf", "REPORT.PDF", true},
		{"notes.txt", "report", false},
		{"检验报告/2024.xlsx", "检验", true},
	}
	for _, tt := range tests {
		if got := MatchName(tt.name, tt.query); got != tt.want {
			t.Errorf("MatchName(%q, %q) = %v, want %v", tt.name, tt.query, got, tt.want)
		}
	}
}

func TestMatchLines(t *testing.T) {
	text := "检验结果：合格\n检验日期：2024-03-20\n<b>结论</b>  合格\x07\n"
	got := MatchLines(text, "合格", 200)
	want := []string{"检验结果：合格", "结论 合格"}
	if len(got) != len(want) {
		t.Fatalf("MatchLines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("excerpt %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatchLinesCaseInsensitive(t *testing.T) {
	got := MatchLines("Alpha\nBETA gamma\nbeta\r\n", "Beta", 200)
	if len(got) != 2 || got[0] != "BETA gamma" || got[1] != "beta" {
		t.Errorf("unexpected excerpts %q", got)
	}
}

func TestMatchLinesDropsEmptyExcerpts(t *testing.T) {
	// The only matching line is pure markup, so it cleans to nothing.
	got := MatchLines("<tag attr=\"needle\">\nplain", "needle", 200)
	if len(got) != 0 {
		t.Errorf("expected no excerpts, got %q", got)
	}
}

func TestMatchLinesTruncation(t *testing.T) {
	long := "x" + strings.Repeat("合格", 150)
	got := MatchLines(long, "合格", 200)
	if len(got) != 1 {
		t.Fatalf("expected one excerpt, got %d", len(got))
	}
	if !strings.HasSuffix(got[0], Ellipsis) {
		t.Errorf("expected ellipsis, got %q", got[0])
	}
	body := strings.TrimSuffix(got[0], Ellipsis)
	if n := utf8.RuneCountInString(body); n != 200 {
		t.Errorf("expected 200 runes before ellipsis, got %d", n)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"elevenchars", 10, "elevenchar..."},
		{"合格合格", 2, "合格..."},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
