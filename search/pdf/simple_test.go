package pdf

import "testing"

func TestParseStringLiterals(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{"Tj", "BT /F1 12 Tf (Hello) Tj ET", "Hello "},
		{"TJ array", "[(Wor) -120 (ld)] TJ", "Wor ld "},
		{"nested parens", "(a (b) c) Tj", "a (b) c "},
		{"escapes", `(x\(y\)\n) Tj`, "x(y)\n "},
		{"octal", `(\101\102) Tj`, "AB "},
		{"no literals", "0 0 m 10 10 l S", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStringLiterals([]byte(tt.stream), 0); got != tt.want {
				t.Errorf("ParseStringLiterals() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseStringLiteralsCap(t *testing.T) {
	got := ParseStringLiterals([]byte("(abcdefgh) Tj"), 4)
	if got != "abcd" {
		t.Errorf("expected capped output, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize("  检验\x00结果   ok \t"); got != "检验 结果 ok" {
		t.Errorf("normalize() = %q", got)
	}
}

func TestExtractAllTextCappedRejectsGarbage(t *testing.T) {
	if _, err := ExtractAllTextCapped([]byte("not a pdf"), 0, 0); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}
