package search

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tags control and spaces", "<b>hello   world</b>\x07", "hello world"},
		{"xml remnants", `<w:t xml:space="preserve">检验结果</w:t>：合格`, "检验结果：合格"},
		{"c1 range", "a\u0085b", "a b"},
		{"tabs and newlines", "\tone\t\ttwo\r\n", "one two"},
		{"single space kept", "a b", "a b"},
		{"control next to spaces", "a \x01 b", "a b"},
		{"only markup", "<br/><p></p>", ""},
		{"unclosed angle kept", "1 < 2", "1 < 2"},
		{"empty tag pair not stripped", "a <> b", "a <> b"},
		{"ideographic spaces", "检验结果：\u3000\u3000合格", "检验结果： 合格"},
		{"no-break spaces", "a\u00a0\u00a0\u00a0b", "a b"},
		{"mixed unicode run", "a \u3000\u2029\ufeffb", "a b"},
		{"single ideographic space kept", "检验\u3000合格", "检验\u3000合格"},
		{"unicode edges trimmed", "\ufeff\u3000合格\u00a0", "合格"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	in := "<p>  报告\x00编号 :  A-01 </p>"
	once := Clean(in)
	if twice := Clean(once); twice != once {
		t.Errorf("Clean not idempotent: %q then %q", once, twice)
	}
}
