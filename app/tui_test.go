package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"docsearch/config"
	"docsearch/preview"
	"docsearch/search"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results []search.Result
	err     error
	calls   []string
	modes   []bool
}

func (f *fakeSearcher) Search(_ context.Context, query string, fullText bool) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	f.modes = append(f.modes, fullText)
	return f.results, f.err
}

type staticFetcher map[string][]byte

func (s staticFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	data, ok := s[url]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return data, nil
}

type textViewer struct{}

func (textViewer) Preview(_ context.Context, data []byte) (string, error) {
	return "PAGE " + string(data), nil
}

func (textViewer) Destroy() {}

func newTestModel(s Searcher, files staticFetcher) model {
	pane := &paneMount{width: 80}
	d := preview.NewDispatcher(pane, files)
	d.RegisterViewer(config.TypePDF, func(int) preview.Viewer { return textViewer{} })
	return newModel(s, d, pane, 10*time.Millisecond)
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func typeText(t *testing.T, m model, s string) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, r := range s {
		m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m, cmd
}

var sampleResults = []search.Result{
	{
		File:    search.FileDescriptor{Name: "reports/检验报告.pdf", Path: "/preview/reports/检验报告.pdf", Type: config.TypePDF},
		Matches: []string{"检验结果: 合格"},
	},
	{
		File:    search.FileDescriptor{Name: "notes.txt", Path: "/preview/notes.txt", Type: config.TypeOther},
		Matches: []string{"检验 notes"},
	},
}

func TestTypingSchedulesDebouncedSearch(t *testing.T) {
	fs := &fakeSearcher{results: sampleResults}
	m := newTestModel(fs, nil)

	m, cmd := typeText(t, m, "检验")
	if cmd == nil {
		t.Fatal("typing should schedule a debounce tick")
	}
	if m.seq != 2 {
		t.Fatalf("seq = %d, want 2", m.seq)
	}

	// The first keystroke's tick is stale.
	m, cmd = update(t, m, debounceMsg{seq: 1})
	if cmd != nil || m.state != stateIdle {
		t.Fatal("stale debounce tick should be ignored")
	}

	m, cmd = update(t, m, debounceMsg{seq: 2})
	if cmd == nil {
		t.Fatal("live tick should start a search")
	}
	if m.state != stateLoading {
		t.Errorf("state = %v, want loading", m.state)
	}
	if !strings.Contains(m.View(), "Searching...") {
		t.Error("loading view missing")
	}

	msg := cmd()
	m, _ = update(t, m, msg)
	if m.state != stateResults || len(m.results) != 2 {
		t.Fatalf("state = %v, results = %d", m.state, len(m.results))
	}
	if len(fs.calls) != 1 || fs.calls[0] != "检验" {
		t.Errorf("searcher calls = %v", fs.calls)
	}

	view := m.View()
	for _, want := range []string{"检验报告.pdf", "notes.txt", "合格"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, nil)
	m, _ = typeText(t, m, "ab")

	m, _ = update(t, m, searchResultMsg{seq: 1, results: sampleResults})
	if m.state != stateIdle || m.results != nil {
		t.Fatal("response for an older query must not be applied")
	}

	m, _ = update(t, m, searchResultMsg{seq: 2, results: sampleResults[:1]})
	if m.state != stateResults || len(m.results) != 1 {
		t.Errorf("latest response not applied: state %v", m.state)
	}
}

func TestEmptyAndFailedStates(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, nil)
	m, _ = typeText(t, m, "x")

	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: []search.Result{}})
	if !strings.Contains(m.View(), "No matching documents") {
		t.Error("empty state missing")
	}

	m, _ = typeText(t, m, "y")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, err: errors.New("search: search failed (500 Internal Server Error)")})
	if m.state != stateFailed {
		t.Fatalf("state = %v, want failed", m.state)
	}
	if !strings.Contains(m.View(), "Search failed") {
		t.Error("failed state missing")
	}
}

func TestFailedSearchIsLogged(t *testing.T) {
	var logs bytes.Buffer
	m := newTestModel(&fakeSearcher{err: errors.New("connection refused")}, nil)
	m.logger = zerolog.New(&logs)
	m, _ = typeText(t, m, "q")

	m, cmd := update(t, m, debounceMsg{seq: m.seq})
	if cmd == nil {
		t.Fatal("live tick should start a search")
	}
	m, _ = update(t, m, cmd())
	if m.state != stateFailed {
		t.Fatalf("state = %v, want failed", m.state)
	}
	out := logs.String()
	if !strings.Contains(out, "search failed") || !strings.Contains(out, "connection refused") {
		t.Errorf("log output = %q", out)
	}
}

func TestClearingQueryResets(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, nil)
	m, _ = typeText(t, m, "a")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: sampleResults})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if cmd != nil {
		t.Error("empty query should not schedule a search")
	}
	if m.state != stateIdle || m.results != nil {
		t.Errorf("state = %v after clearing", m.state)
	}

	// A response for the cleared query arrives late.
	m, _ = update(t, m, searchResultMsg{seq: m.seq - 1, results: sampleResults})
	if m.state != stateIdle {
		t.Error("late response repopulated a cleared query")
	}
}

func TestTabTogglesFullText(t *testing.T) {
	fs := &fakeSearcher{results: sampleResults}
	m := newTestModel(fs, nil)
	m, _ = typeText(t, m, "q")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.fullText || cmd == nil {
		t.Fatal("tab should enable full text and reschedule")
	}
	m, cmd = update(t, m, debounceMsg{seq: m.seq})
	cmd()
	if len(fs.modes) != 1 || !fs.modes[0] {
		t.Errorf("search modes = %v, want [true]", fs.modes)
	}
	if !strings.Contains(m.View(), "full text") {
		t.Error("mode not shown")
	}
}

func TestSelectionBounds(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, nil)
	m, _ = typeText(t, m, "a")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: sampleResults})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Errorf("selected = %d", m.selected)
	}
	for i := 0; i < 5; i++ {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.selected != len(sampleResults)-1 {
		t.Errorf("selected = %d, want %d", m.selected, len(sampleResults)-1)
	}
}

func TestEnterOpensAndEscClosesPreview(t *testing.T) {
	files := staticFetcher{"/preview/reports/检验报告.pdf": []byte("one")}
	m := newTestModel(&fakeSearcher{}, files)
	m, _ = typeText(t, m, "检")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: sampleResults})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.previewOpen {
		t.Fatal("enter should open the preview")
	}
	m, _ = update(t, m, cmd())

	if m.preview.State() != preview.Rendered {
		t.Fatalf("preview state = %v", m.preview.State())
	}
	if !strings.Contains(m.View(), "PAGE one") {
		t.Errorf("preview content missing:\n%s", m.View())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.previewOpen || m.preview.State() != preview.Unmounted {
		t.Error("esc should close the preview")
	}
	if m.preview.LiveViewers() != 0 {
		t.Errorf("live viewers = %d after close", m.preview.LiveViewers())
	}
}

func TestUnsupportedPreview(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, staticFetcher{})
	m, _ = typeText(t, m, "n")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: sampleResults})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())
	if m.preview.State() != preview.Unsupported {
		t.Fatalf("preview state = %v", m.preview.State())
	}
	if !strings.Contains(m.View(), preview.ErrUnsupported.Error()) {
		t.Error("unsupported message missing")
	}
}

func TestFailedPreviewStaysOpen(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, staticFetcher{})
	m, _ = typeText(t, m, "检")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: sampleResults})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())
	if m.preview.State() != preview.Failed {
		t.Fatalf("preview state = %v", m.preview.State())
	}
	if !m.previewOpen || m.previewErr == nil {
		t.Error("failed preview should stay open with its error")
	}
	if !strings.Contains(m.View(), "Preview failed") {
		t.Error("failure not shown")
	}
}

func TestQuitClosesPreview(t *testing.T) {
	files := staticFetcher{"/preview/reports/检验报告.pdf": []byte("one")}
	m := newTestModel(&fakeSearcher{}, files)
	m, _ = typeText(t, m, "检")
	m, _ = update(t, m, searchResultMsg{seq: m.seq, results: sampleResults})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !m.quitting {
		t.Fatal("ctrl+c should quit")
	}
	if m.preview.LiveViewers() != 0 {
		t.Error("quitting should destroy the viewer")
	}
}

func TestHighlightQuery(t *testing.T) {
	tests := []struct {
		text, query string
	}{
		{"Annual Report 2024", "report"},
		{"检验报告", "检验"},
		{"a+b (c)", "+b ("},
		{"nothing here", ""},
	}
	for _, tt := range tests {
		got := highlightQuery(tt.text, tt.query)
		if !strings.Contains(stripANSI(got), tt.text) {
			t.Errorf("highlightQuery(%q, %q) lost text: %q", tt.text, tt.query, got)
		}
	}
}

func TestQueryPatternKeepsSurroundingSpaces(t *testing.T) {
	if queryPattern("   ") != nil {
		t.Error("blank query should not compile a pattern")
	}
	re := queryPattern(" rep")
	if re.MatchString("Report.pdf") {
		t.Error("\" rep\" must not match a name the matcher rejects")
	}
	if !re.MatchString("annual report") {
		t.Error("\" rep\" should match \"annual report\"")
	}
	if got := stripANSI(highlightQuery("Report.pdf", " rep")); got != "Report.pdf" {
		t.Errorf("highlightQuery() = %q", got)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
