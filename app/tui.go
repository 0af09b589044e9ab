package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"docsearch/config"
	"docsearch/obs"
	"docsearch/preview"
	"docsearch/search"
)

// searchTimeout bounds a single search request issued by the UI.
const searchTimeout = 2 * time.Minute

// Searcher runs one query. Both the HTTP client and the local engine
// satisfy it.
type Searcher interface {
	Search(ctx context.Context, query string, fullText bool) ([]search.Result, error)
}

// Styles (shared with the CLI printer)
var (
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7"))

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1a1b26")).
			Background(lipgloss.Color("#e0af68"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0caf5")).
			Background(lipgloss.Color("#414868")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type viewState int

const (
	stateIdle viewState = iota
	stateLoading
	stateResults
	stateEmpty
	stateFailed
)

// Messages for TUI updates
type debounceMsg struct {
	seq int
}

type searchResultMsg struct {
	seq        int
	results    []search.Result
	err        error
	searchTime time.Duration
}

type previewDoneMsg struct {
	path string
	err  error
}

// paneMount is the preview surface inside the TUI. The dispatcher writes to
// it from command goroutines, so access is locked.
type paneMount struct {
	mu      sync.Mutex
	width   int
	content string
}

func (p *paneMount) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

func (p *paneMount) Show(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = content
}

func (p *paneMount) ShowMedia(t config.DeclaredType, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = fmt.Sprintf("%s file: %s\n\nOpen this address in a browser to view it.", t, url)
}

func (p *paneMount) ShowMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = msg
}

func (p *paneMount) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = ""
}

func (p *paneMount) setWidth(w int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = w
}

func (p *paneMount) text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

type model struct {
	searcher Searcher
	preview  *preview.Dispatcher
	pane     *paneMount
	debounce time.Duration

	// Query state. seq identifies the latest edit; stale ticks and
	// responses carry an older value and are dropped.
	query    string
	fullText bool
	seq      int

	// Results
	state      viewState
	results    []search.Result
	selected   int
	err        error
	searchTime time.Duration

	// Preview pane
	previewOpen   bool
	previewErr    error
	contentScroll int

	// Window size
	width  int
	height int

	quitting bool

	logger zerolog.Logger
}

func newModel(s Searcher, d *preview.Dispatcher, pane *paneMount, debounce time.Duration) model {
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}
	return model{
		searcher: s,
		preview:  d,
		pane:     pane,
		debounce: debounce,
		state:    stateIdle,
		logger:   obs.Logger("tui"),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pane.setWidth(max(msg.Width-10, 20))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case debounceMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.state = stateLoading
		return m, m.runSearch(msg.seq, m.query, m.fullText)

	case searchResultMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.searchTime = msg.searchTime
		m.selected = 0
		switch {
		case msg.err != nil:
			m.state = stateFailed
			m.err = msg.err
			m.results = nil
		case len(msg.results) == 0:
			m.state = stateEmpty
			m.results = nil
		default:
			m.state = stateResults
			m.results = msg.results
		}
		return m, nil

	case previewDoneMsg:
		cur, ok := m.preview.Current()
		if !ok || cur.Path != msg.path {
			return m, nil
		}
		m.previewErr = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyRunes:
		m.query += string(msg.Runes)
		return m.schedule()
	case tea.KeySpace:
		m.query += " "
		return m.schedule()
	}

	switch msg.String() {
	case "ctrl+c":
		m.preview.Close()
		m.quitting = true
		return m, tea.Quit
	case "esc":
		if m.previewOpen {
			m.preview.Close()
			m.previewOpen = false
			m.previewErr = nil
			m.contentScroll = 0
		}
		return m, nil
	case "tab":
		m.fullText = !m.fullText
		return m.schedule()
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < len(m.results)-1 {
			m.selected++
		}
		return m, nil
	case "pgup":
		m.contentScroll = max(m.contentScroll-5, 0)
		return m, nil
	case "pgdown":
		m.contentScroll += 5
		return m, nil
	case "enter":
		if m.state != stateResults || m.selected >= len(m.results) {
			return m, nil
		}
		m.previewOpen = true
		m.previewErr = nil
		m.contentScroll = 0
		return m, m.openPreview(m.results[m.selected].File)
	case "backspace":
		if m.query == "" {
			return m, nil
		}
		r := []rune(m.query)
		m.query = string(r[:len(r)-1])
		return m.schedule()
	}
	return m, nil
}

// schedule starts the debounce window for the current query. Every call
// supersedes the pending tick and any in-flight response.
func (m model) schedule() (tea.Model, tea.Cmd) {
	m.seq++
	if strings.TrimSpace(m.query) == "" {
		m.state = stateIdle
		m.results = nil
		m.err = nil
		return m, nil
	}
	seq := m.seq
	return m, tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	})
}

// Background search command
func (m model) runSearch(seq int, query string, fullText bool) tea.Cmd {
	searcher := m.searcher
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()

		start := time.Now()
		results, err := searcher.Search(ctx, query, fullText)
		if err != nil {
			logger.Warn().Err(err).Str("query", query).Msg("search failed")
		}
		return searchResultMsg{
			seq:        seq,
			results:    results,
			err:        err,
			searchTime: time.Since(start),
		}
	}
}

func (m model) openPreview(f search.FileDescriptor) tea.Cmd {
	d := m.preview
	return func() tea.Msg {
		err := d.Open(context.Background(), f)
		return previewDoneMsg{path: f.Path, err: err}
	}
}

func (m model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 120
	}
	if height <= 0 {
		height = 30
	}

	if m.quitting {
		return "Goodbye!\n"
	}

	var headerLines []string
	headerLines = append(headerLines, headerStyle.Render(fmt.Sprintf("docsearch v%s", version)))
	headerLines = append(headerLines, subHeaderStyle.Render("🔍 Search: ")+m.query+"█")

	mode := "filename"
	if m.fullText {
		mode = "full text"
	}
	status := infoStyle.Render("Mode: " + mode)
	if m.state == stateResults {
		status += infoStyle.Render(" • ") + successStyle.Render(fmt.Sprintf("%d files", len(m.results))) +
			infoStyle.Render(fmt.Sprintf(" in %.2fs", m.searchTime.Seconds()))
	}
	headerLines = append(headerLines, status)

	header := strings.Join(headerLines, "\n")
	headerHeight := strings.Count(header, "\n") + 1
	footerHeight := 1
	chromeHeight := 4

	boxOuterWidth := width - 4
	innerWidth := max(boxOuterWidth-6, 10)
	contentHeight := max(height-headerHeight-footerHeight-chromeHeight, 1)

	var boxContent string
	if m.previewOpen {
		boxContent = m.previewView(innerWidth)
	} else {
		boxContent = m.resultsView(innerWidth)
	}

	// Window the box content according to contentScroll
	lines := strings.Split(boxContent, "\n")
	start := m.contentScroll
	if m.previewOpen {
		start = min(start, max(len(lines)-contentHeight, 0))
	} else {
		start = m.selectionOffset(lines, contentHeight, innerWidth)
	}
	end := min(start+contentHeight, len(lines))
	window := strings.Join(lines[start:end], "\n")

	footer := "tab: mode • ↑/↓: select • enter: preview • esc: close preview • ctrl+c: quit"
	if m.previewOpen {
		footer = "pgup/pgdown: scroll • enter: retry • esc: close preview • ctrl+c: quit"
	}

	parts := []string{
		header,
		appStyle.Width(boxOuterWidth).Height(contentHeight).Render(window),
		footerStyle.Render(footer),
	}
	return strings.Join(parts, "\n")
}

func (m model) resultsView(width int) string {
	switch m.state {
	case stateIdle:
		return infoStyle.Render("Type to search document names. Press tab to search inside documents.")
	case stateLoading:
		return infoStyle.Render("Searching...")
	case stateEmpty:
		return warningStyle.Render("No matching documents")
	case stateFailed:
		msg := errorStyle.Render("Search failed")
		if m.err != nil {
			msg += "\n\n" + infoStyle.Render(wrapTextWithIndent("", m.err.Error(), width))
		}
		return msg
	}

	var b strings.Builder
	for i, r := range m.results {
		marker := "  "
		name := highlightQuery(r.File.Name, m.query)
		if i == m.selected {
			marker = "▶ "
			name = selectedStyle.Render(r.File.Name)
		}
		b.WriteString(marker + name + separatorStyle.Render(" ("+r.File.Type.String()+")") + "\n")
		for _, excerpt := range r.Matches {
			b.WriteString(wrapTextWithIndent("    ", highlightQuery(excerpt, m.query), width) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) previewView(width int) string {
	title := subHeaderStyle.Render("Preview")
	if cur, ok := m.preview.Current(); ok {
		title = subHeaderStyle.Render("Preview: " + cur.Name)
	}

	switch m.preview.State() {
	case preview.Rendering, preview.Idle:
		return title + "\n\n" + infoStyle.Render("Loading preview...")
	case preview.Failed:
		msg := errorStyle.Render("Preview failed")
		if m.previewErr != nil {
			msg += "\n" + infoStyle.Render(wrapTextWithIndent("", m.previewErr.Error(), width))
		}
		return title + "\n\n" + msg
	case preview.Unsupported:
		return title + "\n\n" + warningStyle.Render(m.pane.text())
	}
	return title + "\n\n" + m.pane.text()
}

// selectionOffset scrolls the results list so the selected entry stays
// visible.
func (m model) selectionOffset(lines []string, height, width int) int {
	if m.state != stateResults || len(lines) <= height {
		return 0
	}
	row := 0
	for i := 0; i < m.selected && i < len(m.results); i++ {
		row++
		for _, excerpt := range m.results[i].Matches {
			row += strings.Count(wrapTextWithIndent("    ", highlightQuery(excerpt, m.query), width), "\n") + 1
		}
	}
	return min(row, len(lines)-height)
}

// queryPattern compiles the case-insensitive literal pattern for query, or
// nil for a blank query. The query is used as typed, so highlights agree
// with what the matcher accepted.
func queryPattern(query string) *regexp.Regexp {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
}

// highlightQuery marks every case-insensitive occurrence of query in text.
func highlightQuery(text, query string) string {
	re := queryPattern(query)
	if re == nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(s string) string {
		return matchStyle.Render(s)
	})
}

func wrapTextWithIndent(prefix, text string, width int) string {
	prefixWidth := lipgloss.Width(prefix)
	indent := strings.Repeat(" ", prefixWidth)
	wrapped := lipgloss.NewStyle().Width(max(width-prefixWidth, 1)).Render(text)
	return prefix + strings.ReplaceAll(wrapped, "\n", "\n"+indent)
}
