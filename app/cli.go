package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"docsearch/config"
	"docsearch/preview"
	"docsearch/search"
)

var version = "1.0.0"

// Version returns the program version.
func Version() string { return version }

// ShowVersion prints the styled version line.
func ShowVersion(w io.Writer) {
	fmt.Fprintln(w, successStyle.Render("docsearch v"+version))
}

// getTerminalWidth returns the terminal width, defaulting to 80 if unable to detect
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Default fallback width
	}
	return width
}

// createSeparator creates a separator line that fits the terminal width
func createSeparator(width int) string {
	if width > 120 {
		width = 120 // Maximum reasonable width
	}
	return separatorStyle.Render(strings.Repeat("━", width))
}

// PrintResults writes search results in the same styling as the TUI.
func PrintResults(w io.Writer, query string, fullText bool, results []search.Result, took time.Duration) {
	width := getTerminalWidth()
	mode := "filename"
	if fullText {
		mode = "full text"
	}

	fmt.Fprintln(w, subHeaderStyle.Render(fmt.Sprintf("🔍 Searching %s for: %q", mode, query)))
	fmt.Fprintln(w, createSeparator(width))

	if len(results) == 0 {
		fmt.Fprintln(w, warningStyle.Render("No matching documents"))
		return
	}

	for i, r := range results {
		fmt.Fprintf(w, "%s %s %s\n",
			infoStyle.Render(fmt.Sprintf("%d.", i+1)),
			highlightQuery(r.File.Name, query),
			separatorStyle.Render("("+r.File.Type.String()+")"))
		fmt.Fprintln(w, infoStyle.Render("   "+r.File.Path))
		for _, excerpt := range r.Matches {
			fmt.Fprintln(w, wrapTextWithIndent("   ", highlightQuery(excerpt, query), min(width, 120)))
		}
	}

	fmt.Fprintln(w, createSeparator(width))
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("📋 Matched %d files in %.2f seconds", len(results), took.Seconds())))
}

// PrintExtraction writes the declared type and extracted text of one file.
func PrintExtraction(w io.Writer, path string, t config.DeclaredType, text string) {
	fmt.Fprintln(w, subHeaderStyle.Render("📄 "+path))
	fmt.Fprintln(w, infoStyle.Render("Type: "+t.String()))
	fmt.Fprintln(w, createSeparator(getTerminalWidth()))
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(w, warningStyle.Render("(no text extracted)"))
		return
	}
	fmt.Fprintln(w, text)
}

// RenderPreview renders one corpus file with the preview viewers, reading it
// straight from the corpus root.
func RenderPreview(ctx context.Context, w io.Writer, cfg *config.Config, name string) error {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	f := search.FileDescriptor{
		Name: name,
		Path: cfg.PreviewURL(name),
		Type: config.DetectType(name),
	}

	mount := &preview.WriterMount{W: w, Cols: min(getTerminalWidth(), 120)}
	d := preview.NewDispatcher(mount, &preview.FileFetcher{Root: cfg.CorpusRoot, Prefix: cfg.PreviewPrefix})
	defer d.Close()

	fmt.Fprintln(w, subHeaderStyle.Render("📄 "+name))
	fmt.Fprintln(w, createSeparator(mount.Cols))
	return d.Open(ctx, f)
}

// TUIOptions selects where the UI searches and fetches previews from.
type TUIOptions struct {
	Config *config.Config
	// Offline searches the local corpus directly instead of the server.
	Offline bool
}

// RunTUI starts the interactive search UI and blocks until it quits.
func RunTUI(opts TUIOptions) error {
	cfg := opts.Config
	pane := &paneMount{width: getTerminalWidth() - 10}

	var searcher Searcher
	var fetcher preview.Fetcher
	if opts.Offline {
		searcher = search.NewEngine(cfg)
		fetcher = &preview.FileFetcher{Root: cfg.CorpusRoot, Prefix: cfg.PreviewPrefix}
	} else {
		searcher = NewSearchClient(cfg.ServerURL)
		fetcher = preview.NewHTTPFetcher(cfg.ServerURL)
	}

	d := preview.NewDispatcher(pane, fetcher)
	defer d.Close()

	p := tea.NewProgram(newModel(searcher, d, pane, cfg.Debounce), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
