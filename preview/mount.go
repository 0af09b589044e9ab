package preview

import (
	"fmt"
	"io"

	"docsearch/config"
)

// WriterMount prints previews to a stream. The extract and preview commands
// use it to render without a terminal UI.
type WriterMount struct {
	W    io.Writer
	Cols int
}

func (m *WriterMount) Width() int { return m.Cols }

func (m *WriterMount) Show(content string) { fmt.Fprintln(m.W, content) }

func (m *WriterMount) ShowMedia(t config.DeclaredType, url string) {
	fmt.Fprintf(m.W, "[%s] %s\n", t, url)
}

func (m *WriterMount) ShowMessage(msg string) { fmt.Fprintln(m.W, msg) }

func (m *WriterMount) Clear() {}
