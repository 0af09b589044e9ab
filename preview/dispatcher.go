package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docsearch/config"
	"docsearch/obs"
	"docsearch/search"
)

var (
	// ErrUnsupported is shown for files that have no preview strategy.
	ErrUnsupported = errors.New("preview not supported")
	// ErrSuperseded is returned by a render that lost to a newer Open.
	ErrSuperseded = errors.New("preview superseded by a newer request")
	// ErrClosed is returned by a render whose session was closed.
	ErrClosed = errors.New("preview closed")
)

// State is the lifecycle state of the preview pane.
type State int

const (
	Unmounted State = iota
	Idle
	Rendering
	Rendered
	Failed
	Unsupported
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mount is the surface a preview is drawn on.
type Mount interface {
	// Width is the number of columns available to viewers.
	Width() int
	// Show displays rendered document content.
	Show(content string)
	// ShowMedia displays a native image or video reference.
	ShowMedia(t config.DeclaredType, url string)
	// ShowMessage displays a status line instead of content.
	ShowMessage(msg string)
	// Clear blanks the surface.
	Clear()
}

// Viewer renders one document. Destroy may be called while Preview runs on
// another goroutine and must make it return promptly.
type Viewer interface {
	Preview(ctx context.Context, data []byte) (string, error)
	Destroy()
}

// ViewerFactory constructs a viewer for a mount of the given width.
type ViewerFactory func(width int) Viewer

// Fetcher retrieves the bytes behind a preview URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type session struct {
	file   search.FileDescriptor
	token  string
	viewer Viewer
	cancel context.CancelFunc
	closed bool
}

// Dispatcher owns the preview pane. At most one viewer is alive at a time;
// opening a new file tears down the previous one before constructing the
// next.
type Dispatcher struct {
	mu        sync.Mutex
	mount     Mount
	fetcher   Fetcher
	factories map[config.DeclaredType]ViewerFactory
	current   *session
	state     State

	live   atomic.Int32
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher with the built-in pdf, excel and docx
// viewers.
func NewDispatcher(mount Mount, fetcher Fetcher) *Dispatcher {
	d := &Dispatcher{
		mount:     mount,
		fetcher:   fetcher,
		factories: make(map[config.DeclaredType]ViewerFactory),
		logger:    obs.Logger("preview"),
	}
	d.factories[config.TypePDF] = NewPDFViewer
	d.factories[config.TypeExcel] = NewExcelViewer
	d.factories[config.TypeDocx] = NewDocxViewer
	return d
}

// RegisterViewer replaces the viewer factory for a declared type.
func (d *Dispatcher) RegisterViewer(t config.DeclaredType, f ViewerFactory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factories[t] = f
}

// State returns the current pane state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Current returns the file shown in the pane, if any.
func (d *Dispatcher) Current() (search.FileDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return search.FileDescriptor{}, false
	}
	return d.current.file, true
}

// LiveViewers reports how many viewers are constructed and not yet
// destroyed.
func (d *Dispatcher) LiveViewers() int {
	return int(d.live.Load())
}

// Open shows f in the pane. Reopening the file already shown is a no-op
// unless its last render failed. For pdf, excel and docx files Open blocks
// until the document is rendered, fails, or is superseded.
func (d *Dispatcher) Open(ctx context.Context, f search.FileDescriptor) error {
	d.mu.Lock()
	if s := d.current; s != nil && s.file.Path == f.Path && d.state != Failed {
		d.mu.Unlock()
		return nil
	}
	d.releaseLocked()

	sctx, cancel := context.WithCancel(ctx)
	s := &session{file: f, token: uuid.NewString(), cancel: cancel}
	d.current = s
	d.state = Idle

	factory, ok := d.factories[f.Type]
	switch {
	case f.Type.Media():
		d.mount.ShowMedia(f.Type, f.Path)
		d.state = Rendered
		d.mu.Unlock()
		return nil
	case !ok:
		d.mount.ShowMessage(ErrUnsupported.Error())
		d.state = Unsupported
		d.mu.Unlock()
		d.logger.Debug().Str("path", f.Path).Str("type", f.Type.String()).Msg("no preview for type")
		return nil
	}

	s.viewer = factory(d.mount.Width())
	d.live.Add(1)
	d.state = Rendering
	viewer := s.viewer
	d.mu.Unlock()

	out, err := d.render(sctx, viewer, f.Path)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != s {
		if s.closed {
			return ErrClosed
		}
		d.logger.Debug().Str("path", f.Path).Str("session", s.token).Msg("discarding stale render")
		return ErrSuperseded
	}
	if err != nil {
		d.logger.Warn().Err(err).Str("path", f.Path).Str("session", s.token).Msg("preview failed")
		d.destroyViewerLocked(s)
		d.mount.Clear()
		d.state = Failed
		return fmt.Errorf("preview %s: %w", f.Name, err)
	}
	d.mount.Show(out)
	d.state = Rendered
	return nil
}

func (d *Dispatcher) render(ctx context.Context, v Viewer, url string) (string, error) {
	data, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return v.Preview(ctx, data)
}

// Close tears down the current session, if any. It is safe to call
// repeatedly.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.closed = true
	}
	d.releaseLocked()
}

// releaseLocked cancels and destroys the current session and blanks the
// mount. d.mu must be held.
func (d *Dispatcher) releaseLocked() {
	s := d.current
	if s == nil {
		return
	}
	s.cancel()
	d.destroyViewerLocked(s)
	d.mount.Clear()
	d.current = nil
	d.state = Unmounted
}

func (d *Dispatcher) destroyViewerLocked(s *session) {
	if s.viewer == nil {
		return
	}
	s.viewer.Destroy()
	s.viewer = nil
	d.live.Add(-1)
}
