// Package paged is an in-memory paginating renderer for plain-text books.
//
// Positions have the form "<href>#w<offset>", the word offset of the first
// word on the page. Pagination depends on the viewport, font size and scale,
// so the same position can land on a different page after a reflow, which
// is what a reading session has to cope with.
package paged

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mrlokans/reader/internal/history"
	"github.com/mrlokans/reader/internal/session"
)

const (
	DefaultColumns  = 80
	DefaultRows     = 24
	SpreadColumns   = 120
	defaultFontSize = 100
	charsPerWord    = 6
)

var (
	ErrEndOfBook   = errors.New("end of book")
	ErrStartOfBook = errors.New("start of book")
	ErrClosed      = errors.New("renderer closed")
)

// Renderer renders a Book page by page and reports changes to a
// session.Listener synchronously, after releasing its own lock.
type Renderer struct {
	book  *Book
	words [][]string

	mu       sync.Mutex
	listener session.Listener
	columns  int
	rows     int
	fontSize int
	scale    float64
	section  int
	start    int
	shown    bool
	closed   bool
}

var (
	_ session.Renderer    = (*Renderer)(nil)
	_ session.FontSizer   = (*Renderer)(nil)
	_ session.Scaler      = (*Renderer)(nil)
	_ session.Directional = (*Renderer)(nil)
)

// New creates a renderer for book with an 80x24 viewport.
func New(book *Book) *Renderer {
	r := &Renderer{
		book:     book,
		columns:  DefaultColumns,
		rows:     DefaultRows,
		fontSize: defaultFontSize,
		scale:    1,
	}
	for _, s := range book.Sections {
		r.words = append(r.words, strings.Fields(s.Text))
	}
	return r
}

// SetListener sets the receiver of renderer events.
func (r *Renderer) SetListener(l session.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

// Title returns the book title.
func (r *Renderer) Title() string {
	return r.book.Title
}

// RightToLeft reports the book's page progression.
func (r *Renderer) RightToLeft() bool {
	return r.book.RightToLeft
}

// capacity returns the number of words per page. Callers hold r.mu.
func (r *Renderer) capacity() int {
	perLine := r.columns * 100 / (r.fontSize * charsPerWord)
	if perLine < 1 {
		perLine = 1
	}
	c := int(float64(perLine*r.rows) / r.scale)
	if c < 1 {
		c = 1
	}
	return c
}

func (r *Renderer) align(offset int) int {
	c := r.capacity()
	if n := len(r.words[r.section]); offset >= n && n > 0 {
		offset = n - 1
	}
	if offset < 0 {
		offset = 0
	}
	return offset / c * c
}

func (r *Renderer) position() history.Position {
	return history.Position(fmt.Sprintf("%s#w%d", r.book.Sections[r.section].Href, r.start))
}

// event is a batch of listener calls collected under the lock.
type event struct {
	listener  session.Listener
	rendered  string
	resized   bool
	layout    *bool
	relocated history.Position
}

func (e event) emit() {
	if e.listener == nil {
		return
	}
	if e.resized {
		e.listener.OnResized()
	}
	if e.layout != nil {
		e.listener.OnLayout(*e.layout)
	}
	if e.rendered != "" {
		e.listener.OnRendered(e.rendered)
	}
	if e.relocated != "" {
		e.listener.OnRelocated(e.relocated)
	}
}

// moveTo switches to section at word offset. Callers hold r.mu.
func (r *Renderer) moveTo(section, offset int) event {
	ev := event{listener: r.listener}
	if section != r.section || !r.shown {
		ev.rendered = r.book.Sections[section].Href
	}
	r.shown = true
	r.section = section
	r.start = r.align(offset)
	ev.relocated = r.position()
	return ev
}

// Display shows pos. An empty or unknown position shows the first page.
func (r *Renderer) Display(_ context.Context, pos history.Position) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	section, offset := r.resolve(string(pos))
	ev := r.moveTo(section, offset)
	r.mu.Unlock()

	ev.emit()
	return nil
}

func (r *Renderer) resolve(pos string) (int, int) {
	href, fragment, _ := strings.Cut(pos, "#")
	for i, s := range r.book.Sections {
		if s.Href != href {
			continue
		}
		if w, ok := strings.CutPrefix(fragment, "w"); ok {
			if n, err := strconv.Atoi(w); err == nil {
				return i, n
			}
		}
		return i, 0
	}
	return 0, 0
}

// Next turns to the following page, crossing into the next section at the
// end of one.
func (r *Renderer) Next(context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	var ev event
	switch next := r.start + r.capacity(); {
	case next < len(r.words[r.section]):
		ev = r.moveTo(r.section, next)
	case r.section+1 < len(r.book.Sections):
		ev = r.moveTo(r.section+1, 0)
	default:
		r.mu.Unlock()
		return ErrEndOfBook
	}
	r.mu.Unlock()

	ev.emit()
	return nil
}

// Prev turns to the previous page, crossing into the last page of the
// previous section at the start of one.
func (r *Renderer) Prev(context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	var ev event
	switch {
	case r.start > 0:
		ev = r.moveTo(r.section, r.start-r.capacity())
	case r.section > 0:
		ev = r.moveTo(r.section-1, len(r.words[r.section-1]))
	default:
		r.mu.Unlock()
		return ErrStartOfBook
	}
	r.mu.Unlock()

	ev.emit()
	return nil
}

// TableOfContents lists the book's sections.
func (r *Renderer) TableOfContents(context.Context) ([]session.Chapter, error) {
	chapters := make([]session.Chapter, 0, len(r.book.Sections))
	for _, s := range r.book.Sections {
		chapters = append(chapters, session.Chapter{Label: s.Label, Href: s.Href})
	}
	return chapters, nil
}

// reflow re-paginates around the current page start. Nothing is relocated
// before the first Display. Callers hold r.mu.
func (r *Renderer) reflow() event {
	ev := event{listener: r.listener}
	r.start = r.align(r.start)
	if r.shown {
		ev.relocated = r.position()
	}
	return ev
}

// SetViewport resizes the page area. Pages wider than SpreadColumns are laid
// out as spreads.
func (r *Renderer) SetViewport(columns, rows int) error {
	if columns < 1 || rows < 1 {
		return fmt.Errorf("invalid viewport %dx%d", columns, rows)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.columns, r.rows = columns, rows
	ev := r.reflow()
	ev.resized = true
	spread := columns >= SpreadColumns
	ev.layout = &spread
	r.mu.Unlock()

	ev.emit()
	return nil
}

// SetFontSize reflows the text at percent of the base size.
func (r *Renderer) SetFontSize(percent int) error {
	if percent <= 0 {
		return fmt.Errorf("invalid font size %d", percent)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.fontSize = percent
	ev := r.reflow()
	r.mu.Unlock()

	ev.emit()
	return nil
}

// Scale returns the zoom factor.
func (r *Renderer) Scale() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scale
}

// SetScale zooms the page, which reflows it.
func (r *Renderer) SetScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("invalid scale %v", scale)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.scale = scale
	ev := r.reflow()
	r.mu.Unlock()

	ev.emit()
	return nil
}

// Location describes the current page.
type Location struct {
	Position history.Position
	Label    string
	Page     int
	Pages    int
}

// Location returns where the renderer is.
func (r *Renderer) Location() Location {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.capacity()
	pages := (len(r.words[r.section]) + c - 1) / c
	if pages == 0 {
		pages = 1
	}
	return Location{
		Position: r.position(),
		Label:    r.book.Sections[r.section].Label,
		Page:     r.start/c + 1,
		Pages:    pages,
	}
}

// Page returns the text of the current page.
func (r *Renderer) Page() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	words := r.words[r.section]
	end := r.start + r.capacity()
	if end > len(words) {
		end = len(words)
	}
	if r.start >= end {
		return ""
	}
	return strings.Join(words[r.start:end], " ")
}

// Close releases the renderer. Further calls fail with ErrClosed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.listener = nil
	return nil
}
