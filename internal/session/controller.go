// Package session binds a renderer to a document's position store.
//
// A Controller restores the saved position when a document opens, feeds
// user navigation into the store and keeps programmatic jumps (the initial
// restore, reflow after a resize or a font change) from being written back
// as if the reader had moved.
//
// # Usage
//
//	ctrl := session.New(renderer, store, session.Options{EnableFontControl: true})
//	defer ctrl.Close()
//	// renderer events go to ctrl (it is a session.Listener)
//	if err := ctrl.Start(ctx); err != nil { ... }
//	ctrl.Next()
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/reader/internal/debounce"
	"github.com/mrlokans/reader/internal/dictionary"
	"github.com/mrlokans/reader/internal/history"
	"github.com/mrlokans/reader/internal/notify"
	"github.com/mrlokans/reader/internal/preferences"
)

const (
	DefaultResizeQuiet   = 500 * time.Millisecond
	DefaultFontInputWait = 250 * time.Millisecond
	DefaultLookupWait    = time.Second
)

var (
	ErrFontControlDisabled = errors.New("font control disabled")
	ErrZoomUnsupported     = errors.New("renderer does not support zoom")
	ErrClosed              = errors.New("session closed")
	ErrNotReady            = errors.New("session is still loading")
)

// State is the lifecycle state of a session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateNavigating
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateNavigating:
		return "NAVIGATING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Key is a navigation key.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
)

// Options configures a Controller.
type Options struct {
	EnableDictionary  bool
	EnableFontControl bool

	Preferences *preferences.Preferences
	Dictionary  dictionary.Client
	Notifier    notify.Notifier

	ResizeQuiet   time.Duration
	FontInputWait time.Duration
	LookupWait    time.Duration

	// OnLookup is called with the cleaned selection after a successful
	// dictionary lookup.
	OnLookup func(text string, pager *dictionary.Pager)
}

func (o Options) withDefaults() Options {
	if o.ResizeQuiet <= 0 {
		o.ResizeQuiet = DefaultResizeQuiet
	}
	if o.FontInputWait <= 0 {
		o.FontInputWait = DefaultFontInputWait
	}
	if o.LookupWait <= 0 {
		o.LookupWait = DefaultLookupWait
	}
	if o.Notifier == nil {
		o.Notifier = notify.Discard
	}
	return o
}

// Controller is one reading session over one document.
type Controller struct {
	id       string
	renderer Renderer
	store    *history.Store
	opts     Options

	resize *debounce.Debouncer[struct{}]
	font   *debounce.Debouncer[int]
	lookup *debounce.Debouncer[string]
	pager  *dictionary.Pager

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	loaded      bool
	restored    bool
	pageChanged bool
	resizing    bool
	resizeGen   uint64
	closed      bool
	chapters    []Chapter
	chapter     string
	spread      bool
	fullScreen  bool
	fontSize    int
}

// New creates a session. store may be nil when synchronization is disabled.
func New(renderer Renderer, store *history.Store, opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:       uuid.NewString(),
		renderer: renderer,
		store:    store,
		opts:     opts.withDefaults(),
		pager:    &dictionary.Pager{},
		ctx:      ctx,
		cancel:   cancel,
		state:    StateLoading,
	}
	c.resize = debounce.New(c.opts.ResizeQuiet, c.settle)
	c.font = debounce.New(c.opts.FontInputWait, c.applyFontInput)
	c.lookup = debounce.New(c.opts.LookupWait, c.define)
	return c
}

// ID returns the session identifier used in logs.
func (c *Controller) ID() string {
	return c.id
}

// Start opens the document: the saved font size is applied, the default
// entry is displayed and, when synchronization is enabled, the saved
// position is fetched and displayed. A failed restore leaves the reader on
// the default entry; the store has already notified the user. Navigation,
// font and resize re-displays wait until Start has finished restoring.
func (c *Controller) Start(ctx context.Context) error {
	if c.opts.EnableFontControl {
		if size, ok := c.opts.Preferences.FontSize(); ok {
			if err := c.applyFontSize(size); err != nil {
				c.logf("Restoring font size %d%% failed: %v", size, err)
			}
		}
	}

	chapters, err := c.renderer.TableOfContents(ctx)
	if err != nil {
		c.logf("Table of contents unavailable: %v", err)
	}
	c.mu.Lock()
	c.chapters = chapters
	c.mu.Unlock()

	if err := c.renderer.Display(ctx, ""); err != nil {
		return fmt.Errorf("display default entry: %w", err)
	}

	if c.store == nil {
		c.logf("Started without position sync")
		c.markRestored()
		return nil
	}

	pos, err := c.store.Get(ctx)
	if err != nil {
		c.logf("Position not restored for %s: %v", c.store.DocumentID(), err)
		c.markRestored()
		return nil
	}

	if err := c.renderer.Display(ctx, pos); err != nil {
		return fmt.Errorf("display restored position: %w", err)
	}
	c.logf("Started at %s", pos)
	c.markRestored()
	return nil
}

func (c *Controller) markRestored() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restored = true
	if c.loaded && c.state == StateLoading {
		c.state = StateReady
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnRelocated handles the renderer's relocation event. The first one after
// load confirms the load and is never written back. Later ones reach the
// store only when a user navigation caused them and no resize is settling.
// The session stays LOADING until the saved position has been restored.
func (c *Controller) OnRelocated(pos history.Position) {
	c.mu.Lock()
	if !c.loaded {
		c.loaded = true
		c.pageChanged = false
		if c.restored {
			c.state = StateReady
		}
		c.mu.Unlock()
		return
	}

	write := c.pageChanged && !c.resizing
	if c.pageChanged {
		c.pageChanged = false
		c.state = StateReady
	}
	c.mu.Unlock()

	if write {
		c.store.Update(pos)
	}
}

// navigate flags the next relocation as user-caused before running move.
func (c *Controller) navigate(move func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.restored {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.pageChanged = true
	if c.loaded {
		c.state = StateNavigating
	}
	c.mu.Unlock()

	if err := move(c.ctx); err != nil {
		c.mu.Lock()
		c.pageChanged = false
		if c.state == StateNavigating {
			c.state = StateReady
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Next turns to the following page.
func (c *Controller) Next() error {
	return c.navigate(c.renderer.Next)
}

// Prev turns to the previous page.
func (c *Controller) Prev() error {
	return c.navigate(c.renderer.Prev)
}

// SelectChapter jumps to a table-of-contents entry.
func (c *Controller) SelectChapter(href string) error {
	return c.navigate(func(ctx context.Context) error {
		return c.renderer.Display(ctx, history.Position(href))
	})
}

// Chapters returns the table of contents loaded by Start.
func (c *Controller) Chapters() []Chapter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Chapter(nil), c.chapters...)
}

// HandleKey turns pages with the arrow keys. Right-to-left documents swap
// the directions.
func (c *Controller) HandleKey(key Key) error {
	forward := key == KeyRight
	if d, ok := c.renderer.(Directional); ok && d.RightToLeft() {
		forward = !forward
	}
	if forward {
		return c.Next()
	}
	return c.Prev()
}

// HandleClick maps a click inside a width x height viewport to an action:
// the top fifth toggles full screen, the left 15% goes back and the rest
// goes forward.
func (c *Controller) HandleClick(x, y, width, height float64) error {
	switch {
	case y <= 0.2*height:
		c.mu.Lock()
		c.fullScreen = !c.fullScreen
		c.mu.Unlock()
		return nil
	case x > 0.15*width:
		return c.Next()
	default:
		return c.Prev()
	}
}

// FullScreen reports whether the reader chrome is hidden.
func (c *Controller) FullScreen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullScreen
}

// OnResized starts or extends the resize quiet period. Relocations during
// it are reflow noise and never reach the store.
func (c *Controller) OnResized() {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resizing = true
	c.resizeGen++
	c.mu.Unlock()

	c.resize.Call(struct{}{})
}

// settle runs once the viewport stopped changing and puts the reader back
// on the stored position. A resize that arrives while the re-display runs
// keeps the quiet period going; its own settle ends it.
func (c *Controller) settle(struct{}) {
	c.mu.Lock()
	gen := c.resizeGen
	redisplay := c.restored && !c.closed
	c.mu.Unlock()

	if redisplay {
		pos := c.store.CurrentPosition()
		if err := c.renderer.Display(c.ctx, pos); err != nil {
			c.logf("Re-display after resize failed: %v", err)
		}
	}

	c.mu.Lock()
	if c.resizeGen == gen {
		c.resizing = false
	}
	c.mu.Unlock()
}

// Resizing reports whether a resize quiet period is in progress.
func (c *Controller) Resizing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resizing
}

// OnRendered tracks the table-of-contents entry of the rendered section.
func (c *Controller) OnRendered(href string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	section := stripFragment(href)
	for _, ch := range c.chapters {
		if stripFragment(ch.Href) == section {
			c.chapter = ch.Href
			return
		}
	}
}

// CurrentChapter returns the href of the selected table-of-contents entry.
func (c *Controller) CurrentChapter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chapter
}

// OnLayout tracks whether pages are shown as a two-page spread.
func (c *Controller) OnLayout(spread bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spread = spread
}

// Spread reports whether the last layout was a two-page spread.
func (c *Controller) Spread() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spread
}

// FontInput takes raw font slider input. Bursts collapse into a single
// SetFontSize with the last value.
func (c *Controller) FontInput(percent int) {
	if !c.opts.EnableFontControl {
		return
	}
	c.font.Call(percent)
}

func (c *Controller) applyFontInput(percent int) {
	if err := c.SetFontSize(percent); err != nil {
		c.logf("Font size %d%% ignored: %v", percent, err)
	}
}

// SetFontSize applies and persists a font size between 50 and 200 percent.
// Out-of-range values are rejected and the previous size stays in effect.
// Once the saved position has been restored it is displayed again, since
// the reflow moves the page under the reader.
func (c *Controller) SetFontSize(percent int) error {
	if !c.opts.EnableFontControl {
		return ErrFontControlDisabled
	}
	if err := c.applyFontSize(percent); err != nil {
		return err
	}
	if err := c.opts.Preferences.SetFontSize(percent); err != nil {
		c.logf("Saving font size failed: %v", err)
	}

	c.mu.Lock()
	redisplay := c.restored && c.store != nil && !c.closed
	c.mu.Unlock()

	if redisplay {
		return c.renderer.Display(c.ctx, c.store.CurrentPosition())
	}
	return nil
}

func (c *Controller) applyFontSize(percent int) error {
	if !preferences.ValidFontSize(percent) {
		return preferences.ErrFontSizeOutOfRange
	}
	if fs, ok := c.renderer.(FontSizer); ok {
		if err := fs.SetFontSize(percent); err != nil {
			return fmt.Errorf("set font size: %w", err)
		}
	}

	c.mu.Lock()
	c.fontSize = percent
	c.mu.Unlock()
	return nil
}

// FontSize returns the applied font size, or 0 before one was set.
func (c *Controller) FontSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fontSize
}

// Select takes the reader's text selection. With the dictionary enabled a
// lookup runs once the selection has been stable for LookupWait.
func (c *Controller) Select(text string) {
	if !c.opts.EnableDictionary || c.opts.Dictionary == nil {
		return
	}
	c.lookup.Call(text)
}

func (c *Controller) define(text string) {
	text = dictionary.CleanSelection(text)
	if text == "" {
		return
	}

	groups, err := c.opts.Dictionary.Lookup(c.ctx, text)
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		c.logf("Lookup of %q via %s failed: %v", text, c.opts.Dictionary.Name(), err)
		c.opts.Notifier.Notify(notify.Notice{
			Kind:    notify.Transient,
			Message: "dictionary lookup failed. message: " + err.Error(),
		})
		return
	}

	c.pager.Reset(groups)
	if c.opts.OnLookup != nil {
		c.opts.OnLookup(text, c.pager)
	}
}

// Definitions returns the pager over the last lookup result.
func (c *Controller) Definitions() *dictionary.Pager {
	return c.pager
}

// ZoomIn enlarges a scalable renderer by ticks steps and returns the new
// scale.
func (c *Controller) ZoomIn(ticks int) (float64, error) {
	return c.zoom(ticks, ZoomInScale)
}

// ZoomOut shrinks a scalable renderer by ticks steps and returns the new
// scale.
func (c *Controller) ZoomOut(ticks int) (float64, error) {
	return c.zoom(ticks, ZoomOutScale)
}

func (c *Controller) zoom(ticks int, step func(float64, int) float64) (float64, error) {
	s, ok := c.renderer.(Scaler)
	if !ok {
		return 0, ErrZoomUnsupported
	}
	scale := step(s.Scale(), ticks)
	if err := s.SetScale(scale); err != nil {
		return 0, fmt.Errorf("set scale: %w", err)
	}
	return scale, nil
}

// Close ends the session. Pending debounced work is dropped and nothing is
// flushed to the server.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.resize.Stop()
	c.font.Stop()
	c.lookup.Stop()
	c.cancel()
	c.store.Close()

	c.logf("Closed")
	return c.renderer.Close()
}

func (c *Controller) logf(format string, args ...any) {
	log.Printf("[SESSION] %s "+format, append([]any{c.id[:8]}, args...)...)
}

func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
