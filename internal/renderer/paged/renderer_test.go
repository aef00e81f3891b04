package paged

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/reader/internal/gateway"
	"github.com/mrlokans/reader/internal/history"
	"github.com/mrlokans/reader/internal/historytest"
	"github.com/mrlokans/reader/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnRelocated(pos history.Position) { r.add("relocated:" + string(pos)) }
func (r *recorder) OnRendered(href string)           { r.add("rendered:" + href) }
func (r *recorder) OnLayout(spread bool)             { r.add(fmt.Sprintf("layout:%v", spread)) }
func (r *recorder) OnResized()                       { r.add("resized") }

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events
	r.events = nil
	return e
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func testBook() *Book {
	return &Book{
		Title: "Test",
		Sections: []Section{
			{Label: "One", Href: "section-1.xhtml", Text: words(1000)},
			{Label: "Two", Href: "section-2.xhtml", Text: words(100)},
		},
	}
}

func TestParseText(t *testing.T) {
	input := "Preface text.\n\n# Chapter 1\nCall me Ishmael.\n# Chapter 2\nIt was a dark night.\n"

	book, err := ParseText("Moby", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, book.Sections, 3)

	assert.Equal(t, "Moby", book.Sections[0].Label)
	assert.Equal(t, "Preface text.", book.Sections[0].Text)
	assert.Equal(t, "Chapter 1", book.Sections[1].Label)
	assert.Equal(t, "section-2.xhtml", book.Sections[1].Href)
	assert.Equal(t, "It was a dark night.", book.Sections[2].Text)
}

func TestParseText_NoPreface(t *testing.T) {
	book, err := ParseText("Moby", strings.NewReader("# Only\ntext"))
	require.NoError(t, err)
	require.Len(t, book.Sections, 1)
	assert.Equal(t, "section-1.xhtml", book.Sections[0].Href)
}

func TestParseText_Empty(t *testing.T) {
	_, err := ParseText("Empty", strings.NewReader("\n\n"))
	assert.Error(t, err)
}

func TestRenderer_Paging(t *testing.T) {
	ctx := context.Background()
	r := New(testBook())
	rec := &recorder{}
	r.SetListener(rec)

	require.NoError(t, r.Display(ctx, ""))
	assert.Equal(t, []string{"rendered:section-1.xhtml", "relocated:section-1.xhtml#w0"}, rec.take())
	assert.Equal(t, Location{Position: "section-1.xhtml#w0", Label: "One", Page: 1, Pages: 4}, r.Location())
	assert.True(t, strings.HasPrefix(r.Page(), "w0 w1"))

	require.NoError(t, r.Next(ctx))
	assert.Equal(t, []string{"relocated:section-1.xhtml#w312"}, rec.take())

	require.NoError(t, r.Next(ctx))
	require.NoError(t, r.Next(ctx))
	rec.take()
	require.NoError(t, r.Next(ctx))
	assert.Equal(t, []string{"rendered:section-2.xhtml", "relocated:section-2.xhtml#w0"}, rec.take())

	assert.ErrorIs(t, r.Next(ctx), ErrEndOfBook)
	assert.Empty(t, rec.take())

	require.NoError(t, r.Prev(ctx))
	assert.Equal(t, []string{"rendered:section-1.xhtml", "relocated:section-1.xhtml#w936"}, rec.take())

	require.NoError(t, r.Display(ctx, "section-1.xhtml#w0"))
	assert.ErrorIs(t, r.Prev(ctx), ErrStartOfBook)
}

func TestRenderer_DisplayResolves(t *testing.T) {
	ctx := context.Background()
	r := New(testBook())

	require.NoError(t, r.Display(ctx, "section-1.xhtml#w700"))
	assert.Equal(t, history.Position("section-1.xhtml#w624"), r.Location().Position)

	require.NoError(t, r.Display(ctx, "section-2.xhtml"))
	assert.Equal(t, history.Position("section-2.xhtml#w0"), r.Location().Position)

	require.NoError(t, r.Display(ctx, "section-1.xhtml#w99999"))
	assert.Equal(t, history.Position("section-1.xhtml#w936"), r.Location().Position)

	require.NoError(t, r.Display(ctx, "missing.xhtml#w5"))
	assert.Equal(t, history.Position("section-1.xhtml#w0"), r.Location().Position)
}

func TestRenderer_Reflow(t *testing.T) {
	ctx := context.Background()
	r := New(testBook())
	rec := &recorder{}
	r.SetListener(rec)

	// No relocation before anything is shown.
	require.NoError(t, r.SetFontSize(150))
	assert.Empty(t, rec.take())
	require.NoError(t, r.SetFontSize(100))

	require.NoError(t, r.Display(ctx, "section-1.xhtml#w624"))
	rec.take()

	require.NoError(t, r.SetFontSize(200))
	assert.Equal(t, []string{"relocated:section-1.xhtml#w576"}, rec.take())

	require.NoError(t, r.SetViewport(160, 24))
	assert.Equal(t, []string{"resized", "layout:true", "relocated:section-1.xhtml#w312"}, rec.take())

	require.NoError(t, r.SetScale(2))
	assert.InDelta(t, 2.0, r.Scale(), 1e-9)
	assert.NotEmpty(t, rec.take())

	assert.Error(t, r.SetFontSize(0))
	assert.Error(t, r.SetViewport(0, 10))
	assert.Error(t, r.SetScale(-1))
}

func TestRenderer_Close(t *testing.T) {
	r := New(testBook())
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Display(context.Background(), ""), ErrClosed)
	assert.ErrorIs(t, r.Next(context.Background()), ErrClosed)
}

func TestRenderer_TableOfContents(t *testing.T) {
	chapters, err := New(testBook()).TableOfContents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []session.Chapter{
		{Label: "One", Href: "section-1.xhtml"},
		{Label: "Two", Href: "section-2.xhtml"},
	}, chapters)
}

type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// A resize reflows the text, but the reader lands back on the stored
// position and nothing from the reflow is saved.
func TestRenderer_SessionResize(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()
	srv.Seed("moby", "section-1.xhtml#w624", 3)

	store := history.New("moby", gateway.New(srv.URL()), nil, history.Config{
		Schedule:   every(30 * time.Millisecond),
		UpdateWait: 10 * time.Millisecond,
	})
	r := New(testBook())
	ctrl := session.New(r, store, session.Options{ResizeQuiet: 40 * time.Millisecond})
	r.SetListener(ctrl)
	defer ctrl.Close()

	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, history.Position("section-1.xhtml#w624"), r.Location().Position)

	require.NoError(t, r.SetViewport(40, 10))
	require.NoError(t, r.SetViewport(60, 12))

	assert.Eventually(t, func() bool { return !ctrl.Resizing() }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, history.Position("section-1.xhtml#w624"), store.CurrentPosition())
	assert.Empty(t, srv.Sets())
	assert.Equal(t, "section-1.xhtml", ctrl.CurrentChapter())

	require.NoError(t, ctrl.Next())
	want := r.Location().Position
	assert.Eventually(t, func() bool {
		data, _, _ := srv.Position("moby")
		return data == string(want)
	}, time.Second, 5*time.Millisecond)
}
