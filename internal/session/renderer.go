package session

import (
	"context"

	"github.com/mrlokans/reader/internal/history"
)

// Chapter is a table-of-contents entry.
type Chapter struct {
	Label string
	Href  string
}

// Renderer is the document rendering engine a session drives. Display with
// an empty position shows the document's default entry. Renderers report
// what happened through a Listener, possibly synchronously from inside
// these calls.
type Renderer interface {
	Display(ctx context.Context, pos history.Position) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	TableOfContents(ctx context.Context) ([]Chapter, error)
	Close() error
}

// FontSizer is implemented by renderers with adjustable text size.
type FontSizer interface {
	SetFontSize(percent int) error
}

// Scaler is implemented by renderers with a zoom factor, such as PDF
// viewers.
type Scaler interface {
	Scale() float64
	SetScale(scale float64) error
}

// Directional is implemented by renderers that know the page progression
// of the document.
type Directional interface {
	RightToLeft() bool
}

// Listener receives renderer events. *Controller implements it.
type Listener interface {
	OnRelocated(pos history.Position)
	OnRendered(href string)
	OnLayout(spread bool)
	OnResized()
}
