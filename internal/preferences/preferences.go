package preferences

import (
	"errors"
	"fmt"
	"log"
	"strconv"
)

const (
	KeyFontSize = "font-size"

	MinFontSize = 50
	MaxFontSize = 200
)

// ErrFontSizeOutOfRange is returned for sizes outside MinFontSize..MaxFontSize.
var ErrFontSizeOutOfRange = fmt.Errorf("font size must be between %d and %d percent", MinFontSize, MaxFontSize)

// ValidFontSize reports whether percent is an accepted font size.
func ValidFontSize(percent int) bool {
	return percent >= MinFontSize && percent <= MaxFontSize
}

// Preferences gives typed access to a Store.
type Preferences struct {
	store Store
}

// New wraps store.
func New(store Store) *Preferences {
	return &Preferences{store: store}
}

// FontSize returns the stored font size. Missing, unparsable or out of
// range values report false.
func (p *Preferences) FontSize() (int, bool) {
	if p == nil || p.store == nil {
		return 0, false
	}

	raw, err := p.store.Get(KeyFontSize)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[PREFERENCES] Failed to read %s: %v", KeyFontSize, err)
		}
		return 0, false
	}

	size, err := strconv.Atoi(raw)
	if err != nil || !ValidFontSize(size) {
		return 0, false
	}
	return size, true
}

// SetFontSize stores percent. Out of range values are rejected and the
// previous value is kept.
func (p *Preferences) SetFontSize(percent int) error {
	if !ValidFontSize(percent) {
		return ErrFontSizeOutOfRange
	}
	if p == nil || p.store == nil {
		return nil
	}
	return p.store.Set(KeyFontSize, strconv.Itoa(percent))
}
