package dictionary

import "sync"

// Pager pages through the meanings of a lookup result one at a time.
// The zero value is an empty pager.
type Pager struct {
	mu       sync.Mutex
	meanings []Meaning
	index    int
}

// NewPager flattens groups into a pager positioned on the first meaning.
func NewPager(groups []Group) *Pager {
	p := &Pager{}
	p.Reset(groups)
	return p
}

// Reset replaces the pager contents and rewinds it.
func (p *Pager) Reset(groups []Group) {
	var meanings []Meaning
	for _, g := range groups {
		meanings = append(meanings, g.Meanings...)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.meanings = meanings
	p.index = 0
}

// Current returns the meaning under the cursor.
func (p *Pager) Current() (Meaning, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.meanings) == 0 {
		return Meaning{}, false
	}
	return p.meanings[p.index], true
}

// Next advances to the following meaning. It reports false at the end.
func (p *Pager) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index+1 >= len(p.meanings) {
		return false
	}
	p.index++
	return true
}

// Prev moves back one meaning. It reports false at the start.
func (p *Pager) Prev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index == 0 {
		return false
	}
	p.index--
	return true
}

// Index returns the cursor position.
func (p *Pager) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Len returns the number of meanings.
func (p *Pager) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.meanings)
}
