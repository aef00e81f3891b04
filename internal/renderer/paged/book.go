package paged

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Section is one spine item of a book.
type Section struct {
	Label string
	Href  string
	Text  string
}

// Book is a plain-text document split into sections.
type Book struct {
	Title       string
	RightToLeft bool
	Sections    []Section
}

// ParseText reads a plain-text book. Lines starting with "# " open a new
// section labelled with the rest of the line; text before the first heading
// becomes a section labelled with the title.
func ParseText(title string, r io.Reader) (*Book, error) {
	book := &Book{Title: title}

	var (
		label string
		body  strings.Builder
		open  bool
	)
	flush := func() {
		if !open && strings.TrimSpace(body.String()) == "" {
			return
		}
		if label == "" {
			label = title
		}
		book.Sections = append(book.Sections, Section{
			Label: label,
			Href:  fmt.Sprintf("section-%d.xhtml", len(book.Sections)+1),
			Text:  strings.TrimSpace(body.String()),
		})
		body.Reset()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "# ") {
			flush()
			label = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			open = true
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read book: %w", err)
	}
	flush()

	if len(book.Sections) == 0 {
		return nil, fmt.Errorf("book %q has no text", title)
	}
	return book, nil
}
