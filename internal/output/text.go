package output

import (
	"bufio"
	"fmt"
	"io"
)

// Texter is implemented by results that carry extracted page text. The
// text writer prints it verbatim instead of a struct dump.
type Texter interface {
	PageText() string
}

// TextWriter writes plain extracted text. Multiple results are separated
// by a rule so concatenated pages stay distinguishable.
type TextWriter struct {
	w     *bufio.Writer
	wrote bool
}

// NewTextWriter creates a plain-text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// Write writes one result followed by a newline.
func (w *TextWriter) Write(data any) error {
	if w.wrote {
		if _, err := w.w.WriteString("\n---\n\n"); err != nil {
			return err
		}
	}
	w.wrote = true

	var text string
	switch v := data.(type) {
	case Texter:
		text = v.PageText()
	case string:
		text = v
	default:
		text = fmt.Sprintf("%v", v)
	}

	if _, err := w.w.WriteString(text); err != nil {
		return err
	}
	_, err := w.w.WriteString("\n")
	return err
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}
