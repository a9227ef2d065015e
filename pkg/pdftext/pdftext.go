// Package pdftext extracts linear text from PDF bytes. Layout and
// structure are not preserved; pages are concatenated in document order.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pranavnbapat/pagesense/internal/logger"
	"github.com/pranavnbapat/pagesense/pkg/cleaner"
)

var (
	// ErrEncrypted means the document could not be opened with an empty
	// password and a real one is required.
	ErrEncrypted = errors.New("encrypted PDF: cannot extract text without password")
	// ErrNoText means no page yielded text, which usually indicates a
	// scanned, image-only document.
	ErrNoText = errors.New("no extractable text: likely scanned (image-only) PDF")
	// ErrMalformed means the bytes could not be parsed as a PDF at all.
	ErrMalformed = errors.New("malformed PDF")
)

// Extract returns the text of all pages joined by blank lines. Pages with
// no text (image-only) are skipped, not zero-padded.
func Extract(data []byte) (text string, err error) {
	// The underlying parser panics on malformed cross-reference tables
	// and similar corruption; keep that inside this package boundary.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), emptyPassword)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", ErrEncrypted
		}
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("skipping unreadable PDF page", "page", pageNum, "error", err)
			continue
		}

		pageText = strings.TrimSpace(pageText)
		if pageText != "" {
			pages = append(pages, pageText)
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}

	return normalize(strings.Join(pages, "\n\n")), nil
}

// emptyPassword makes the reader try exactly one decryption attempt with
// the empty password.
func emptyPassword() string { return "" }

// normalize collapses newline runs, strips NULs, and trims the result.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return cleaner.CollapseNewlines(text)
}
