package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// pdfBuilder assembles a minimal classic-xref PDF, tracking byte offsets
// as objects are appended so the cross-reference table is always exact.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets []int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{}
	b.buf.WriteString("%PDF-1.4\n")
	return b
}

// addObject appends an indirect object and returns its number. Numbers are
// assigned sequentially starting at 1.
func (b *pdfBuilder) addObject(body string) int {
	num := len(b.offsets) + 1
	b.offsets = append(b.offsets, b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return num
}

func (b *pdfBuilder) addStream(data string) int {
	return b.addObject(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data))
}

func (b *pdfBuilder) finish(trailerExtra string) []byte {
	start := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets)+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for _, off := range b.offsets {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.offsets)+1, trailerExtra, start)
	return b.buf.Bytes()
}

// multiPagePDF builds one page per entry; an empty entry produces a page
// with an empty content stream.
func multiPagePDF(pageTexts []string) []byte {
	b := newPDFBuilder()
	n := len(pageTexts)

	// Fixed numbering: 1 catalog, 2 page tree, 3..2+n pages, 3+n font,
	// then one content stream per page.
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	b.addObject("<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	fontNum := 3 + n
	for i := range pageTexts {
		b.addObject(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontNum, fontNum+1+i))
	}
	b.addObject("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for _, text := range pageTexts {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf (%s) Tj ET", text)
		}
		b.addStream(content)
	}
	return b.finish("/Root 1 0 R")
}

// encryptedPDF builds a document whose standard security handler carries
// owner/user keys that no empty-password attempt can satisfy.
func encryptedPDF() []byte {
	b := newPDFBuilder()
	b.addObject("<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject("<< /Type /Pages /Kids [] /Count 0 >>")
	o := strings.Repeat("00112233", 8)
	u := strings.Repeat("44556677", 8)
	b.addObject(fmt.Sprintf("<< /Filter /Standard /V 1 /R 2 /Length 40 /O <%s> /U <%s> /P -1 >>", o, u))
	id := strings.Repeat("8899aabb", 4)
	return b.finish(fmt.Sprintf("/Root 1 0 R /Encrypt 3 0 R /ID [<%s> <%s>]", id, id))
}

func TestExtract_RejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("<html><body>surprise</body></html>")},
		{"truncated header", []byte("%PDF-1.7\n")},
		{"binary noise", []byte{0x00, 0x01, 0x02, 0xff, 0xfe}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.data)
			if err == nil {
				t.Fatal("expected error for invalid PDF input")
			}
		})
	}
}

func TestExtract_MalformedDoesNotPanic(t *testing.T) {
	// A plausible-looking header with a corrupt xref table makes the
	// parser panic internally; Extract must turn that into an error.
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nxref\n0 1\ngarbage\ntrailer\n<< >>\nstartxref\n9999\n%%EOF")

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Extract panicked: %v", r)
		}
	}()

	if _, err := Extract(data); err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
}

func TestExtract_JoinsPagesInOrder(t *testing.T) {
	text, err := Extract(multiPagePDF([]string{"First page text.", "Second page text.", "Third page text."}))
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	want := "First page text.\n\nSecond page text.\n\nThird page text."
	if text != want {
		t.Errorf("Extract() = %q, want %q", text, want)
	}
}

func TestExtract_SkipsEmptyPage(t *testing.T) {
	// Page two has no text; the surviving pages stay in document order
	// and are joined by a single blank line, with no padding for the gap.
	text, err := Extract(multiPagePDF([]string{"First page text.", "", "Third page text."}))
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	want := "First page text.\n\nThird page text."
	if text != want {
		t.Errorf("Extract() = %q, want %q", text, want)
	}
}

func TestExtract_EncryptedReturnsTypedError(t *testing.T) {
	_, err := Extract(encryptedPDF())
	if err == nil {
		t.Fatal("expected error for password-protected PDF")
	}
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("Extract() error = %v, want ErrEncrypted", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses newline runs", "page one\n\n\n\npage two", "page one\n\npage two"},
		{"strips nul bytes", "a\x00b\x00c", "abc"},
		{"trims edges", "  \n\ntext\n\n  ", "text"},
		{"preserves blank line page separator", "one\n\ntwo", "one\n\ntwo"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalize(tc.in); got != tc.want {
				t.Errorf("normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "one\n\n\ntwo\x00\n\n\n\nthree"
	once := normalize(in)
	twice := normalize(once)
	if once != twice {
		t.Errorf("normalize not idempotent: %q vs %q", once, twice)
	}
	if strings.Contains(once, "\x00") {
		t.Error("NUL bytes should be stripped")
	}
}
