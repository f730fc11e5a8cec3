package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"etiquetas/internal"
)

// ErrUnsupportedFormat means the upload is not one of the accepted report kinds.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// cellGap separates table cells so the extractor sees them as columns.
const cellGap = "    "

var kindByExt = map[string]internal.ReportKind{
	".txt":  internal.KindText,
	".pdf":  internal.KindPDF,
	".html": internal.KindHTML,
	".htm":  internal.KindHTML,
	".eml":  internal.KindEmail,
}

// AcceptedExtension reports whether filename carries an accepted extension.
func AcceptedExtension(filename string) bool {
	_, ok := kindByExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// DetectKind picks the report kind from the file extension, falling back to
// content sniffing.
func DetectKind(filename string, blob []byte) (internal.ReportKind, error) {
	if kind, ok := kindByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return kind, nil
	}

	head := bytes.ToLower(bytes.TrimSpace(blob[:min(len(blob), 512)]))
	switch {
	case bytes.HasPrefix(head, []byte("%pdf-")):
		return internal.KindPDF, nil
	case bytes.HasPrefix(head, []byte("<!doctype html")), bytes.HasPrefix(head, []byte("<html")):
		return internal.KindHTML, nil
	case bytes.Contains(head, []byte("mime-version:")):
		return internal.KindEmail, nil
	}
	if filepath.Ext(filename) == "" {
		return internal.KindText, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

// ReportText returns the report content of blob as raw text bytes, ready for
// Parser.Parse.
func ReportText(kind internal.ReportKind, blob []byte) ([]byte, error) {
	switch kind {
	case internal.KindText:
		return blob, nil
	case internal.KindPDF:
		return pdfText(blob)
	case internal.KindHTML:
		return htmlText(blob)
	case internal.KindEmail:
		return emailReport(blob)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}
}

func pdfText(content []byte) (out []byte, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: pdf: %v", ErrUnreadableInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: pdf: %v", ErrUnreadableInput, err)
	}

	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return nil, fmt.Errorf("%w: pdf has no text layer", ErrUnreadableInput)
	}
	return buf.Bytes(), nil
}

// htmlText flattens an HTML export. Table rows become lines with their cells
// separated by a column gap; documents without tables fall back to the body
// text.
func htmlText(content []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: html: %v", ErrUnreadableInput, err)
	}

	var lines []string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			if text := strings.Join(strings.Fields(cell.Text()), " "); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, cellGap))
		}
	})
	if len(lines) == 0 {
		doc.Find("br").ReplaceWithHtml("\n")
		doc.Find("p,div,li,h1,h2,h3").Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})
		return []byte(doc.Find("body").Text()), nil
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// emailReport looks for the report in a message: text attachments first,
// then PDF and HTML attachments, then the bodies.
func emailReport(raw []byte) ([]byte, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: email: %v", ErrUnreadableInput, err)
	}

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	candidates := make([][]byte, 0, len(parts)+2)
	for _, want := range []internal.ReportKind{internal.KindText, internal.KindPDF, internal.KindHTML} {
		for _, part := range parts {
			if attachmentKind(part) != want {
				continue
			}
			text, err := ReportText(want, part.Content)
			if err != nil {
				continue
			}
			candidates = append(candidates, text)
		}
	}
	if strings.TrimSpace(env.Text) != "" {
		candidates = append(candidates, []byte(env.Text))
	}
	if strings.TrimSpace(env.HTML) != "" {
		if text, err := htmlText([]byte(env.HTML)); err == nil {
			candidates = append(candidates, text)
		}
	}

	for _, c := range candidates {
		text, err := DecodeReport(c)
		if err != nil {
			continue
		}
		if DetectReport(text).IsReport {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no diagnostic report in message", ErrUnreadableInput)
}

func attachmentKind(part *enmime.Part) internal.ReportKind {
	if kind, ok := kindByExt[strings.ToLower(filepath.Ext(part.FileName))]; ok && kind != internal.KindEmail {
		return kind
	}
	switch strings.ToLower(part.ContentType) {
	case "text/plain":
		return internal.KindText
	case "application/pdf":
		return internal.KindPDF
	case "text/html":
		return internal.KindHTML
	}
	return ""
}
