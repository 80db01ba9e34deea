package pdfutil

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
)

// ExcerptRunes bounds the text excerpt stored with a document's metadata.
const ExcerptRunes = 280

// Summary is what the worker records about a processed PDF.
type Summary struct {
	Pages      int    `json:"pages"`
	Characters int    `json:"characters"`
	Excerpt    string `json:"excerpt,omitempty"`
}

// Summarize reads PDF bytes and reports page count, text length and a short
// leading excerpt.
func Summarize(data []byte) (Summary, error) {
	text, pages, err := extract(data)
	if err != nil {
		return Summary{}, err
	}
	clean := strings.Join(strings.Fields(text), " ")
	return Summary{
		Pages:      pages,
		Characters: utf8.RuneCountInString(clean),
		Excerpt:    excerpt(clean, ExcerptRunes),
	}, nil
}

// ExtractText reads PDF bytes and returns plain text using ledongthuc/pdf.
func ExtractText(data []byte) (string, error) {
	text, _, err := extract(data)
	return text, err
}

// extract converts parser panics on malformed files into errors.
func extract(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), total, nil
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
