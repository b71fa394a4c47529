package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements end a line of extracted text.
const blockElements = "p, div, br, tr, li, h1, h2, h3, h4, h5, h6, table, center, pre, blockquote"

var htmlMarker = regexp.MustCompile(`(?i)<\s*(html|body|div|p|table|span|font)[\s>]`)

// LooksLikeHTML reports whether content carries HTML markup.
func LooksLikeHTML(content string) bool {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	return htmlMarker.MatchString(head)
}

// HTMLToText extracts readable text from a filing document. Block elements
// become line breaks and table cells are separated by spaces so that item
// headings start their own line.
func HTMLToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Step 1: Remove noise elements
	doc.Find("script, style, head, noscript").Remove()
	doc.Find("[hidden], [style*='display:none'], [style*='display: none']").Remove()
	// inline XBRL header blocks hold machine data, not prose
	doc.Find("ix\\:header").Remove()

	// Step 2: Mark layout so text keeps line structure
	doc.Find("td, th").Each(func(i int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	doc.Find(blockElements).Each(func(i int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	// Step 3: Collect text, one cleaned line at a time
	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
