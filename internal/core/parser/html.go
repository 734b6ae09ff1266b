package parser

import (
	"bytes"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Containers tried in order before falling back to <body>.
var mainContentSelectors = []string{
	"article", "main", "#content", ".content", "#main", ".post", ".article-body",
}

// ParseHTML extracts readable text from HTML bytes. Every <table> is rebuilt
// as a padded markdown table and spliced back into the DOM in place of the
// original element, so tables survive text extraction.
func ParseHTML(data []byte) (text, title string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, footer, header, aside, noscript").Remove()

	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		md := tableToMarkdown(sel)
		if md != "" {
			sel.ReplaceWithHtml("<p>" + html.EscapeString(md) + "</p>")
		}
	})

	var root *goquery.Selection
	for _, s := range mainContentSelectors {
		if sel := doc.Find(s).First(); sel.Length() > 0 {
			root = sel
			break
		}
	}
	if root == nil {
		root = doc.Find("body")
	}

	text = cleanup(blockText(root))
	if text == "" {
		return "", title, ErrEmptyDocument
	}
	return text, title, nil
}

// blockText joins block-level elements with blank lines so the chunker's
// paragraph separator survives extraction.
func blockText(root *goquery.Selection) string {
	var blocks []string
	root.Find("p, h1, h2, h3, h4, h5, h6, li, pre, blockquote").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		return strings.TrimSpace(root.Text())
	}
	return strings.Join(blocks, "\n\n")
}

// tableToMarkdown rebuilds an HTML table as markdown: rows padded to the
// widest row, header separator inserted after row 1.
func tableToMarkdown(table *goquery.Selection) string {
	var rows [][]string
	maxCols := 0
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
			if len(cells) > maxCols {
				maxCols = len(cells)
			}
		}
	})
	if len(rows) == 0 || maxCols == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range rows {
		for len(row) < maxCols {
			row = append(row, "")
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			sep := make([]string, maxCols)
			for j := range sep {
				sep[j] = "---"
			}
			b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
		}
	}
	return b.String()
}
