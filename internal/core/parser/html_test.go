package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTML(t *testing.T) {
	t.Run("extracts title and paragraph text", func(t *testing.T) {
		html := `<html><head><title>My Page</title></head><body>
			<p>First paragraph.</p>
			<p>Second paragraph.</p>
		</body></html>`
		text, title, err := ParseHTML([]byte(html))
		require.NoError(t, err)
		assert.Equal(t, "My Page", title)
		assert.Contains(t, text, "First paragraph.")
		assert.Contains(t, text, "Second paragraph.")
	})

	t.Run("strips script style and chrome elements", func(t *testing.T) {
		html := `<html><body>
			<nav><p>menu item</p></nav>
			<script>var x = 1;</script>
			<p>real content</p>
			<footer><p>copyright</p></footer>
		</body></html>`
		text, _, err := ParseHTML([]byte(html))
		require.NoError(t, err)
		assert.Contains(t, text, "real content")
		assert.NotContains(t, text, "menu item")
		assert.NotContains(t, text, "var x")
		assert.NotContains(t, text, "copyright")
	})

	t.Run("prefers the article container over body", func(t *testing.T) {
		html := `<html><body>
			<div class="sidebar"><p>sidebar junk</p></div>
			<article><p>the story</p></article>
		</body></html>`
		text, _, err := ParseHTML([]byte(html))
		require.NoError(t, err)
		assert.Contains(t, text, "the story")
		assert.NotContains(t, text, "sidebar junk")
	})

	t.Run("tables become markdown in the extracted text", func(t *testing.T) {
		html := `<html><body><article>
			<p>before</p>
			<table>
				<tr><th>Name</th><th>Price</th></tr>
				<tr><td>Widget</td><td>10</td></tr>
			</table>
			<p>after</p>
		</article></body></html>`
		text, _, err := ParseHTML([]byte(html))
		require.NoError(t, err)
		assert.Contains(t, text, "| Name | Price |")
		assert.Contains(t, text, "| --- | --- |")
		assert.Contains(t, text, "| Widget | 10 |")
		assert.Contains(t, text, "before")
		assert.Contains(t, text, "after")
	})

	t.Run("ragged table rows are padded", func(t *testing.T) {
		html := `<html><body><article>
			<table>
				<tr><th>A</th><th>B</th><th>C</th></tr>
				<tr><td>1</td></tr>
			</table>
		</article></body></html>`
		text, _, err := ParseHTML([]byte(html))
		require.NoError(t, err)
		// sanitization collapses the double spaces of empty cells
		assert.Contains(t, text, "| 1 | | |")
	})

	t.Run("empty body is an error", func(t *testing.T) {
		_, _, err := ParseHTML([]byte(`<html><head><title>t</title></head><body></body></html>`))
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}
