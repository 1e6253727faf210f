package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldEscapes(t *testing.T) {
	assert.Equal(t, "<b>Name &amp; title:</b> &lt;Ana&gt;", Field("Name & title", "<Ana>"))
}

func TestDocument(t *testing.T) {
	doc := Document([]string{Bold("A"), "b"})
	assert.Contains(t, doc, "<b>A</b><br>\nb")
	assert.Contains(t, doc, "<html><body>")
}
