package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<p>hi</p>"))
	assert.True(t, LooksLikeHTML("text <b>bold</b>"))
	assert.False(t, LooksLikeHTML("2 < 3"))
	assert.False(t, LooksLikeHTML("plain text"))
}

func TestVisibleText(t *testing.T) {
	doc := `<html><head><title>T</title><style>p{}</style></head>
<body>
  <h1>Facts</h1>
  <p>The Eiffel Tower is   in Paris.</p>
  <script>var x = "hidden";</script>
  <p>It was built in <b>1889</b>.<br>Line two.</p>
</body></html>`

	got := VisibleText(doc)

	assert.Equal(t, "Facts\nThe Eiffel Tower is in Paris.\nIt was built in 1889.\nLine two.", got)
	assert.NotContains(t, got, "hidden")
}

func TestFindAllAndHasClass(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div><a class="result__a big" href="/one">One</a><a href="/two">Two</a></div>`))
	require.NoError(t, err)

	links := FindAll(doc, func(n *html.Node) bool { return HasClass(n, "result__a") })
	require.Len(t, links, 1)
	assert.Equal(t, "/one", Attr(links[0], "href"))
	assert.Equal(t, "One", NodeText(links[0]))
	assert.Equal(t, "", Attr(links[0], "missing"))
}
