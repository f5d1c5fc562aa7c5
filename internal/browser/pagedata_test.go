// File: internal/browser/pagedata_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Sample Page</title>
  <meta name="description" content="A page for parsing">
  <meta property="og:title" content="Sample OG">
</head>
<body>
  <a href="/relative">Relative</a>
  <a href="https://other.test/abs">Absolute</a>
  <a href="#fragment">Fragment only</a>
  <a href="javascript:void(0)">Scripted</a>
  <img src="/img/cat.png" alt="A cat">
</body>
</html>`

func TestParsePageData(t *testing.T) {
	data, err := parsePageData(samplePage, "https://site.test/dir/page")
	require.NoError(t, err)

	assert.Equal(t, "Sample Page", data.Title)
	require.NotNil(t, data.Body)

	t.Run("links resolve against the base", func(t *testing.T) {
		require.Len(t, data.Links, 3, "javascript links are dropped")
		assert.Equal(t, "https://site.test/relative", data.Links[0].URL)
		assert.Equal(t, "Relative", data.Links[0].Text)
		assert.Equal(t, "https://other.test/abs", data.Links[1].URL)
	})

	t.Run("fragments are stripped", func(t *testing.T) {
		assert.Equal(t, "https://site.test/dir/page", data.Links[2].URL)
	})

	t.Run("images carry alt text", func(t *testing.T) {
		require.Len(t, data.Images, 1)
		assert.Equal(t, "https://site.test/img/cat.png", data.Images[0].URL)
		assert.Equal(t, "A cat", data.Images[0].Alt)
	})

	t.Run("meta name and property both collected", func(t *testing.T) {
		assert.Equal(t, "A page for parsing", data.Metadata["description"])
		assert.Equal(t, "Sample OG", data.Metadata["og:title"])
	})
}

func TestParsePageDataWithoutBase(t *testing.T) {
	data, err := parsePageData(`<a href="/only">x</a>`, "")
	require.NoError(t, err)
	require.Len(t, data.Links, 1)
	assert.Equal(t, "/only", data.Links[0].URL)
}

func TestParsePageDataEmptyMarkup(t *testing.T) {
	// The html parser synthesizes a skeleton document for empty input.
	data, err := parsePageData("", "https://site.test/")
	require.NoError(t, err)
	assert.Empty(t, data.Title)
	assert.Empty(t, data.Links)
}
