// File: internal/browser/extract_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkaelum/harrier/api/schemas"
)

func TestExtractScript(t *testing.T) {
	t.Run("default mode is text", func(t *testing.T) {
		script, err := extractScript(schemas.ExtractField{Selector: "h1"})
		require.NoError(t, err)
		assert.Contains(t, script, `querySelector("h1")`)
		assert.Contains(t, script, "innerText")
	})

	t.Run("html mode reads outerHTML", func(t *testing.T) {
		script, err := extractScript(schemas.ExtractField{Selector: ".card", Mode: schemas.ExtractHTML})
		require.NoError(t, err)
		assert.Contains(t, script, "outerHTML")
	})

	t.Run("attribute mode embeds the attribute name", func(t *testing.T) {
		script, err := extractScript(schemas.ExtractField{
			Selector:  "a.download",
			Mode:      schemas.ExtractAttribute,
			Attribute: "href",
		})
		require.NoError(t, err)
		assert.Contains(t, script, `getAttribute`)
		assert.Contains(t, script, `"href"`)
	})

	t.Run("attribute mode without a name is rejected", func(t *testing.T) {
		_, err := extractScript(schemas.ExtractField{Selector: "a", Mode: schemas.ExtractAttribute})
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
	})

	t.Run("list mode collects every match", func(t *testing.T) {
		script, err := extractScript(schemas.ExtractField{Selector: "li.item", Mode: schemas.ExtractList})
		require.NoError(t, err)
		assert.Contains(t, script, "querySelectorAll")
	})

	t.Run("table mode keys rows by header", func(t *testing.T) {
		script, err := extractScript(schemas.ExtractField{Selector: "table#results", Mode: schemas.ExtractTable})
		require.NoError(t, err)
		assert.Contains(t, script, "'th'")
		assert.Contains(t, script, "column_")
	})

	t.Run("selectors with quotes stay inside the string literal", func(t *testing.T) {
		script, err := extractScript(schemas.ExtractField{Selector: `[data-name="it's"]`})
		require.NoError(t, err)
		assert.Contains(t, script, `\"it's\"`)
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		_, err := extractScript(schemas.ExtractField{Selector: "x", Mode: "telepathy"})
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
	})
}
