// File: internal/browser/fallbacks.go
package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsString renders s as a JavaScript string literal. JSON encoding is used
// instead of %q because Go quotes supplementary-plane runes as \U escapes,
// which JavaScript string syntax does not accept.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// attrVariants builds the attribute-based selector variants tried when the
// literal selector cannot be resolved. The needle is matched as a substring of
// each attribute, in this fixed order.
func attrVariants(needle string) []string {
	if needle == "" {
		return nil
	}
	escaped := strings.ReplaceAll(needle, `"`, `\"`)
	attrs := []string{"aria-label", "data-testid", "placeholder", "title", "alt"}
	variants := make([]string, 0, len(attrs))
	for _, a := range attrs {
		variants = append(variants, fmt.Sprintf(`[%s*="%s"]`, a, escaped))
	}
	return variants
}

// namedKeys maps the small press vocabulary to DOM key names. Lookup is
// case-insensitive.
var namedKeys = map[string]string{
	"enter":      "Enter",
	"return":     "Enter",
	"tab":        "Tab",
	"escape":     "Escape",
	"esc":        "Escape",
	"arrowup":    "ArrowUp",
	"up":         "ArrowUp",
	"arrowdown":  "ArrowDown",
	"down":       "ArrowDown",
	"arrowleft":  "ArrowLeft",
	"left":       "ArrowLeft",
	"arrowright": "ArrowRight",
	"right":      "ArrowRight",
	"backspace":  "Backspace",
	"delete":     "Delete",
}

// lookupKey resolves a named key; ok is false for anything outside the
// vocabulary.
func lookupKey(name string) (string, bool) {
	key, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]
	return key, ok
}
