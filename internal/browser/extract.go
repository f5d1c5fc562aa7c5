// File: internal/browser/extract.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/xkaelum/harrier/api/schemas"
)

// Extract reads structured fields out of a document. Each schema field names a
// selector and a read mode; the reads run as in-page scripts so they see the
// rendered DOM, not the raw transfer markup.
func (pl *Pool) Extract(ctx context.Context, params schemas.ExtractParams) (map[string]any, error) {
	if len(params.Schema) == 0 {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "extract requires a non-empty schema")
	}
	if params.URL == "" && params.Markup == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "extract requires a url or raw markup")
	}

	ctx, cancel := pl.opContext(ctx, params.TimeoutMs)
	defer cancel()

	prof, err := pl.GetOrCreate(params.ProfileID)
	if err != nil {
		return nil, err
	}

	if params.URL != "" {
		if err := pl.navigate(ctx, prof, params.URL, ""); err != nil {
			return nil, err
		}
	} else {
		// Raw markup: load a blank document and write the markup into it.
		if err := pl.navigate(ctx, prof, "about:blank", ""); err != nil {
			return nil, err
		}
		script := fmt.Sprintf(`document.open(); document.write(%s); document.close();`, jsString(params.Markup))
		if err := prof.Run(ctx, chromedp.Evaluate(script, nil)); err != nil {
			return nil, schemas.NewError(schemas.ErrCodeInternal, "failed to load raw markup: %v", err)
		}
	}

	result := make(map[string]any, len(params.Schema))
	for name, field := range params.Schema {
		script, err := extractScript(field)
		if err != nil {
			return nil, err
		}
		var value any
		if err := prof.Run(ctx, chromedp.Evaluate(script, &value)); err != nil {
			return nil, fmt.Errorf("extraction of field %q failed: %w", name, err)
		}
		result[name] = value
	}
	return result, nil
}

// extractScript builds the in-page read for one field.
func extractScript(field schemas.ExtractField) (string, error) {
	mode := field.Mode
	if mode == "" {
		mode = schemas.ExtractText
	}
	switch mode {
	case schemas.ExtractText:
		return fmt.Sprintf(
			`(function(sel){const el=document.querySelector(sel);return el?el.innerText.trim():null;})(%s)`,
			jsString(field.Selector)), nil
	case schemas.ExtractHTML:
		return fmt.Sprintf(
			`(function(sel){const el=document.querySelector(sel);return el?el.outerHTML:null;})(%s)`,
			jsString(field.Selector)), nil
	case schemas.ExtractAttribute:
		if field.Attribute == "" {
			return "", schemas.NewError(schemas.ErrCodeInvalidRequest, "attribute mode requires an attribute name")
		}
		return fmt.Sprintf(
			`(function(sel,attr){const el=document.querySelector(sel);return el?el.getAttribute(attr):null;})(%s,%s)`,
			jsString(field.Selector), jsString(field.Attribute)), nil
	case schemas.ExtractList:
		return fmt.Sprintf(
			`Array.from(document.querySelectorAll(%s)).map(function(el){return el.innerText.trim();})`,
			jsString(field.Selector)), nil
	case schemas.ExtractTable:
		// Header row comes from th cells when present, otherwise the first
		// row; every body row becomes one record keyed by the headers.
		return fmt.Sprintf(`(function(sel){
	const table = document.querySelector(sel);
	if (!table) return null;
	const rows = Array.from(table.querySelectorAll('tr'));
	if (rows.length === 0) return [];
	const cellText = function(row, tags) {
		return Array.from(row.querySelectorAll(tags)).map(function(c){return c.innerText.trim();});
	};
	let headers = cellText(rows[0], 'th');
	let bodyRows = rows.slice(1);
	if (headers.length === 0) {
		headers = cellText(rows[0], 'td,th');
		bodyRows = rows.slice(1);
	}
	return bodyRows.map(function(row){
		const cells = cellText(row, 'td,th');
		const record = {};
		headers.forEach(function(h, i){ record[h || ('column_' + i)] = cells[i] !== undefined ? cells[i] : ''; });
		return record;
	});
})(%s)`, jsString(field.Selector)), nil
	default:
		return "", schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown extraction mode %q", mode)
	}
}

// ExecuteScript evaluates arbitrary JavaScript in the profile's current
// document and returns the JSON-serializable result.
func (pl *Pool) ExecuteScript(ctx context.Context, params schemas.ExecuteScriptParams) (any, error) {
	if params.Script == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "execute_script requires a script")
	}

	ctx, cancel := pl.opContext(ctx, params.TimeoutMs)
	defer cancel()

	prof, err := pl.GetOrCreate(params.ProfileID)
	if err != nil {
		return nil, err
	}
	var result any
	if err := prof.Run(ctx, chromedp.Evaluate(params.Script, &result)); err != nil {
		return nil, err
	}
	return result, nil
}
