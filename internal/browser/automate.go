// File: internal/browser/automate.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
)

// strategyTimeout bounds each individual fallback strategy so a dead selector
// cannot consume the whole action budget.
const strategyTimeout = 5 * time.Second

// Automate executes an ordered action list against a profile's context. The
// first failing action halts the remainder; the result reports every action
// that ran. CAPTCHA detection after the initial navigation is recorded as a
// non-fatal advisory, never an abort.
func (pl *Pool) Automate(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, error) {
	if len(params.Actions) == 0 && params.URL == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "automate requires a url or at least one action")
	}

	ctx, cancel := pl.opContext(ctx, params.TimeoutMs)
	defer cancel()

	prof, err := pl.GetOrCreate(params.ProfileID)
	if err != nil {
		return nil, err
	}

	result := &schemas.AutomationResult{}

	if params.URL != "" {
		if err := pl.navigate(ctx, prof, params.URL, ""); err != nil {
			return nil, err
		}
		if challenge, err := pl.DetectCaptcha(ctx, prof); err == nil && challenge != nil {
			result.CaptchaDetected = true
			result.Actions = append(result.Actions, schemas.ActionResult{
				Action:  schemas.ActionNavigate,
				Success: true,
				Message: fmt.Sprintf("navigated to %s; %s challenge detected", params.URL, challenge.Type),
			})
		}
	}

	completed := true
	for _, action := range params.Actions {
		ar := pl.execActionFn(ctx, prof, action)
		result.Actions = append(result.Actions, ar)
		if !ar.Success {
			completed = false
			break
		}
	}
	result.Completed = completed

	var finalURL string
	if err := prof.Run(ctx, chromedp.Location(&finalURL)); err == nil {
		result.FinalURL = finalURL
	}
	var content string
	if err := prof.Run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &content)); err == nil {
		result.Content = content
	}
	return result, nil
}

// AutomatePro is the CAPTCHA-aware variant: when the post-navigation check
// detects a challenge, the run short-circuits and the challenge is returned in
// place of the action results.
func (pl *Pool) AutomatePro(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, *schemas.CaptchaChallenge, error) {
	ctx, cancel := pl.opContext(ctx, params.TimeoutMs)
	defer cancel()

	prof, err := pl.GetOrCreate(params.ProfileID)
	if err != nil {
		return nil, nil, err
	}

	if params.URL != "" {
		if err := pl.navigate(ctx, prof, params.URL, ""); err != nil {
			return nil, nil, err
		}
		if challenge, err := pl.DetectCaptcha(ctx, prof); err == nil && challenge != nil {
			return nil, challenge, nil
		}
	}

	params.URL = "" // already navigated
	result, err := pl.Automate(ctx, params)
	return result, nil, err
}

// executeAction runs one action and reports its outcome.
func (pl *Pool) executeAction(ctx context.Context, prof *Profile, action schemas.Action) schemas.ActionResult {
	ar := schemas.ActionResult{Action: action.Type, Selector: action.Selector}
	log := pl.logger.With(
		zap.String("profile", prof.meta.ID),
		zap.String("action", string(action.Type)),
		zap.String("selector", action.Selector),
	)

	var err error
	switch action.Type {
	case schemas.ActionClick:
		err = pl.clickWithFallback(ctx, prof, action.Selector, log)
	case schemas.ActionTypeText:
		err = pl.typeWithFallback(ctx, prof, action.Selector, action.Value, log)
	case schemas.ActionWait:
		err = pl.doWait(ctx, prof, action)
	case schemas.ActionScroll:
		err = pl.doScroll(ctx, prof, action.Selector)
	case schemas.ActionScreenshot:
		var shot *schemas.ScreenshotResult
		shot, err = pl.capture(ctx, prof, action.FullPage)
		if err == nil {
			ar.Screenshot = shot.Data
		}
	case schemas.ActionPress:
		err = pl.doPress(ctx, prof, action.Key)
	case schemas.ActionSelect:
		err = pl.doSelect(ctx, prof, action.Selector, action.Value)
	case schemas.ActionNavigate:
		err = pl.navigate(ctx, prof, action.URL, "")
	default:
		err = schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown action type %q", action.Type)
	}

	if err != nil {
		ar.Success = false
		ar.Error = err.Error()
		log.Debug("Action failed.", zap.Error(err))
	} else {
		ar.Success = true
		ar.Message = fmt.Sprintf("%s ok", action.Type)
	}
	return ar
}

// clickWithFallback walks the click strategy chain: literal selector, script
// dispatch, attribute variants, and finally a forced dispatch with likely
// overlays hidden. The first success wins.
func (pl *Pool) clickWithFallback(ctx context.Context, prof *Profile, selector string, log *zap.Logger) error {
	if selector == "" {
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "click requires a selector")
	}

	// 1. Standard wait-then-click.
	err := pl.tryStrategy(ctx, prof,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if isCanceled(err) {
		return err
	}
	log.Debug("Click strategy 1 failed; trying script dispatch.", zap.Error(err))

	// 2. Scroll into view plus script-level click.
	if serr := pl.scriptClick(ctx, prof, selector); serr == nil {
		return nil
	} else if isCanceled(serr) {
		return serr
	}

	// 3. Attribute-based selector variants.
	for _, variant := range attrVariants(selector) {
		if verr := pl.scriptClick(ctx, prof, variant); verr == nil {
			log.Debug("Click resolved via attribute variant.", zap.String("variant", variant))
			return nil
		} else if isCanceled(verr) {
			return verr
		}
	}

	// 4. Last resort: hide likely overlays, then force a synthetic click.
	script := fmt.Sprintf(`(function(sel){
	document.querySelectorAll('body *').forEach(function(el){
		const style = window.getComputedStyle(el);
		if ((style.position === 'fixed' || style.position === 'sticky') && parseInt(style.zIndex, 10) > 100 && !el.querySelector(sel)) {
			el.style.display = 'none';
		}
	});
	const target = document.querySelector(sel);
	if (!target) return false;
	target.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
	return true;
})(%s)`, jsString(selector))
	var ok bool
	if ferr := pl.tryStrategy(ctx, prof, chromedp.Evaluate(script, &ok)); ferr != nil {
		return schemas.NewError(schemas.ErrCodeActionFailed, "all click strategies failed for %q: %v", selector, ferr)
	}
	if !ok {
		return schemas.NewError(schemas.ErrCodeActionFailed, "all click strategies failed for %q: element not found", selector)
	}
	return nil
}

// scriptClick scrolls the element into view and dispatches a click through the
// page's own event machinery.
func (pl *Pool) scriptClick(ctx context.Context, prof *Profile, selector string) error {
	script := fmt.Sprintf(`(function(sel){
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({block: 'center', inline: 'center'});
	el.click();
	return true;
})(%s)`, jsString(selector))
	var ok bool
	if err := pl.tryStrategy(ctx, prof, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return schemas.NewError(schemas.ErrCodeActionFailed, "element %q not found", selector)
	}
	return nil
}

// typeWithFallback mirrors the click chain for text entry.
func (pl *Pool) typeWithFallback(ctx context.Context, prof *Profile, selector, text string, log *zap.Logger) error {
	if selector == "" {
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "type requires a selector")
	}

	// 1. Standard wait-then-send-keys.
	err := pl.tryStrategy(ctx, prof,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if isCanceled(err) {
		return err
	}
	log.Debug("Type strategy 1 failed; trying script assignment.", zap.Error(err))

	// 2/3. Script-level value assignment on the literal selector, then on the
	// attribute variants.
	candidates := append([]string{selector}, attrVariants(selector)...)
	for _, sel := range candidates {
		if serr := pl.scriptType(ctx, prof, sel, text); serr == nil {
			return nil
		} else if isCanceled(serr) {
			return serr
		}
	}
	return schemas.NewError(schemas.ErrCodeActionFailed, "all type strategies failed for %q", selector)
}

// scriptType sets the value directly and fires the framework-visible events.
func (pl *Pool) scriptType(ctx context.Context, prof *Profile, selector, text string) error {
	script := fmt.Sprintf(`(function(sel, value){
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({block: 'center'});
	el.focus();
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})(%s, %s)`, jsString(selector), jsString(text))
	var ok bool
	if err := pl.tryStrategy(ctx, prof, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return schemas.NewError(schemas.ErrCodeActionFailed, "element %q not found", selector)
	}
	return nil
}

// doWait blocks on selector visibility, or sleeps for the literal duration.
func (pl *Pool) doWait(ctx context.Context, prof *Profile, action schemas.Action) error {
	if action.Selector != "" {
		return prof.Run(ctx, chromedp.WaitVisible(action.Selector, chromedp.ByQuery))
	}
	d := time.Duration(action.DurationMs) * time.Millisecond
	if d <= 0 {
		d = time.Second
	}
	return prof.Run(ctx, chromedp.Sleep(d))
}

// doScroll targets an element, or defaults to the bottom of the document.
func (pl *Pool) doScroll(ctx context.Context, prof *Profile, selector string) error {
	if selector != "" {
		return pl.scriptScroll(ctx, prof, selector)
	}
	return prof.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (pl *Pool) scriptScroll(ctx context.Context, prof *Profile, selector string) error {
	script := fmt.Sprintf(`(function(sel){
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({block: 'center'});
	return true;
})(%s)`, jsString(selector))
	var ok bool
	if err := prof.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return schemas.NewError(schemas.ErrCodeActionFailed, "scroll target %q not found", selector)
	}
	return nil
}

// doPress dispatches a named key as a keydown/keyup pair.
func (pl *Pool) doPress(ctx context.Context, prof *Profile, name string) error {
	key, ok := lookupKey(name)
	if !ok {
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown key %q", name)
	}
	keyDown := input.DispatchKeyEvent(input.KeyDown).WithKey(key)
	keyUp := input.DispatchKeyEvent(input.KeyUp).WithKey(key)
	return prof.Run(ctx, keyDown, keyUp)
}

// doSelect sets a select element's value and fires the change event.
func (pl *Pool) doSelect(ctx context.Context, prof *Profile, selector, value string) error {
	if selector == "" {
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "select requires a selector")
	}
	script := fmt.Sprintf(`(function(sel, value){
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return el.value === value;
})(%s, %s)`, jsString(selector), jsString(value))
	var ok bool
	if err := prof.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return schemas.NewError(schemas.ErrCodeActionFailed, "select %q has no option %q", selector, value)
	}
	return nil
}

// tryStrategy runs one fallback strategy under its own short deadline so a
// missing element cannot stall the whole chain.
func (pl *Pool) tryStrategy(ctx context.Context, prof *Profile, actions ...chromedp.Action) error {
	sctx, cancel := context.WithTimeout(ctx, strategyTimeout)
	defer cancel()
	return prof.Run(sctx, actions...)
}

// isCanceled reports whether the failure means the caller or the browser is
// gone, in which case further strategies are pointless.
func isCanceled(err error) bool {
	return schemas.CodeOf(err) == schemas.ErrCodeContextCanceled
}
