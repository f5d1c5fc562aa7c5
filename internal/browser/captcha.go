// File: internal/browser/captcha.go
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
)

// captchaMarker pairs a challenge-provider selector with its classification.
type captchaMarker struct {
	Selector string
	Type     string
}

// captchaMarkers is the fixed detection list, checked in order. Provider
// specific markers come first so the generic catch-all only classifies
// challenges nothing else claimed.
var captchaMarkers = []captchaMarker{
	{`iframe[src*="recaptcha"]`, "recaptcha"},
	{`.g-recaptcha`, "recaptcha"},
	{`#recaptcha`, "recaptcha"},
	{`iframe[src*="hcaptcha"]`, "hcaptcha"},
	{`.h-captcha`, "hcaptcha"},
	{`iframe[src*="turnstile"]`, "turnstile"},
	{`.cf-turnstile`, "turnstile"},
	{`iframe[src*="arkoselabs"]`, "funcaptcha"},
	{`#FunCaptcha`, "funcaptcha"},
	{`[id*="captcha" i]`, "generic"},
	{`[class*="captcha" i]`, "generic"},
}

// maxEvidenceWidth bounds the screenshot forwarded to external solvers.
const maxEvidenceWidth = 1280

// CaptchaGate is the per-profile state machine for the CAPTCHA interrupt
// protocol: None -> Detected -> AwaitingSolution -> Applying -> Resolved|Failed.
type CaptchaGate struct {
	mu        sync.Mutex
	state     schemas.CaptchaState
	challenge schemas.CaptchaChallenge
}

// NewCaptchaGate starts in the None state.
func NewCaptchaGate() *CaptchaGate {
	return &CaptchaGate{state: schemas.CaptchaNone}
}

// State returns the current protocol state.
func (g *CaptchaGate) State() schemas.CaptchaState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Challenge snapshots the recorded challenge; the Detected flag mirrors
// whether a negotiation is currently open.
func (g *CaptchaGate) Challenge() schemas.CaptchaChallenge {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.challenge
	c.State = g.state
	c.Detected = g.state == schemas.CaptchaDetected || g.state == schemas.CaptchaAwaitingSolution
	return c
}

// ResetOnNavigation abandons any negotiation; a fresh document means the old
// challenge no longer exists.
func (g *CaptchaGate) ResetOnNavigation() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = schemas.CaptchaNone
	g.challenge = schemas.CaptchaChallenge{}
}

// recordDetection moves the gate to Detected with the captured evidence.
func (g *CaptchaGate) recordDetection(challengeType, pageURL string, screenshot []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = schemas.CaptchaDetected
	g.challenge = schemas.CaptchaChallenge{
		Detected:   true,
		Type:       challengeType,
		State:      schemas.CaptchaDetected,
		Screenshot: screenshot,
		PageURL:    pageURL,
		DetectedAt: time.Now().UTC(),
	}
}

// MarkAwaiting records that the challenge was handed to an external solver.
// Meaningful only from Detected; anything else is left alone.
func (g *CaptchaGate) MarkAwaiting() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == schemas.CaptchaDetected {
		g.state = schemas.CaptchaAwaitingSolution
	}
}

// beginApply validates the transition into Applying. Applying a solution
// without a prior detection is rejected.
func (g *CaptchaGate) beginApply() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != schemas.CaptchaDetected && g.state != schemas.CaptchaAwaitingSolution {
		return schemas.NewError(schemas.ErrCodeInvalidRequest,
			"no challenge awaiting a solution (state %s)", g.state)
	}
	g.state = schemas.CaptchaApplying
	return nil
}

// finishApply lands in Resolved or Failed.
func (g *CaptchaGate) finishApply(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = schemas.CaptchaFailed
	} else {
		g.state = schemas.CaptchaResolved
	}
}

// DetectCaptcha scans the current document for known challenge markers. On a
// match it captures full-page evidence and returns the challenge; nil means no
// challenge is present.
func (pl *Pool) DetectCaptcha(ctx context.Context, prof *Profile) (*schemas.CaptchaChallenge, error) {
	var sb strings.Builder
	sb.WriteString("(function(){const markers=[")
	for i, m := range captchaMarkers {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "[%s,%s]", jsString(m.Selector), jsString(m.Type))
	}
	sb.WriteString(`];for (const [sel, type] of markers){try{if(document.querySelector(sel))return type;}catch(e){}}return "";})()`)

	var challengeType string
	if err := prof.Run(ctx, chromedp.Evaluate(sb.String(), &challengeType)); err != nil {
		return nil, err
	}
	if challengeType == "" {
		return nil, nil
	}

	var location string
	var shot []byte
	if err := prof.Run(ctx,
		chromedp.Location(&location),
		chromedp.FullScreenshot(&shot, 100),
	); err != nil {
		pl.logger.Warn("Failed to capture CAPTCHA evidence screenshot.", zap.Error(err))
	}
	shot = downscaleEvidence(shot)

	prof.gate.recordDetection(challengeType, location, shot)
	pl.logger.Info("CAPTCHA challenge detected.",
		zap.String("profile", prof.meta.ID),
		zap.String("type", challengeType),
		zap.String("url", location),
	)
	challenge := prof.gate.Challenge()
	return &challenge, nil
}

// downscaleEvidence shrinks oversized screenshots so solver payloads stay
// small. Anything undecodable passes through untouched.
func downscaleEvidence(shot []byte) []byte {
	if len(shot) == 0 {
		return shot
	}
	img, err := imaging.Decode(bytes.NewReader(shot))
	if err != nil || img.Bounds().Dx() <= maxEvidenceWidth {
		return shot
	}
	resized := imaging.Resize(img, maxEvidenceWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return shot
	}
	return buf.Bytes()
}

// ApplyCaptchaSolution dispatches an externally supplied solution against the
// page. The engine applies it mechanically; judging correctness is the
// caller's job, who should retry the original operation after Resolved.
func (pl *Pool) ApplyCaptchaSolution(ctx context.Context, profileID string, solution *schemas.CaptchaSolution) (*schemas.CaptchaApplyResult, error) {
	if solution == nil {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "apply_captcha_solution requires a solution")
	}

	ctx, cancel := pl.opContext(ctx, 0)
	defer cancel()

	prof, err := pl.GetOrCreate(profileID)
	if err != nil {
		return nil, err
	}
	if err := prof.gate.beginApply(); err != nil {
		return nil, err
	}

	applyErr := pl.dispatchSolution(ctx, prof, solution)
	prof.gate.finishApply(applyErr)

	result := &schemas.CaptchaApplyResult{State: prof.gate.State()}
	if applyErr != nil {
		// Echo the solution back so the caller can diagnose what was tried.
		result.Solution = solution
		result.Error = applyErr.Error()
	}
	pl.logger.Info("CAPTCHA solution applied.",
		zap.String("profile", prof.meta.ID),
		zap.String("solution_type", string(solution.Type)),
		zap.String("state", string(result.State)),
	)
	return result, nil
}

// dispatchSolution runs the solution-type-specific page action.
func (pl *Pool) dispatchSolution(ctx context.Context, prof *Profile, solution *schemas.CaptchaSolution) error {
	switch solution.Type {
	case schemas.SolutionText:
		if solution.Value == "" {
			return schemas.NewError(schemas.ErrCodeInvalidRequest, "text solution requires a value")
		}
		// Type into the focused field (or the first visible text input) and
		// submit with Enter.
		script := fmt.Sprintf(`(function(value){
	let el = document.activeElement;
	if (!el || !(el.tagName === 'INPUT' || el.tagName === 'TEXTAREA')) {
		el = document.querySelector('input[type="text"], input:not([type]), textarea');
	}
	if (!el) return false;
	el.focus();
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	const form = el.form;
	if (form) { form.submit(); } else {
		el.dispatchEvent(new KeyboardEvent('keydown', {key: 'Enter', bubbles: true}));
	}
	return true;
})(%s)`, jsString(solution.Value))
		var ok bool
		if err := prof.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
			return err
		}
		if !ok {
			return schemas.NewError(schemas.ErrCodeActionFailed, "no input field found for text solution")
		}
		return nil

	case schemas.SolutionClick, schemas.SolutionRecaptchaV2:
		// Click the challenge checkbox when it is reachable, otherwise fall
		// back to supplied coordinates.
		if len(solution.Coordinates) > 0 {
			return pl.clickCoordinates(ctx, prof, solution.Coordinates, false)
		}
		for _, sel := range []string{".recaptcha-checkbox", "#checkbox", ".cf-turnstile", ".h-captcha"} {
			if err := pl.tryStrategy(ctx, prof, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err == nil {
				return nil
			} else if isCanceled(err) {
				return err
			}
		}
		return schemas.NewError(schemas.ErrCodeActionFailed, "no challenge checkbox reachable and no coordinates supplied")

	case schemas.SolutionImageSelection:
		if len(solution.Coordinates) == 0 {
			return schemas.NewError(schemas.ErrCodeInvalidRequest, "image_selection solution requires coordinates")
		}
		// Click every tile, then the verify control.
		return pl.clickCoordinates(ctx, prof, solution.Coordinates, true)

	case schemas.SolutionSelect:
		if len(solution.Selections) == 0 {
			return schemas.NewError(schemas.ErrCodeInvalidRequest, "select solution requires selections")
		}
		for _, sel := range solution.Selections {
			if err := pl.tryStrategy(ctx, prof, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
				return schemas.NewError(schemas.ErrCodeActionFailed, "failed to click selection %q: %v", sel, err)
			}
		}
		return nil

	default:
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown solution type %q", solution.Type)
	}
}

// clickCoordinates clicks each (x, y) point in order; withVerify then clicks
// the first reachable verify/submit control.
func (pl *Pool) clickCoordinates(ctx context.Context, prof *Profile, coords [][2]float64, withVerify bool) error {
	for _, c := range coords {
		if err := prof.Run(ctx, chromedp.MouseClickXY(c[0], c[1])); err != nil {
			return fmt.Errorf("failed to click at (%.0f, %.0f): %w", c[0], c[1], err)
		}
		if err := prof.Run(ctx, chromedp.Sleep(150*time.Millisecond)); err != nil {
			return err
		}
	}
	if !withVerify {
		return nil
	}
	for _, sel := range []string{"#recaptcha-verify-button", "button[type=submit]", ".verify-button"} {
		if err := pl.tryStrategy(ctx, prof, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err == nil {
			return nil
		} else if isCanceled(err) {
			return err
		}
	}
	return schemas.NewError(schemas.ErrCodeActionFailed, "tiles clicked but no verify control reachable")
}

// GetCaptcha reports the current challenge for a profile and, when one is
// open, marks it as handed off to the solver.
func (pl *Pool) GetCaptcha(profileID string) (*schemas.CaptchaChallenge, error) {
	prof, err := pl.GetOrCreate(profileID)
	if err != nil {
		return nil, err
	}
	challenge := prof.gate.Challenge()
	prof.gate.MarkAwaiting()
	return &challenge, nil
}
