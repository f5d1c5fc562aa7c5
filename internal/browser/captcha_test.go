// File: internal/browser/captcha_test.go
package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkaelum/harrier/api/schemas"
)

func TestCaptchaGateLifecycle(t *testing.T) {
	g := NewCaptchaGate()
	require.Equal(t, schemas.CaptchaNone, g.State())

	g.recordDetection("recaptcha_v2", "https://guarded.test/login", []byte{1, 2, 3})
	assert.Equal(t, schemas.CaptchaDetected, g.State())

	challenge := g.Challenge()
	assert.True(t, challenge.Detected)
	assert.Equal(t, "recaptcha_v2", challenge.Type)
	assert.Equal(t, "https://guarded.test/login", challenge.PageURL)
	assert.NotZero(t, challenge.DetectedAt)

	g.MarkAwaiting()
	assert.Equal(t, schemas.CaptchaAwaitingSolution, g.State())
	assert.True(t, g.Challenge().Detected, "an open negotiation still reports detected")

	require.NoError(t, g.beginApply())
	assert.Equal(t, schemas.CaptchaApplying, g.State())

	g.finishApply(nil)
	assert.Equal(t, schemas.CaptchaResolved, g.State())
	assert.False(t, g.Challenge().Detected)
}

func TestCaptchaGateApplyWithoutDetection(t *testing.T) {
	g := NewCaptchaGate()

	err := g.beginApply()
	require.Error(t, err)
	assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
	assert.Equal(t, schemas.CaptchaNone, g.State(), "a rejected apply must not move the gate")
}

func TestCaptchaGateFailedApplication(t *testing.T) {
	g := NewCaptchaGate()
	g.recordDetection("hcaptcha", "https://guarded.test/", nil)

	require.NoError(t, g.beginApply())
	g.finishApply(errors.New("checkbox never verified"))
	assert.Equal(t, schemas.CaptchaFailed, g.State())

	// A failed state needs a fresh detection before another apply.
	err := g.beginApply()
	require.Error(t, err)
}

func TestCaptchaGateResetOnNavigation(t *testing.T) {
	g := NewCaptchaGate()
	g.recordDetection("turnstile", "https://guarded.test/", nil)
	g.MarkAwaiting()

	g.ResetOnNavigation()
	assert.Equal(t, schemas.CaptchaNone, g.State())
	assert.Empty(t, g.Challenge().Type)
	assert.False(t, g.Challenge().Detected)
}

func TestCaptchaGateMarkAwaitingOnlyFromDetected(t *testing.T) {
	g := NewCaptchaGate()
	g.MarkAwaiting()
	assert.Equal(t, schemas.CaptchaNone, g.State())

	g.recordDetection("generic", "https://guarded.test/", nil)
	require.NoError(t, g.beginApply())
	g.MarkAwaiting()
	assert.Equal(t, schemas.CaptchaApplying, g.State(), "awaiting must not preempt an apply in flight")
}
