package schemas

import "time"

// -- CAPTCHA Handshake Schemas --

// CaptchaState tracks the interrupt protocol for one profile.
// Transitions: None -> Detected -> AwaitingSolution -> Applying -> Resolved|Failed.
type CaptchaState string

const (
	CaptchaNone             CaptchaState = "none"
	CaptchaDetected         CaptchaState = "detected"
	CaptchaAwaitingSolution CaptchaState = "awaiting_solution"
	CaptchaApplying         CaptchaState = "applying"
	CaptchaResolved         CaptchaState = "resolved"
	CaptchaFailed           CaptchaState = "failed"
)

// SolutionType tags the variant of a submitted CAPTCHA solution.
type SolutionType string

const (
	SolutionText           SolutionType = "text"
	SolutionClick          SolutionType = "click"
	SolutionSelect         SolutionType = "select"
	SolutionRecaptchaV2    SolutionType = "recaptcha_v2"
	SolutionImageSelection SolutionType = "image_selection"
)

// CaptchaChallenge is what the engine reports when a challenge interrupts an
// operation. The screenshot is the visual evidence an external solver needs.
type CaptchaChallenge struct {
	Detected   bool         `json:"captchaDetected"`
	Type       string       `json:"type,omitempty"`
	State      CaptchaState `json:"state"`
	Screenshot []byte       `json:"screenshot,omitempty"`
	PageURL    string       `json:"pageUrl,omitempty"`
	DetectedAt time.Time    `json:"detectedAt,omitempty"`
}

// CaptchaSolution is supplied by an external solver (human or AI vision
// oracle). The engine applies it mechanically and reports the outcome; it
// never judges the solution itself.
type CaptchaSolution struct {
	Type         SolutionType `json:"type"`
	Value        string       `json:"value,omitempty"`
	Coordinates  [][2]float64 `json:"coordinates,omitempty"`
	Selections   []string     `json:"selections,omitempty"`
	Confidence   float64      `json:"confidence,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
}
