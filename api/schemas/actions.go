package schemas

// -- Automation Action Schemas --

// ActionType enumerates the primitive UI actions the interpreter understands.
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionTypeText   ActionType = "type"
	ActionWait       ActionType = "wait"
	ActionScroll     ActionType = "scroll"
	ActionScreenshot ActionType = "screenshot"
	ActionPress      ActionType = "press"
	ActionSelect     ActionType = "select"
	ActionNavigate   ActionType = "navigate"
)

// Action is one step of an automation sequence. Which fields are meaningful
// depends on Type: click/scroll need Selector, type/select need Selector and
// Value, press needs Key, wait takes Selector or DurationMs, navigate takes URL.
type Action struct {
	Type       ActionType `json:"type"`
	Selector   string     `json:"selector,omitempty"`
	Value      string     `json:"value,omitempty"`
	Key        string     `json:"key,omitempty"`
	URL        string     `json:"url,omitempty"`
	DurationMs int        `json:"durationMs,omitempty"`
	FullPage   bool       `json:"fullPage,omitempty"`
}

// ActionResult records the outcome of a single executed action.
type ActionResult struct {
	Action     ActionType `json:"action"`
	Selector   string     `json:"selector,omitempty"`
	Success    bool       `json:"success"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	Screenshot []byte     `json:"screenshot,omitempty"`
}

// AutomationResult is the outcome of a full automation run. Actions holds one
// entry per action that was attempted; a failing action is the last entry.
type AutomationResult struct {
	Actions         []ActionResult `json:"actions"`
	FinalURL        string         `json:"finalUrl"`
	Content         string         `json:"content,omitempty"`
	Completed       bool           `json:"completed"`
	CaptchaDetected bool           `json:"captchaDetected,omitempty"`
}
