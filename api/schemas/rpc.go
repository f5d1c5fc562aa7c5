package schemas

import "encoding/json"

// -- RPC Envelope --

// Request is the wire envelope every engine call travels in.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the uniform reply envelope. A CAPTCHA interrupt is a successful
// response whose payload carries captchaDetected=true; it is never an error.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    ErrorCode       `json:"code,omitempty"`
}

// Method catalog understood by the engine process.
const (
	MethodTest                 = "test"
	MethodScrape               = "scrape"
	MethodCrawl                = "crawl"
	MethodExtract              = "extract"
	MethodAutomate             = "automate"
	MethodScreenshot           = "screenshot"
	MethodScrapePro            = "scrape_pro"
	MethodAutomatePro          = "automate_pro"
	MethodGetCaptcha           = "get_captcha"
	MethodApplyCaptchaSolution = "apply_captcha_solution"
	MethodExecuteScript        = "execute_script"
	MethodListProfiles         = "list_profiles"
	MethodDeleteProfile        = "delete_profile"
)

// -- Method Parameter Schemas --

// ScrapeParams drives the scrape and scrape_pro methods.
type ScrapeParams struct {
	URL          string        `json:"url"`
	Format       ContentFormat `json:"format,omitempty"`
	WaitSelector string        `json:"waitSelector,omitempty"`
	ProfileID    string        `json:"profileId,omitempty"`
	TimeoutMs    int           `json:"timeoutMs,omitempty"`
}

// CrawlParams drives the crawl method.
type CrawlParams struct {
	StartURL        string   `json:"startUrl"`
	MaxPages        int      `json:"maxPages,omitempty"`
	MaxDepth        int      `json:"maxDepth,omitempty"`
	IncludePatterns []string `json:"includePatterns,omitempty"`
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
	ProfileID       string   `json:"profileId,omitempty"`
	SessionID       string   `json:"sessionId,omitempty"`
}

// ExtractMode selects how matched elements are read for one schema field.
type ExtractMode string

const (
	ExtractText      ExtractMode = "text"
	ExtractHTML      ExtractMode = "html"
	ExtractAttribute ExtractMode = "attribute"
	ExtractList      ExtractMode = "list"
	ExtractTable     ExtractMode = "table"
)

// ExtractField maps one output field to a selector and a read mode.
type ExtractField struct {
	Selector  string      `json:"selector"`
	Mode      ExtractMode `json:"mode,omitempty"`
	Attribute string      `json:"attribute,omitempty"`
}

// ExtractParams drives the extract method. Exactly one of URL or Markup is
// expected; Markup skips navigation and evaluates against the supplied string.
type ExtractParams struct {
	URL       string                  `json:"url,omitempty"`
	Markup    string                  `json:"markup,omitempty"`
	Schema    map[string]ExtractField `json:"schema"`
	ProfileID string                  `json:"profileId,omitempty"`
	TimeoutMs int                     `json:"timeoutMs,omitempty"`
}

// AutomateParams drives the automate and automate_pro methods.
type AutomateParams struct {
	URL       string   `json:"url,omitempty"`
	Actions   []Action `json:"actions"`
	ProfileID string   `json:"profileId,omitempty"`
	TimeoutMs int      `json:"timeoutMs,omitempty"`
}

// ScreenshotParams drives the screenshot method.
type ScreenshotParams struct {
	URL          string `json:"url"`
	FullPage     bool   `json:"fullPage,omitempty"`
	WaitSelector string `json:"waitSelector,omitempty"`
	ProfileID    string `json:"profileId,omitempty"`
	TimeoutMs    int    `json:"timeoutMs,omitempty"`
}

// CaptchaParams drives get_captcha and apply_captcha_solution.
type CaptchaParams struct {
	ProfileID string           `json:"profileId,omitempty"`
	Solution  *CaptchaSolution `json:"solution,omitempty"`
}

// ProfileParams drives list_profiles and delete_profile.
type ProfileParams struct {
	ProfileID string `json:"profileId,omitempty"`
}

// ExecuteScriptParams drives the execute_script method.
type ExecuteScriptParams struct {
	Script    string `json:"script"`
	ProfileID string `json:"profileId,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// CaptchaApplyResult reports the outcome of applying a solution.
type CaptchaApplyResult struct {
	State    CaptchaState     `json:"state"`
	Solution *CaptchaSolution `json:"solution,omitempty"`
	Error    string           `json:"error,omitempty"`
}
