package schemas

import "time"

// -- Browser Profile Schemas --

// Viewport is the emulated window size for a profile.
type Viewport struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// ProfileMetadata is the persisted identity of a profile. It survives
// independently of whether a live browser context currently backs it.
type ProfileMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent"`
	Viewport  Viewport  `json:"viewport"`
	ProxyURL  string    `json:"proxyUrl,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	// Active reports whether a live context backs the profile right now.
	Active bool `json:"active"`
}

// DefaultViewport matches a common desktop window.
var DefaultViewport = Viewport{Width: 1366, Height: 900}
