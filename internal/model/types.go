package model

import (
	"time"

	"github.com/goccy/go-json"
)

// DeviceClass is the coarse form factor derived from a user-agent string
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceUnknown DeviceClass = "unknown"
)

// BrowserFamily is the browser name reported to the backend. Besides the
// closed set below it may carry a best-effort name scanned from the user agent.
type BrowserFamily string

const (
	BrowserFirefox BrowserFamily = "Firefox"
	BrowserEdge    BrowserFamily = "Edge"
	BrowserOpera   BrowserFamily = "Opera"
	BrowserChrome  BrowserFamily = "Chrome"
	BrowserSafari  BrowserFamily = "Safari"
	BrowserOther   BrowserFamily = "Other"
)

// DeviceContext is the probed runtime of the current process
type DeviceContext struct {
	Class   DeviceClass
	Browser BrowserFamily
}

// SessionRegistration is the one-time report of a guest's device and referral
type SessionRegistration struct {
	GuestID    string        `json:"guest_id"`
	Ref        string        `json:"ref"`
	DeviceType DeviceClass   `json:"device_type"`
	Browser    BrowserFamily `json:"browser"`
}

// PageVisit is one closed dwell interval on a page section
type PageVisit struct {
	PageName    string    `json:"page_name"`
	SectionName string    `json:"section_name"`
	InTime      time.Time `json:"in_time"`
	OutTime     time.Time `json:"out_time"`
}

// VisitKey returns the in-flight key of a page section pair
func VisitKey(page, section string) string {
	return page + "-" + section
}

// PageVisitsRequest is the body of a visit-tracking write
type PageVisitsRequest struct {
	PageVisits []PageVisit `json:"page_visits"`
}

// Envelope is the response shape returned by every backend resource
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Principal is the identity attached to outgoing storefront calls.
// UserID and Token are empty for anonymous guests.
type Principal struct {
	GuestID string
	UserID  string
	Token   string
}

// Authenticated reports whether the principal carries a signed-in user
func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.Token != ""
}
