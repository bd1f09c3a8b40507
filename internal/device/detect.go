// Package device classifies the runtime from its user-agent string.
package device

import (
	"regexp"
	"strings"

	"github.com/foodstand/guestkit/internal/model"
)

// Tablet patterns are checked before mobile ones: many tablets also carry
// mobile tokens and the tablet reading must win.
var (
	tabletPCPattern      = regexp.MustCompile(`(?i)tablet pc`)
	tabletPattern        = regexp.MustCompile(`(?i)ipad|tablet|playbook|silk|kindle|nexus (7|9|10)|sm-t\d+|tab\s?\d`)
	androidPattern       = regexp.MustCompile(`(?i)android`)
	mobileTokenPattern   = regexp.MustCompile(`(?i)mobile`)
	mobilePattern        = regexp.MustCompile(`(?i)mobi|iphone|ipod|android|blackberry|bb10|iemobile|opera mini|windows phone|webos|palm|symbian|nokia|kaios`)
	desktopPattern       = regexp.MustCompile(`(?i)windows nt|macintosh|mac os x|linux|x11|cros`)
	firefoxPattern       = regexp.MustCompile(`(?i)firefox/|fxios/`)
	edgePattern          = regexp.MustCompile(`(?i)edg(e|a|ios)?/`)
	operaPattern         = regexp.MustCompile(`(?i)opr/|opera`)
	chromePattern        = regexp.MustCompile(`(?i)chrome/|crios/`)
	safariPattern        = regexp.MustCompile(`(?i)safari/`)
	chromiumFamilyFilter = regexp.MustCompile(`(?i)chrome|crios|chromium|android`)
	productTokenPattern  = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_.-]*)/[0-9][0-9A-Za-z._]*`)
)

// platformNoise lists product tokens present in almost every user agent
var platformNoise = map[string]bool{
	"mozilla":     true,
	"applewebkit": true,
	"gecko":       true,
	"version":     true,
	"mobile":      true,
	"safari":      true,
	"chrome":      true,
	"edge":        true,
	"opr":         true,
	"edg":         true,
}

// DetectDeviceClass classifies userAgent as tablet, mobile, desktop or unknown
func DetectDeviceClass(userAgent string) model.DeviceClass {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return model.DeviceUnknown
	}

	// "Tablet PC" is a Windows touch-capability token, not a tablet
	if tabletPattern.MatchString(tabletPCPattern.ReplaceAllString(ua, "")) || (androidPattern.MatchString(ua) && !mobileTokenPattern.MatchString(ua)) {
		return model.DeviceTablet
	}
	if mobilePattern.MatchString(ua) {
		return model.DeviceMobile
	}
	if desktopPattern.MatchString(ua) {
		return model.DeviceDesktop
	}
	return model.DeviceUnknown
}

// DetectBrowserFamily names the browser in userAgent. Order matters: Edge
// and Opera carry Chrome tokens and Chrome carries a Safari token.
func DetectBrowserFamily(userAgent string) model.BrowserFamily {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return model.BrowserOther
	}

	switch {
	case firefoxPattern.MatchString(ua):
		return model.BrowserFirefox
	case edgePattern.MatchString(ua):
		return model.BrowserEdge
	case operaPattern.MatchString(ua):
		return model.BrowserOpera
	case chromePattern.MatchString(ua):
		return model.BrowserChrome
	case safariPattern.MatchString(ua) && !chromiumFamilyFilter.MatchString(ua):
		return model.BrowserSafari
	}

	for _, m := range productTokenPattern.FindAllStringSubmatch(ua, -1) {
		name := m[1]
		if !platformNoise[strings.ToLower(name)] {
			return model.BrowserFamily(name)
		}
	}
	return model.BrowserOther
}
