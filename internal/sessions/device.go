package sessions

import "strings"

// DeviceInfo holds the labels derived from a User-Agent string.
type DeviceInfo struct {
	Device   string // "desktop", "mobile", "tablet", "bot"
	Browser  string
	OS       string
	IsMobile bool
}

// ParseUserAgent derives coarse device/browser/OS labels from a raw
// User-Agent string. Substring classification is deliberate: the risk engine
// only compares labels for equality, so a full UA parser buys nothing here.
func ParseUserAgent(ua string) DeviceInfo {
	lower := strings.ToLower(ua)
	if lower == "" {
		return DeviceInfo{}
	}

	info := DeviceInfo{Device: "desktop"}

	switch {
	case strings.Contains(lower, "bot"), strings.Contains(lower, "crawler"),
		strings.Contains(lower, "spider"), strings.Contains(lower, "curl"):
		info.Device = "bot"
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"):
		info.Device = "tablet"
		info.IsMobile = true
	case strings.Contains(lower, "mobile"), strings.Contains(lower, "iphone"),
		strings.Contains(lower, "android"):
		info.Device = "mobile"
		info.IsMobile = true
	}

	switch {
	case strings.Contains(lower, "edg/"), strings.Contains(lower, "edge"):
		info.Browser = "edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		info.Browser = "opera"
	case strings.Contains(lower, "firefox"):
		info.Browser = "firefox"
	case strings.Contains(lower, "chrome"):
		info.Browser = "chrome"
	case strings.Contains(lower, "safari"):
		info.Browser = "safari"
	}

	switch {
	case strings.Contains(lower, "android"):
		info.OS = "android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"),
		strings.Contains(lower, "ios"):
		info.OS = "ios"
	case strings.Contains(lower, "windows"):
		info.OS = "windows"
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macintosh"):
		info.OS = "macos"
	case strings.Contains(lower, "linux"):
		info.OS = "linux"
	}

	return info
}
