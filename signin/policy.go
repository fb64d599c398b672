package signin

import "strings"

// DeviceInputType classifies the requesting device.
type DeviceInputType uint8

const (
	Unknown DeviceInputType = iota
	Pointer
	Touchscreen
)

func (d DeviceInputType) String() string {
	switch d {
	case Pointer:
		return "POINTER"
	case Touchscreen:
		return "TOUCHSCREEN"
	default:
		return "UNKNOWN"
	}
}

// DeviceAuthPolicy selects which response style a device receives.
type DeviceAuthPolicy uint8

const (
	PolicyAuto DeviceAuthPolicy = iota
	PolicyBrowser
	PolicyApplication
)

func (p DeviceAuthPolicy) String() string {
	switch p {
	case PolicyBrowser:
		return "BROWSER"
	case PolicyApplication:
		return "APPLICATION"
	default:
		return "AUTO"
	}
}

// ParseDeviceAuthPolicy parses BROWSER, APPLICATION or AUTO (case-insensitive).
func ParseDeviceAuthPolicy(s string) (DeviceAuthPolicy, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BROWSER":
		return PolicyBrowser, true
	case "APPLICATION":
		return PolicyApplication, true
	case "AUTO":
		return PolicyAuto, true
	}
	return PolicyAuto, false
}

// AppendTokenPolicy selects how a token is attached to a redirect.
type AppendTokenPolicy uint8

const (
	AppendCookie AppendTokenPolicy = iota
	AppendURLParam
	AppendURLFragment
)

func (p AppendTokenPolicy) String() string {
	switch p {
	case AppendURLParam:
		return "URL_PARAM"
	case AppendURLFragment:
		return "URL_FRAGMENT"
	default:
		return "COOKIE"
	}
}

// ParseAppendTokenPolicy parses COOKIE, URL_PARAM or URL_FRAGMENT (case-insensitive).
func ParseAppendTokenPolicy(s string) (AppendTokenPolicy, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COOKIE":
		return AppendCookie, true
	case "URL_PARAM":
		return AppendURLParam, true
	case "URL_FRAGMENT":
		return AppendURLFragment, true
	}
	return AppendCookie, false
}

// Style is the shape of a sign-in response.
type Style uint8

const (
	BrowserStyle Style = iota + 1
	ApplicationStyle
)

func (s Style) String() string {
	switch s {
	case BrowserStyle:
		return "browser"
	case ApplicationStyle:
		return "application"
	default:
		return "none"
	}
}

// Decide picks the response style for device under policy.
func Decide(device DeviceInputType, policy DeviceAuthPolicy) Style {
	if device == Pointer {
		if policy == PolicyApplication {
			return ApplicationStyle
		}
		return BrowserStyle
	}
	if policy == PolicyBrowser {
		return BrowserStyle
	}
	return ApplicationStyle
}
