package model

import "strings"

// Platform identifies the external provider a webhook originates from.
type Platform string

const (
	// Messaging platforms
	PlatformFacebook Platform = "facebook" // Facebook Messenger page webhooks
	PlatformWaba     Platform = "waba"     // WhatsApp Business Account webhooks

	// Courier platforms
	PlatformJNE      Platform = "jne"
	PlatformSicepat  Platform = "sicepat"
	PlatformAnteraja Platform = "anteraja"
)

// ParsePlatform maps an input string to a known Platform constant.
// It returns the Platform and true if successful, or an empty Platform
// and false if no mapping is found.
func ParsePlatform(input string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(input))) {
	case PlatformFacebook:
		return PlatformFacebook, true
	case PlatformWaba:
		return PlatformWaba, true
	case PlatformJNE:
		return PlatformJNE, true
	case PlatformSicepat:
		return PlatformSicepat, true
	case PlatformAnteraja:
		return PlatformAnteraja, true
	default:
		return "", false
	}
}

// IsCourier reports whether the platform is a courier carrier.
func (p Platform) IsCourier() bool {
	switch p {
	case PlatformJNE, PlatformSicepat, PlatformAnteraja:
		return true
	}
	return false
}

// IsMessaging reports whether the platform is a messaging provider.
func (p Platform) IsMessaging() bool {
	switch p {
	case PlatformFacebook, PlatformWaba:
		return true
	}
	return false
}

// OperationName returns the audit log operation name for the platform,
// e.g. "webhook_facebook".
func (p Platform) OperationName() string {
	return "webhook_" + string(p)
}
