package model

import (
	"time"
)

// DeviceBinding associates one device identifier with the code it consumed
// and the resulting entitlement window. At most one binding exists per
// device; it is created only by activation and deleted only by revocation.
type DeviceBinding struct {
	DeviceID       string
	ActivationCode string
	PlanType       string
	ActivatedAt    time.Time
	ExpiresAt      time.Time
}

// Active reports whether the entitlement is still valid at now.
// The boundary instant itself is expired.
func (b *DeviceBinding) Active(now time.Time) bool {
	return b.ExpiresAt.After(now)
}

// EntitlementState is the derived activation status of a device.
type EntitlementState string

const (
	StateUnactivated EntitlementState = "unactivated"
	StateActivated   EntitlementState = "activated"
	StateExpired     EntitlementState = "expired"
)

// EntitlementStatus is the result of a status check. PlanType and ExpiresAt
// are only meaningful when State is activated or expired.
type EntitlementStatus struct {
	State     EntitlementState
	PlanType  string
	ExpiresAt time.Time
}
