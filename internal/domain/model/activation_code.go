package model

import (
	"time"
)

// ActivationCode is a single-use token redeemable for a time-limited
// entitlement. Code is the primary key; RedeemedBy is nil until a device
// consumes the code and is reset to nil only by revocation.
type ActivationCode struct {
	Code       string
	PlanType   string
	RedeemedBy *string // Pointer to allow for NULL
	CreatedAt  time.Time
}

// Redeemed reports whether the code has been consumed.
func (c *ActivationCode) Redeemed() bool { return c.RedeemedBy != nil }
