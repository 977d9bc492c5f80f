package domain

import "time"

// InviteCode gates registration. MaxUses == 0 means unbounded; a
// bounded code is spent when UsesRemaining reaches zero. Deactivating a
// code blocks future registrations without touching existing members.
type InviteCode struct {
	Code          string
	MaxUses       int
	UsesRemaining int
	Active        bool
	CreatedAt     time.Time
}

// Bounded reports whether the code has a use limit.
func (c InviteCode) Bounded() bool {
	return c.MaxUses > 0
}

// Usable reports whether the code can still gate a registration.
func (c InviteCode) Usable() bool {
	if !c.Active {
		return false
	}
	return !c.Bounded() || c.UsesRemaining > 0
}
