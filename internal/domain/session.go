package domain

import "time"

// Session is the authenticated (or anonymous) state attached to a
// request. The role is a snapshot taken at login time; changing a user
// record later does not retroactively change live sessions.
type Session struct {
	ID        string
	UserID    int64
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AnonymousSession is the guest session resolved for requests carrying
// no (or an invalid) session token.
func AnonymousSession() Session {
	return Session{Role: RoleGuest}
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

// Expired reports whether the session passed its absolute expiry.
// Anonymous sessions never expire.
func (s Session) Expired(now time.Time) bool {
	return s.Authenticated() && now.After(s.ExpiresAt)
}
