package models

import "time"

// Session is the locally held credential of a signed-in staff member.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StaffID   string    `json:"staff_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the local expiry is at or before now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
