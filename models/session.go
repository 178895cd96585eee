package models

import "time"

// Session describes one live feed or search engine held by the server on
// behalf of a client.
type Session struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired reports whether the session has been idle past its expiry at now.
func (s Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
