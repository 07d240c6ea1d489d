package domain

import "time"

// Shop represents a connected (or scanned) merchant store.
type Shop struct {
	ID          string     `json:"id"`
	Domain      string     `json:"domain"`
	AccessToken string     `json:"-"` // encrypted at rest, never serialized
	Scope       string     `json:"scope,omitempty"`
	IsPro       bool       `json:"isPro"`
	LastScanAt  *time.Time `json:"lastScanAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Installed reports whether the shop has completed the OAuth handshake.
func (s *Shop) Installed() bool {
	return s != nil && s.AccessToken != ""
}
