package entity

import "time"

// DefaultOTPTTL bounds how long a harvested code stays retrievable.
const DefaultOTPTTL = 10 * time.Minute

// OTPEntry is one harvested one-time code. Once Used is set or ExpiresAt has
// passed, the entry is permanently unretrievable by lookup, though it may
// linger in storage until the next sweep.
type OTPEntry struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	BodyExcerpt string    `json:"bodyExcerpt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Used        bool      `json:"used"`
}

func (e *OTPEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Available reports whether the entry may still be handed out.
func (e *OTPEntry) Available(now time.Time) bool {
	return !e.Used && !e.Expired(now)
}

type RelayStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Used   int `json:"used"`
}
