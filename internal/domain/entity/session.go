package entity

import "time"

// SessionStaleAfter treats older persisted sessions as a restore miss.
const SessionStaleAfter = 24 * time.Hour

// BrowsingState is the serialized authenticated browser state: cookies plus
// origin-scoped storage. Opaque to everything but the surface adapter.
type BrowsingState struct {
	Cookies      []byte            `json:"cookies"`
	LocalStorage map[string]string `json:"localStorage,omitempty"`
}

// SessionRecord persists one identity's authenticated state for one host.
// The live keep-alive handle is process-local and never serialized.
type SessionRecord struct {
	Identity string        `json:"identity"`
	Host     string        `json:"host"`
	State    BrowsingState `json:"state"`
	SavedAt  time.Time     `json:"savedAt"`
}

func (r *SessionRecord) Stale(now time.Time) bool {
	return now.Sub(r.SavedAt) > SessionStaleAfter
}
