package types

import "time"

// DisputeEvent is one timeline entry on a dispute, stored as JSONB.
type DisputeEvent struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Note   string    `json:"note,omitempty"`
}
