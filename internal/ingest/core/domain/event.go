package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventName enumerates the beacon kinds the tracker script emits.
type EventName string

const (
	EventPageview   EventName = "pageview"
	EventClick      EventName = "click"
	EventScroll     EventName = "scroll"
	EventPageUnload EventName = "page_unload"
	EventFormSubmit EventName = "form_submit"
)

// Valid reports whether n is one of the known beacon kinds.
func (n EventName) Valid() bool {
	switch n {
	case EventPageview, EventClick, EventScroll, EventPageUnload, EventFormSubmit:
		return true
	}
	return false
}

// Event is one tracked interaction. Immutable once appended to the log.
type Event struct {
	ID             string // server-assigned, never client-supplied
	SiteID         int64
	VisitorID      string
	Name           EventName
	Properties     map[string]any
	OccurredAt     time.Time // client-reported, used for bucketing
	ReceivedAt     time.Time // server clock, used for late-arrival handling
	IdempotencyKey string
}

// IdempotencyKey derives the deterministic duplicate-delivery fingerprint for
// a beacon. Two deliveries of the same interaction always collapse to the same
// key; the event id deliberately takes no part in it.
func IdempotencyKey(siteID int64, visitorID string, name EventName, occurredAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%d",
		siteID,
		visitorID,
		name,
		occurredAt.Unix(),
	)))
	return hex.EncodeToString(sum[:])
}
