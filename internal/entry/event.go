package entry

import "time"

type EventType string

const (
	EventEntryCreated EventType = "entry.created"
	EventEntryUpdated EventType = "entry.updated"
	EventEntryDeleted EventType = "entry.deleted"
)

// Event is published after an entry change is committed, keyed by entry id.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Entry      Entry     `json:"entry"`
}
