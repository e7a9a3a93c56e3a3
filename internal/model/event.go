package model

import "time"

// VisitorEvent is emitted after an entry is registered or checked out.
type VisitorEvent struct {
	Kind       Status    `json:"kind"`
	EntryID    string    `json:"entry_id"`
	Number     string    `json:"number"`
	Name       string    `json:"name"`
	WhomToMeet string    `json:"whom_to_meet,omitempty"`
	At         time.Time `json:"at"`
}

// NewVisitorEvent builds the event describing e's current state.
func NewVisitorEvent(e Entry) VisitorEvent {
	at := e.EntryTime
	if e.Status == StatusExited && e.ExitTime != nil {
		at = *e.ExitTime
	}
	return VisitorEvent{
		Kind:       e.Status,
		EntryID:    e.ID,
		Number:     e.Number,
		Name:       e.Name,
		WhomToMeet: e.WhomToMeet,
		At:         at,
	}
}
