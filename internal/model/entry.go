package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a visitor entry.
type Status string

const (
	StatusEntered Status = "entered"
	StatusExited  Status = "exited"
)

// Valid reports whether s is one of the two known states.
func (s Status) Valid() bool {
	return s == StatusEntered || s == StatusExited
}

// Column widths of the free-text fields, in characters. They must match the
// size tags on Entry.
const (
	MaxNameLen        = 256
	MaxAddressLen     = 512
	MaxPurposeLen     = 512
	MaxWhomToMeetLen  = 256
	MaxPhoneNumberLen = 64
)

// Entry is one visitor's check-in/check-out record.
type Entry struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Number      string     `gorm:"size:32;not null;index" json:"number"`
	Name        string     `gorm:"size:256;not null" json:"name"`
	Address     string     `gorm:"size:512;not null" json:"address"`
	Purpose     string     `gorm:"size:512" json:"purpose"`
	WhomToMeet  string     `gorm:"size:256" json:"whom_to_meet"`
	PhoneNumber string     `gorm:"size:64" json:"phone_number"`
	Status      Status     `gorm:"size:16;not null;default:entered;index;check:status IN ('entered','exited')" json:"status"`
	EntryTime   time.Time  `gorm:"not null" json:"entry_time"`
	ExitTime    *time.Time `json:"exit_time"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
}

// Filter selects which entries a list query returns.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterEntered Filter = "entered"
	FilterExited  Filter = "exited"
)

// ParseFilter converts a query value into a Filter. An empty value means all.
func ParseFilter(raw string) (Filter, error) {
	switch Filter(raw) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterEntered, FilterExited:
		return Filter(raw), nil
	}
	return "", fmt.Errorf("unknown filter %q", raw)
}

// Status returns the status predicate of the filter, or "" for FilterAll.
func (f Filter) Status() Status {
	switch f {
	case FilterEntered:
		return StatusEntered
	case FilterExited:
		return StatusExited
	}
	return ""
}
