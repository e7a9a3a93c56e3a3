package model

import "time"

// PushSubscription holds the information for a front-desk browser push subscription.
type PushSubscription struct {
	Endpoint      string    `gorm:"primaryKey"`
	P256DH        string    `gorm:"column:p256dh;not null"`
	Auth          string    `gorm:"not null"`
	NotifyEntered bool      `gorm:"not null"`
	NotifyExited  bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

// Wants reports whether the subscription asked for events of the given kind.
func (p PushSubscription) Wants(kind Status) bool {
	switch kind {
	case StatusEntered:
		return p.NotifyEntered
	case StatusExited:
		return p.NotifyExited
	}
	return false
}
