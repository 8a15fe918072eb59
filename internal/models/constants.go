package models

import "time"

// TimeSlots is the fixed daily schedule offered for every professional.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00",
}

func IsValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

const (
	// DefaultSessionTTL is how long a sign-in stays valid
	DefaultSessionTTL = 7 * 24 * time.Hour

	// DefaultMaxAdvanceDays how far ahead a date may be booked
	DefaultMaxAdvanceDays = 90

	// WorkerQueueSize bounds the in-memory mirror queue
	WorkerQueueSize = 1000

	// RateLimitMessages updates accepted per user in RateLimitWindow
	RateLimitMessages = 20

	// RateLimitWindow is the rate limit window in seconds
	RateLimitWindow = 60

	// SignInAttempts sign-in attempts allowed per email in SignInWindow
	SignInAttempts = 5
	SignInWindow   = 15 * time.Minute

	// MinPasswordLength shortest accepted password
	MinPasswordLength = 6

	// DefaultUpdateTimeout bounds the handling of one chat update
	DefaultUpdateTimeout = 30 * time.Second
)
