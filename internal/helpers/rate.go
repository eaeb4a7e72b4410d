package helpers

import (
	"time"

	"golang.org/x/time/rate"
)

// OnceAMinute returns a rate.Sometimes that runs its function at most once per minute.
func OnceAMinute() *rate.Sometimes {
	return &rate.Sometimes{
		Interval: time.Minute,
	}
}
