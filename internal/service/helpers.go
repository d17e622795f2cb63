package service

import (
	"time"
)

// GetExpiresAt turns a relative lifetime in seconds into an absolute time.
// Zero means the token does not expire and yields nil.
func GetExpiresAt(now time.Time, expiresIn int) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(expiresIn) * time.Second)
	return &t
}
