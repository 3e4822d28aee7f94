package clock

import "time"

// Clock supplies the current wall-clock time. The attempt lifecycle is
// deadline-driven, so every time read goes through this interface instead of
// time.Now() — tests inject a manual clock to replay expiry scenarios.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now()
}
