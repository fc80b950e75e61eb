// Package clock defines the testable time source used by the queue,
// GraphInfo cache, and event bus, so tests can inject deterministic times
// instead of depending on time.Now directly.
package clock

import "time"

// Clock returns the current time. system.Clock implements it with
// time.Now(); tests substitute a fixed or steppable fake.
type Clock interface {
	Now() time.Time
}
