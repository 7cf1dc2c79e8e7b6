package reminder

import "time"

// Dispatcher is the platform notification facility. Implementations must
// replace any pending notification that shares an id, and treat cancelling
// an unknown id as a no-op.
type Dispatcher interface {
	ScheduleAt(id string, fireAt time.Time, title, body string) error
	Cancel(id string) error
	CancelAll(ids []string) error
}
