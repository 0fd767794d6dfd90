package reminders

import (
	"fmt"
	"time"
)

// Reminder is an immutable scheduled notification. Replacing a reminder
// means submitting a new value carrying the same ID; values are never
// mutated in place.
type Reminder struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DueTime   time.Time `json:"dueTime"`
	Recipient string    `json:"recipient"`
}

// Subject returns the notification subject line for this reminder.
func (r Reminder) Subject() string {
	return "Reminder: " + r.Title
}

// Body returns the notification body for this reminder.
func (r Reminder) Body() string {
	return fmt.Sprintf("This is a reminder for %q, due %s.", r.Title, r.DueTime.Local().Format(time.RFC822))
}
