package domain

import "time"

// Customer is the slice of the grooming customer record the reminder sweep
// needs: contact details, the dog's breed and its grooming cadence.
type Customer struct {
	ID                   string
	Name                 string
	DogName              string
	Breed                string
	Email                string
	Phone                string
	PreferredChannel     Channel
	ReminderIntervalDays int
	LastAppointmentAt    *time.Time
	LastReminderAt       *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Recipient returns the contact address for the preferred channel.
func (c *Customer) Recipient() string {
	if c.PreferredChannel == ChannelSMS {
		return c.Phone
	}
	return c.Email
}

// DueForReminder reports whether the breed interval has elapsed since the last
// appointment, and no reminder has gone out since then.
func (c *Customer) DueForReminder(asOf time.Time) bool {
	if c.LastAppointmentAt == nil || c.ReminderIntervalDays <= 0 {
		return false
	}
	due := c.LastAppointmentAt.Add(time.Duration(c.ReminderIntervalDays) * 24 * time.Hour)
	if asOf.Before(due) {
		return false
	}
	return c.LastReminderAt == nil || c.LastReminderAt.Before(*c.LastAppointmentAt)
}
