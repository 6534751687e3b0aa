// Package settings holds operator-tunable values stored in the database,
// read through a short-lived cache so handlers see at-most-slightly-stale
// configuration instead of ambient global state.
package settings

import "context"

// Values are the business settings the notification flows consume.
type Values struct {
	QuotaDailyLimit     int64
	QuotaWarnThresholds [3]int
	RemindersEnabled    bool
}

// Defaults apply when a key is absent from the store.
func Defaults() Values {
	return Values{
		QuotaDailyLimit:     1000,
		QuotaWarnThresholds: [3]int{80, 90, 95},
		RemindersEnabled:    true,
	}
}

// Source loads the current settings from the backing store.
type Source interface {
	Load(ctx context.Context) (Values, error)
}
