package domain

import "time"

// QuotaSeverity is the UI-facing warning level for quota consumption. It is
// advisory only and never blocks a send.
type QuotaSeverity string

const (
	QuotaSeverityOK       QuotaSeverity = "OK"
	QuotaSeverityWarning  QuotaSeverity = "WARNING"
	QuotaSeverityHigh     QuotaSeverity = "HIGH"
	QuotaSeverityCritical QuotaSeverity = "CRITICAL"
)

func (s QuotaSeverity) String() string { return string(s) }

// QuotaStatus is the per-day call budget position against a provider.
type QuotaStatus struct {
	Date     string
	Count    int64
	Limit    int64
	Percent  float64
	Severity QuotaSeverity
}

// QuotaDay formats a timestamp as the UTC calendar-date counter key. A new
// date implicitly starts a fresh counter; no reset job exists.
func QuotaDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// QuotaSeverityFor maps a usage percentage to a severity using the three
// configured thresholds (warning, high, critical), e.g. 80/90/95.
func QuotaSeverityFor(percent float64, thresholds [3]int) QuotaSeverity {
	switch {
	case percent >= float64(thresholds[2]):
		return QuotaSeverityCritical
	case percent >= float64(thresholds[1]):
		return QuotaSeverityHigh
	case percent >= float64(thresholds[0]):
		return QuotaSeverityWarning
	default:
		return QuotaSeverityOK
	}
}
