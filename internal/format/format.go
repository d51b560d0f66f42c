// Package format renders millisecond durations for display.
package format

import "fmt"

// Clock formats ms as HH:MM:SS. Negative input renders as zero.
// Hours are not wrapped, so 100 hours renders as "100:00:00".
func Clock(ms int64) string {
	if ms <= 0 {
		return "00:00:00"
	}
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// Compact formats ms with the two most significant units, e.g. "2h 5m", "3m 10s", "45s".
// Zero-valued trailing units are dropped ("2h", "3m").
func Compact(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	total := ms / 1000
	h, m, s := total/3600, total%3600/60, total%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}
