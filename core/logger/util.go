package logger

import (
	"time"
)

// Status maps an error to the status field value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Took returns the elapsed time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Outcome maps an error to the outcome field value.
func Outcome(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}
